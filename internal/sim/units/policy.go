package units

import (
	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/jobs"
	"hivecore.ai/internal/sim/tuning"
)

type Params struct {
	Priorities       tuning.Priorities
	RepairMultiplier int
	LowTTLThreshold  int
}

func ParamsFrom(t tuning.Tuning) Params {
	return Params{
		Priorities:       t.Priorities,
		RepairMultiplier: t.RepairMultiplier,
		LowTTLThreshold:  t.LowTTLThreshold,
	}
}

func DefaultParams() Params { return ParamsFrom(tuning.Defaults()) }

// Outcome is what executing a held job decided.
type Outcome uint8

const (
	Hold Outcome = iota
	Release
)

func (o Outcome) String() string {
	if o == Hold {
		return "hold"
	}
	return "release"
}

// Action summarises one unit's turn for reports.
type Action string

const (
	ActionSkipped  Action = "skipped"
	ActionIdle     Action = "idle"
	ActionKept     Action = "kept"
	ActionReleased Action = "released"
	ActionAssigned Action = "assigned"
	ActionFinished Action = "finished"
	ActionFailed   Action = "failed"
)

type Result struct {
	Action Action
	Job    jobs.Job
}

// HasJob reports whether the result refers to a job.
func (r Result) HasJob() bool { return r.Job.Valid() }

// pickOffer returns the available, eligible offer with the lowest
// priority × range score. Ties keep the earliest offer in pool order.
func pickOffer(pool jobs.Pool, pos game.Pos, prio tuning.Priorities, eligible func(*jobs.Offer) bool) *jobs.Offer {
	var (
		best      *jobs.Offer
		bestScore uint64
	)
	for _, o := range pool {
		if !o.Available() || !eligible(o) {
			continue
		}
		score := uint64(o.Job.PriorityIn(prio)) * uint64(o.Job.RangeTo(pos))
		if best == nil || score < bestScore {
			best, bestScore = o, score
		}
	}
	return best
}

// repairWorthwhile requires the target's health to be below
// energyCapacity × multiplier.
func repairWorthwhile(r game.Resolver, j jobs.Job, energyCapacity, multiplier int) bool {
	st, ok := j.Structure(r)
	if !ok {
		return false
	}
	return st.Hits() < energyCapacity*multiplier
}
