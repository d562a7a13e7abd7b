package units

import (
	"fmt"

	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/jobs"
)

// Tower is a stationary unit limited to attack and repair work.
type Tower struct {
	id     game.ObjectID
	inner  game.Tower
	job    *jobs.Job
	params Params
}

func NewTower(inner game.Tower, p Params) *Tower {
	return &Tower{id: inner.ID(), inner: inner, params: p}
}

func (t *Tower) ID() game.ObjectID { return t.id }

func (t *Tower) SetTower(inner game.Tower) { t.inner = inner }

func (t *Tower) Job() (jobs.Job, bool) {
	if t.job == nil {
		return jobs.Job{}, false
	}
	return *t.job, true
}

// Restore makes the tower hold j. Only attack and repair jobs are accepted.
func (t *Tower) Restore(j jobs.Job) error {
	if k := j.Kind(); k != jobs.KindAttack && k != jobs.KindRepair {
		return fmt.Errorf("tower %s cannot hold a %s job", t.id, k)
	}
	t.job = &j
	return nil
}

func (t *Tower) SelectJob(r game.Resolver, pool jobs.Pool) (Result, error) {
	if t.job != nil {
		j := *t.job
		out, err := t.execute(r, j)
		if err != nil {
			t.job = nil
			return Result{Action: ActionFailed, Job: j}, err
		}
		if out == Release {
			t.job = nil
			return Result{Action: ActionReleased, Job: j}, nil
		}
		return Result{Action: ActionKept, Job: j}, nil
	}

	offer := pickOffer(pool, t.inner.Pos(), t.params.Priorities, func(o *jobs.Offer) bool {
		return t.eligible(r, o)
	})
	if offer == nil {
		return Result{Action: ActionIdle}, nil
	}
	offer.Take()

	j := offer.Job
	out, err := t.execute(r, j)
	if err != nil {
		return Result{Action: ActionFailed, Job: j}, err
	}
	if out == Release {
		return Result{Action: ActionFinished, Job: j}, nil
	}
	t.job = &j
	return Result{Action: ActionAssigned, Job: j}, nil
}

func (t *Tower) eligible(r game.Resolver, o *jobs.Offer) bool {
	switch o.Job.Kind() {
	case jobs.KindAttack:
		return true
	case jobs.KindRepair:
		return repairWorthwhile(r, o.Job, t.inner.EnergyCapacity(), t.params.RepairMultiplier)
	default:
		return false
	}
}

func (t *Tower) execute(r game.Resolver, j jobs.Job) (Outcome, error) {
	switch j.Kind() {
	case jobs.KindAttack:
		return t.attack(r, j)
	case jobs.KindRepair:
		return t.repair(r, j)
	}
	panic(&jobs.KindMismatchError{Op: "tower execution", Kind: j.Kind()})
}

func (t *Tower) fail(action string, rc game.ReturnCode) error {
	return &ActionError{Unit: "tower " + string(t.id), Action: action, Code: rc}
}

func (t *Tower) attack(r game.Resolver, j jobs.Job) (Outcome, error) {
	target, ok := j.Creep(r)
	if !ok || target.Hits() == 0 {
		return Release, nil
	}
	switch rc := t.inner.Attack(target); rc {
	case game.OK:
		if after, ok := j.Creep(r); !ok || after.Hits() == 0 {
			return Release, nil
		}
		return Hold, nil
	case game.ErrNotEnough:
		return Release, nil
	default:
		return Hold, t.fail("attack", rc)
	}
}

func (t *Tower) repair(r game.Resolver, j jobs.Job) (Outcome, error) {
	st, ok := j.Structure(r)
	if !ok {
		return Release, nil
	}
	if st.Hits() >= st.HitsMax() || st.Hits() >= t.inner.EnergyCapacity()*t.params.RepairMultiplier {
		return Release, nil
	}
	switch rc := t.inner.Repair(st); rc {
	case game.OK:
		return Hold, nil
	case game.ErrNotEnough:
		return Release, nil
	default:
		return Hold, t.fail("repair", rc)
	}
}
