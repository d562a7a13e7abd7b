// Package jobs holds the job-market data model: one closed Job variant per kind
// of work, and the per-scan offers that expose a bounded number of places.
package jobs

import (
	"fmt"

	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/tuning"
)

type Kind uint8

const (
	KindAttack Kind = iota + 1
	KindBuild
	KindHarvest
	KindHeal
	KindMaintain
	KindRepair
	KindUpgrade
)

// Kinds lists every variant in scan order.
var Kinds = []Kind{KindAttack, KindBuild, KindHarvest, KindHeal, KindMaintain, KindRepair, KindUpgrade}

func (k Kind) String() string {
	switch k {
	case KindAttack:
		return "attack"
	case KindBuild:
		return "build"
	case KindHarvest:
		return "harvest"
	case KindHeal:
		return "heal"
	case KindMaintain:
		return "maintain"
	case KindRepair:
		return "repair"
	case KindUpgrade:
		return "upgrade"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown job kind %q", s)
}

type TargetKind uint8

const (
	TargetCreep TargetKind = iota + 1
	TargetConstructionSite
	TargetSource
	TargetStructure
	TargetController
)

func (t TargetKind) String() string {
	switch t {
	case TargetCreep:
		return "creep"
	case TargetConstructionSite:
		return "construction_site"
	case TargetSource:
		return "source"
	case TargetStructure:
		return "structure"
	case TargetController:
		return "controller"
	default:
		return fmt.Sprintf("target(%d)", uint8(t))
	}
}

// Job is one unit of work bound to a target entity. The target is held as an
// id plus the position it had when the job was created; use the accessors
// matching the job's kind to resolve it again.
type Job struct {
	kind   Kind
	target game.ObjectID
	pos    game.Pos
}

func Attack(c game.Creep) Job { return Job{kind: KindAttack, target: c.ID(), pos: c.Pos()} }
func Build(s game.Site) Job { return Job{kind: KindBuild, target: s.ID(), pos: s.Pos()} }
func Harvest(s game.Source) Job { return Job{kind: KindHarvest, target: s.ID(), pos: s.Pos()} }
func Heal(c game.Creep) Job { return Job{kind: KindHeal, target: c.ID(), pos: c.Pos()} }
func Maintain(s game.Structure) Job { return Job{kind: KindMaintain, target: s.ID(), pos: s.Pos()} }
func Repair(s game.Structure) Job { return Job{kind: KindRepair, target: s.ID(), pos: s.Pos()} }
func Upgrade(c game.Controller) Job { return Job{kind: KindUpgrade, target: c.ID(), pos: c.Pos()} }

func (j Job) Kind() Kind { return j.kind }
func (j Job) Target() game.ObjectID { return j.target }
func (j Job) TargetPos() game.Pos { return j.pos }
func (j Job) Valid() bool { return j.kind >= KindAttack && j.kind <= KindUpgrade && j.target != "" }
func (j Job) RangeTo(p game.Pos) uint32 { return p.RangeTo(j.pos) }

// Priority is the built-in priority of the variant. Scheduling scores with
// PriorityIn and the loaded tuning, which may differ.
func (j Job) Priority() uint32 { return j.PriorityIn(tuning.DefaultPriorities()) }

// InteractRange is the built-in action range; see RangeIn for tuned ranges.
func (j Job) InteractRange() int { return j.RangeIn(tuning.DefaultRanges()) }

func (j Job) Equal(o Job) bool { return j.kind == o.kind && j.target == o.target }
func (j Job) String() string { return fmt.Sprintf("%s:%s", j.kind, j.target) }

func (j Job) PriorityIn(p tuning.Priorities) uint32 {
	switch j.kind {
	case KindAttack:
		return p.Attack
	case KindBuild:
		return p.Build
	case KindHarvest:
		return p.Harvest
	case KindHeal:
		return p.Heal
	case KindMaintain:
		return p.Maintain
	case KindRepair:
		return p.Repair
	case KindUpgrade:
		return p.Upgrade
	}
	panic(&KindMismatchError{Op: "priority", Kind: j.kind})
}

// RangeIn is the distance at which a unit can act on the target.
func (j Job) RangeIn(r tuning.Ranges) int {
	switch j.kind {
	case KindAttack:
		return r.Attack
	case KindBuild:
		return r.Build
	case KindHarvest:
		return r.Harvest
	case KindHeal:
		return r.Heal
	case KindMaintain:
		return r.Transfer
	case KindRepair:
		return r.Repair
	case KindUpgrade:
		return r.Upgrade
	}
	panic(&KindMismatchError{Op: "range", Kind: j.kind})
}

func (j Job) TargetKind() TargetKind {
	switch j.kind {
	case KindAttack, KindHeal:
		return TargetCreep
	case KindBuild:
		return TargetConstructionSite
	case KindHarvest:
		return TargetSource
	case KindMaintain, KindRepair:
		return TargetStructure
	case KindUpgrade:
		return TargetController
	}
	panic(&KindMismatchError{Op: "target kind", Kind: j.kind})
}

// KindMismatchError is raised (as a panic) when an accessor is used on a job
// of the wrong kind. It signals a bug in the caller, not a world condition.
type KindMismatchError struct {
	Op   string
	Kind Kind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("jobs: %s is not valid for a %s job", e.Op, e.Kind)
}

func (j Job) must(op string, kinds ...Kind) {
	for _, k := range kinds {
		if j.kind == k {
			return
		}
	}
	panic(&KindMismatchError{Op: op, Kind: j.kind})
}

// Creep resolves the target of an attack or heal job.
func (j Job) Creep(r game.Resolver) (game.Creep, bool) {
	j.must("creep", KindAttack, KindHeal)
	return r.CreepByID(j.target)
}

// Site resolves the target of a build job.
func (j Job) Site(r game.Resolver) (game.Site, bool) {
	j.must("construction site", KindBuild)
	return r.SiteByID(j.target)
}

// Source resolves the target of a harvest job.
func (j Job) Source(r game.Resolver) (game.Source, bool) {
	j.must("source", KindHarvest)
	return r.SourceByID(j.target)
}

// Structure resolves the target of a maintain or repair job.
func (j Job) Structure(r game.Resolver) (game.Structure, bool) {
	j.must("structure", KindMaintain, KindRepair)
	return r.StructureByID(j.target)
}

// Controller resolves the target of an upgrade job.
func (j Job) Controller(r game.Resolver) (game.Controller, bool) {
	j.must("controller", KindUpgrade)
	return r.ControllerByID(j.target)
}

// Resolves reports whether the job's target is still visible.
func (j Job) Resolves(r game.Resolver) bool {
	if !j.Valid() {
		return false
	}
	var ok bool
	switch j.TargetKind() {
	case TargetCreep:
		_, ok = r.CreepByID(j.target)
	case TargetConstructionSite:
		_, ok = r.SiteByID(j.target)
	case TargetSource:
		_, ok = r.SourceByID(j.target)
	case TargetStructure:
		_, ok = r.StructureByID(j.target)
	case TargetController:
		_, ok = r.ControllerByID(j.target)
	}
	return ok
}

// Record is the plain form of a job used by snapshots and unit memory.
type Record struct {
	Kind   string `json:"kind" cbor:"k"`
	Target string `json:"target" cbor:"t"`
	X      int    `json:"x" cbor:"x"`
	Y      int    `json:"y" cbor:"y"`
}

func (j Job) Record() Record {
	return Record{Kind: j.kind.String(), Target: string(j.target), X: j.pos.X, Y: j.pos.Y}
}

func FromRecord(r Record) (Job, error) {
	k, err := ParseKind(r.Kind)
	if err != nil {
		return Job{}, err
	}
	if r.Target == "" {
		return Job{}, fmt.Errorf("job record %s has no target", r.Kind)
	}
	return Job{kind: k, target: game.ObjectID(r.Target), pos: game.Pos{X: r.X, Y: r.Y}}, nil
}
