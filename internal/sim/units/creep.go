package units

import (
	"errors"
	"io"
	"log"

	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/jobs"
	"hivecore.ai/internal/sim/memory"
)

// Creep is the scheduler's view of one worker: the world handle for this tick
// and the job it holds, if any.
type Creep struct {
	name   string
	inner  game.Creep
	job    *jobs.Job
	mem    memory.Store
	params Params
	log    *log.Logger
}

// NewCreep rebuilds a creep from its memory record. A missing, corrupt or
// stale record leaves the creep idle.
func NewCreep(inner game.Creep, mem memory.Store, r game.Resolver, p Params, logger *log.Logger) *Creep {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Creep{name: inner.Name(), inner: inner, mem: mem, params: p, log: logger}
	if mem == nil {
		return c
	}
	rec, err := mem.Load(c.name)
	if err != nil {
		if !errors.Is(err, memory.ErrNotFound) {
			logger.Printf("creep %s: %v; starting idle", c.name, err)
			c.setJob(nil)
		}
		return c
	}
	j, ok, err := rec.RestoreJob()
	switch {
	case err != nil:
		logger.Printf("creep %s: bad memory record: %v; starting idle", c.name, err)
		c.setJob(nil)
	case ok && j.Resolves(r):
		c.job = &j
	case ok:
		c.setJob(nil)
	}
	return c
}

func (c *Creep) Name() string { return c.name }

func (c *Creep) SetCreep(inner game.Creep) { c.inner = inner }

func (c *Creep) Job() (jobs.Job, bool) {
	if c.job == nil {
		return jobs.Job{}, false
	}
	return *c.job, true
}

// Restore makes the creep hold j without going through the market.
func (c *Creep) Restore(j jobs.Job) { c.setJob(&j) }

// setJob is the only place the held job changes; memory follows it.
func (c *Creep) setJob(j *jobs.Job) {
	c.job = j
	if c.mem == nil {
		return
	}
	rec := memory.Idle()
	if j != nil {
		rec = memory.ForJob(*j)
	}
	if err := c.mem.Save(c.name, rec); err != nil {
		c.log.Printf("creep %s: save memory: %v", c.name, err)
	}
}

// SelectJob runs the creep's turn: execute the held job, or win one from the
// pool and execute it straight away.
func (c *Creep) SelectJob(r game.Resolver, pool jobs.Pool) (Result, error) {
	if c.inner.Spawning() {
		return Result{Action: ActionSkipped}, nil
	}

	if c.job != nil {
		j := *c.job
		out, err := c.execute(r, j)
		if err != nil {
			c.setJob(nil)
			return Result{Action: ActionFailed, Job: j}, err
		}
		if out == Release {
			c.setJob(nil)
			return Result{Action: ActionReleased, Job: j}, nil
		}
		return Result{Action: ActionKept, Job: j}, nil
	}

	offer := pickOffer(pool, c.inner.Pos(), c.params.Priorities, func(o *jobs.Offer) bool {
		return c.eligible(r, o)
	})
	if offer == nil {
		return Result{Action: ActionIdle}, nil
	}
	offer.Take()
	if offer.Job.Kind() == jobs.KindMaintain && offer.Available() {
		if st, ok := offer.Job.Structure(r); ok && st.EnergyFree() <= c.inner.EnergyUsed() {
			offer.Exhaust()
		}
	}

	j := offer.Job
	out, err := c.execute(r, j)
	if err != nil {
		return Result{Action: ActionFailed, Job: j}, err
	}
	if out == Release {
		return Result{Action: ActionFinished, Job: j}, nil
	}
	c.setJob(&j)
	return Result{Action: ActionAssigned, Job: j}, nil
}

func (c *Creep) lowTTL() bool {
	ttl, ok := c.inner.TicksToLive()
	return ok && ttl < c.params.LowTTLThreshold
}

func (c *Creep) eligible(r game.Resolver, o *jobs.Offer) bool {
	kind := o.Job.Kind()
	switch kind {
	case jobs.KindAttack, jobs.KindHeal:
		return false
	}
	if c.inner.EnergyUsed() == 0 {
		return kind == jobs.KindHarvest && !c.lowTTL()
	}
	switch kind {
	case jobs.KindHarvest:
		return c.inner.EnergyFree() > 0 && !c.lowTTL()
	case jobs.KindRepair:
		return repairWorthwhile(r, o.Job, c.inner.EnergyCapacity(), c.params.RepairMultiplier)
	}
	return true
}

func (c *Creep) execute(r game.Resolver, j jobs.Job) (Outcome, error) {
	switch j.Kind() {
	case jobs.KindHarvest:
		return c.harvest(r, j)
	case jobs.KindBuild:
		return c.build(r, j)
	case jobs.KindMaintain:
		return c.maintain(r, j)
	case jobs.KindRepair:
		return c.repair(r, j)
	case jobs.KindUpgrade:
		return c.upgrade(r, j)
	case jobs.KindAttack:
		return c.attack(r, j)
	case jobs.KindHeal:
		return c.heal(r, j)
	}
	panic(&jobs.KindMismatchError{Op: "creep execution", Kind: j.Kind()})
}

func (c *Creep) fail(action string, rc game.ReturnCode) error {
	return &ActionError{Unit: c.name, Action: action, Code: rc}
}

// outcome maps the codes every action shares.
func (c *Creep) outcome(action string, rc game.ReturnCode, target game.Pos) (Outcome, error) {
	switch rc {
	case game.OK:
		return Hold, nil
	case game.ErrNotInRange:
		return c.moveTo(target)
	case game.ErrNotEnough:
		return Release, nil
	default:
		return Hold, c.fail(action, rc)
	}
}

func (c *Creep) moveTo(p game.Pos) (Outcome, error) {
	switch rc := c.inner.MoveTo(p); rc {
	case game.OK, game.ErrTired:
		return Hold, nil
	case game.ErrNoPath:
		return Release, nil
	default:
		return Hold, c.fail("move", rc)
	}
}

func (c *Creep) harvest(r game.Resolver, j jobs.Job) (Outcome, error) {
	if c.inner.EnergyFree() == 0 {
		return Release, nil
	}
	if c.inner.EnergyUsed() > 0 && c.lowTTL() {
		return Release, nil
	}
	src, ok := j.Source(r)
	if !ok {
		return Release, nil
	}
	return c.outcome("harvest", c.inner.Harvest(src), src.Pos())
}

func (c *Creep) build(r game.Resolver, j jobs.Job) (Outcome, error) {
	if c.inner.EnergyUsed() == 0 {
		return Release, nil
	}
	site, ok := j.Site(r)
	if !ok || site.Progress() >= site.ProgressTotal() {
		return Release, nil
	}
	return c.outcome("build", c.inner.Build(site), site.Pos())
}

func (c *Creep) maintain(r game.Resolver, j jobs.Job) (Outcome, error) {
	if c.inner.EnergyUsed() == 0 {
		return Release, nil
	}
	st, ok := j.Structure(r)
	if !ok || st.EnergyFree() == 0 {
		return Release, nil
	}
	rc := c.inner.Transfer(st)
	if rc == game.ErrFull {
		return Release, nil
	}
	return c.outcome("maintain", rc, st.Pos())
}

func (c *Creep) repair(r game.Resolver, j jobs.Job) (Outcome, error) {
	if c.inner.EnergyUsed() == 0 {
		return Release, nil
	}
	st, ok := j.Structure(r)
	if !ok || st.Hits() >= st.HitsMax() {
		return Release, nil
	}
	return c.outcome("repair", c.inner.Repair(st), st.Pos())
}

func (c *Creep) upgrade(r game.Resolver, j jobs.Job) (Outcome, error) {
	if c.inner.EnergyUsed() == 0 {
		return Release, nil
	}
	ctrl, ok := j.Controller(r)
	if !ok {
		return Hold, &ContextError{Unit: c.name, Missing: "controller"}
	}
	return c.outcome("upgrade", c.inner.UpgradeController(ctrl), ctrl.Pos())
}

func (c *Creep) attack(r game.Resolver, j jobs.Job) (Outcome, error) {
	target, ok := j.Creep(r)
	if !ok || target.Hits() == 0 {
		return Release, nil
	}
	return c.outcome("attack", c.inner.Attack(target), target.Pos())
}

func (c *Creep) heal(r game.Resolver, j jobs.Job) (Outcome, error) {
	target, ok := j.Creep(r)
	if !ok || target.Hits() == 0 || target.Hits() >= target.HitsMax() {
		return Release, nil
	}
	return c.outcome("heal", c.inner.Heal(target), target.Pos())
}
