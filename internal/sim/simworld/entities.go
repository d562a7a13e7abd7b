package simworld

import (
	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/mathx"
)

type Creep struct {
	id      game.ObjectID
	name    string
	room    *Room
	pos     game.Pos
	my      bool
	hits    int
	hitsMax int

	energy   int
	capacity int

	spawnLeft int // ticks until spawned
	ttl       int
	fatigue   int
	moved     bool
}

func (c *Creep) ID() game.ObjectID   { return c.id }
func (c *Creep) Pos() game.Pos       { return c.pos }
func (c *Creep) Name() string        { return c.name }
func (c *Creep) My() bool            { return c.my }
func (c *Creep) Spawning() bool      { return c.spawnLeft > 0 }
func (c *Creep) Hits() int           { return c.hits }
func (c *Creep) HitsMax() int        { return c.hitsMax }
func (c *Creep) EnergyUsed() int     { return c.energy }
func (c *Creep) EnergyFree() int     { return c.capacity - c.energy }
func (c *Creep) EnergyCapacity() int { return c.capacity }

func (c *Creep) TicksToLive() (int, bool) {
	if c.Spawning() {
		return 0, false
	}
	return c.ttl, true
}

func (c *Creep) rules() Rules { return c.room.world.rules }

// ready is the precondition every command shares.
func (c *Creep) ready() game.ReturnCode {
	switch {
	case !c.my:
		return game.ErrNotOwner
	case c.Spawning():
		return game.ErrBusy
	case c.hits <= 0:
		return game.ErrInvalidTarget
	}
	return game.OK
}

func (c *Creep) inRange(p game.Pos, rng int) bool {
	return int(c.pos.RangeTo(p)) <= rng
}

func (c *Creep) Harvest(s game.Source) game.ReturnCode {
	if rc := c.ready(); rc != game.OK {
		return rc
	}
	src, ok := c.room.world.source(s.ID())
	if !ok {
		return game.ErrInvalidTarget
	}
	if !c.inRange(src.pos, 1) {
		return game.ErrNotInRange
	}
	if src.energy <= 0 {
		return game.ErrNotEnough
	}
	if c.EnergyFree() <= 0 {
		return game.ErrFull
	}
	n := mathx.MinInt(c.rules().HarvestPower, mathx.MinInt(src.energy, c.EnergyFree()))
	src.energy -= n
	c.energy += n
	return game.OK
}

func (c *Creep) Build(s game.Site) game.ReturnCode {
	if rc := c.ready(); rc != game.OK {
		return rc
	}
	site, ok := c.room.world.site(s.ID())
	if !ok {
		return game.ErrInvalidTarget
	}
	if !c.inRange(site.pos, 3) {
		return game.ErrNotInRange
	}
	if c.energy <= 0 {
		return game.ErrNotEnough
	}
	n := mathx.MinInt(c.rules().BuildPower, mathx.MinInt(c.energy, site.total-site.progress))
	site.progress += n
	c.energy -= n
	return game.OK
}

func (c *Creep) Repair(s game.Structure) game.ReturnCode {
	if rc := c.ready(); rc != game.OK {
		return rc
	}
	st, ok := c.room.world.structure(s.ID())
	if !ok {
		return game.ErrInvalidTarget
	}
	if !c.inRange(st.pos, 3) {
		return game.ErrNotInRange
	}
	if c.energy <= 0 {
		return game.ErrNotEnough
	}
	if st.hits >= st.hitsMax {
		return game.ErrInvalidTarget
	}
	st.hits = mathx.MinInt(st.hitsMax, st.hits+c.rules().RepairPower)
	c.energy--
	return game.OK
}

func (c *Creep) Transfer(s game.Structure) game.ReturnCode {
	if rc := c.ready(); rc != game.OK {
		return rc
	}
	st, ok := c.room.world.structure(s.ID())
	if !ok || !st.hasStore() {
		return game.ErrInvalidTarget
	}
	if !c.inRange(st.pos, 1) {
		return game.ErrNotInRange
	}
	if c.energy <= 0 {
		return game.ErrNotEnough
	}
	if st.EnergyFree() <= 0 {
		return game.ErrFull
	}
	n := mathx.MinInt(c.energy, st.EnergyFree())
	st.energy += n
	c.energy -= n
	return game.OK
}

func (c *Creep) UpgradeController(x game.Controller) game.ReturnCode {
	if rc := c.ready(); rc != game.OK {
		return rc
	}
	ctrl, ok := c.room.world.controller(x.ID())
	if !ok {
		return game.ErrInvalidTarget
	}
	if !c.inRange(ctrl.pos, 3) {
		return game.ErrNotInRange
	}
	if c.energy <= 0 {
		return game.ErrNotEnough
	}
	n := mathx.MinInt(c.rules().UpgradePower, c.energy)
	c.energy -= n
	ctrl.addProgress(n)
	return game.OK
}

func (c *Creep) Attack(x game.Creep) game.ReturnCode {
	if rc := c.ready(); rc != game.OK {
		return rc
	}
	target, ok := c.room.world.creep(x.ID())
	if !ok || target.hits <= 0 {
		return game.ErrInvalidTarget
	}
	if !c.inRange(target.pos, 1) {
		return game.ErrNotInRange
	}
	target.hits = mathx.MaxInt(0, target.hits-c.rules().AttackPower)
	return game.OK
}

func (c *Creep) Heal(x game.Creep) game.ReturnCode {
	if rc := c.ready(); rc != game.OK {
		return rc
	}
	target, ok := c.room.world.creep(x.ID())
	if !ok || target.hits <= 0 {
		return game.ErrInvalidTarget
	}
	if !c.inRange(target.pos, 1) {
		return game.ErrNotInRange
	}
	target.hits = mathx.MinInt(target.hitsMax, target.hits+c.rules().HealPower)
	return game.OK
}

type Source struct {
	id       game.ObjectID
	pos      game.Pos
	energy   int
	capacity int
}

func (s *Source) ID() game.ObjectID   { return s.id }
func (s *Source) Pos() game.Pos       { return s.pos }
func (s *Source) Energy() int         { return s.energy }
func (s *Source) EnergyCapacity() int { return s.capacity }

type Site struct {
	id       game.ObjectID
	pos      game.Pos
	kind     game.StructureType
	progress int
	total    int
}

func (s *Site) ID() game.ObjectID                 { return s.id }
func (s *Site) Pos() game.Pos                     { return s.pos }
func (s *Site) StructureType() game.StructureType { return s.kind }
func (s *Site) Progress() int                     { return s.progress }
func (s *Site) ProgressTotal() int                { return s.total }

// Structure is any owned building. Towers are structures too; the same value
// is listed by Room.Towers.
type Structure struct {
	id       game.ObjectID
	room     *Room
	pos      game.Pos
	kind     game.StructureType
	hits     int
	hitsMax  int
	energy   int
	capacity int
}

func (s *Structure) ID() game.ObjectID                 { return s.id }
func (s *Structure) Pos() game.Pos                     { return s.pos }
func (s *Structure) StructureType() game.StructureType { return s.kind }
func (s *Structure) Hits() int                         { return s.hits }
func (s *Structure) HitsMax() int                      { return s.hitsMax }
func (s *Structure) HasStore() bool                    { return s.hasStore() }
func (s *Structure) EnergyUsed() int                   { return s.energy }
func (s *Structure) EnergyCapacity() int               { return s.capacity }

func (s *Structure) hasStore() bool { return s.capacity > 0 }

func (s *Structure) EnergyFree() int {
	if !s.hasStore() {
		return 0
	}
	return s.capacity - s.energy
}

func (s *Structure) towerReady(cost int) game.ReturnCode {
	if s.kind != game.StructureTower {
		return game.ErrInvalidTarget
	}
	if s.energy < cost {
		return game.ErrNotEnough
	}
	return game.OK
}

func (s *Structure) Attack(x game.Creep) game.ReturnCode {
	r := s.room.world.rules
	if rc := s.towerReady(r.TowerEnergyCost); rc != game.OK {
		return rc
	}
	target, ok := s.room.world.creep(x.ID())
	if !ok || target.hits <= 0 {
		return game.ErrInvalidTarget
	}
	s.energy -= r.TowerEnergyCost
	target.hits = mathx.MaxInt(0, target.hits-r.towerPower(r.TowerAttack, int(s.pos.RangeTo(target.pos))))
	return game.OK
}

func (s *Structure) Heal(x game.Creep) game.ReturnCode {
	r := s.room.world.rules
	if rc := s.towerReady(r.TowerEnergyCost); rc != game.OK {
		return rc
	}
	target, ok := s.room.world.creep(x.ID())
	if !ok || target.hits <= 0 {
		return game.ErrInvalidTarget
	}
	s.energy -= r.TowerEnergyCost
	target.hits = mathx.MinInt(target.hitsMax, target.hits+r.towerPower(r.TowerHeal, int(s.pos.RangeTo(target.pos))))
	return game.OK
}

func (s *Structure) Repair(x game.Structure) game.ReturnCode {
	r := s.room.world.rules
	if rc := s.towerReady(r.TowerEnergyCost); rc != game.OK {
		return rc
	}
	target, ok := s.room.world.structure(x.ID())
	if !ok || target.hits >= target.hitsMax {
		return game.ErrInvalidTarget
	}
	s.energy -= r.TowerEnergyCost
	target.hits = mathx.MinInt(target.hitsMax, target.hits+r.towerPower(r.TowerRepair, int(s.pos.RangeTo(target.pos))))
	return game.OK
}

type Controller struct {
	id       game.ObjectID
	pos      game.Pos
	level    int
	progress int
	perLevel int
}

func (c *Controller) ID() game.ObjectID { return c.id }
func (c *Controller) Pos() game.Pos     { return c.pos }
func (c *Controller) Level() int        { return c.level }
func (c *Controller) Progress() int     { return c.progress }

// ProgressTotal is the progress needed for the next level.
func (c *Controller) ProgressTotal() int {
	return mathx.MaxInt(c.level, 1) * c.perLevel
}

func (c *Controller) addProgress(n int) {
	c.progress += n
	for c.level < 8 && c.progress >= c.ProgressTotal() {
		c.progress -= c.ProgressTotal()
		c.level++
	}
}
