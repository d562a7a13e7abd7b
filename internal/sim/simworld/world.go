// Package simworld is a deterministic in-memory world for running the
// scheduler locally. It implements the game interfaces, spawns workers and
// advances one tick per Step.
package simworld

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"hivecore.ai/internal/sim/game"
)

type World struct {
	rules     Rules
	seed      int64
	tick      uint64
	size      int
	maxCreeps int

	rooms []*Room

	nextID  uint64
	spawned int
	ids     map[game.ObjectID]struct{}
	names   map[string]struct{}

	creeps      map[game.ObjectID]*Creep
	sources     map[game.ObjectID]*Source
	sites       map[game.ObjectID]*Site
	structures  map[game.ObjectID]*Structure
	controllers map[game.ObjectID]*Controller
}

type Option func(*World)

func WithRules(r Rules) Option { return func(w *World) { w.rules = r } }

// WithMaxCreeps overrides the per-room population target used by Replenish.
func WithMaxCreeps(n int) Option { return func(w *World) { w.maxCreeps = n } }

func New(sc Scenario, opts ...Option) (*World, error) {
	w := &World{
		rules:       DefaultRules(),
		seed:        sc.Seed,
		tick:        sc.Tick,
		size:        sc.RoomSize,
		ids:         map[game.ObjectID]struct{}{},
		names:       map[string]struct{}{},
		creeps:      map[game.ObjectID]*Creep{},
		sources:     map[game.ObjectID]*Source{},
		sites:       map[game.ObjectID]*Site{},
		structures:  map[game.ObjectID]*Structure{},
		controllers: map[game.ObjectID]*Controller{},
	}
	if w.size == 0 {
		w.size = 50
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.maxCreeps == 0 {
		w.maxCreeps = w.rules.MaxCreepsPerRoom
		if sc.MaxCreeps != nil {
			w.maxCreeps = *sc.MaxCreeps
		}
	}

	seen := map[string]bool{}
	var errs []error
	for i, rs := range sc.Rooms {
		if seen[rs.Name] {
			errs = append(errs, fmt.Errorf("room %s listed twice", rs.Name))
			continue
		}
		seen[rs.Name] = true
		if err := w.addRoom(i, rs); err != nil {
			errs = append(errs, fmt.Errorf("room %s: %w", rs.Name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	sort.Slice(w.rooms, func(i, j int) bool { return w.rooms[i].name < w.rooms[j].name })
	return w, nil
}

func (w *World) addRoom(index int, rs RoomScenario) error {
	r := &Room{world: w, name: rs.Name}
	var errs []error
	check := func(what string, x, y int) game.Pos {
		p := game.Pos{X: x, Y: y}
		if !r.inBounds(p) {
			errs = append(errs, fmt.Errorf("%s at %s is outside the room", what, p))
		}
		return p
	}
	claim := func(id, prefix string) game.ObjectID {
		if id == "" {
			return w.newID(prefix)
		}
		oid := game.ObjectID(id)
		if _, dup := w.ids[oid]; dup {
			errs = append(errs, fmt.Errorf("duplicate id %q", id))
		}
		w.ids[oid] = struct{}{}
		return oid
	}

	var keep []game.Pos
	if c := rs.Controller; c != nil {
		r.ctrl = &Controller{id: claim(c.ID, "ctrl"), pos: check("controller", c.X, c.Y), level: c.Level, perLevel: w.rules.ControllerLevelProgress}
		w.controllers[r.ctrl.id] = r.ctrl
		keep = append(keep, r.ctrl.pos)
	}
	for _, s := range rs.Sources {
		src := &Source{id: claim(s.ID, "src"), pos: check("source", s.X, s.Y), capacity: s.Capacity}
		if src.capacity == 0 {
			src.capacity = w.rules.SourceCapacity
		}
		src.energy = src.capacity
		if s.Energy != nil {
			src.energy = *s.Energy
		}
		r.sources = append(r.sources, src)
		w.sources[src.id] = src
		keep = append(keep, src.pos)
	}
	for _, s := range rs.Structures {
		st := &Structure{
			id:      claim(s.ID, "st"),
			room:    r,
			pos:     check(s.Type, s.X, s.Y),
			kind:    game.StructureType(s.Type),
			hitsMax: s.HitsMax,
			energy:  s.Energy,
		}
		if st.hitsMax == 0 {
			st.hitsMax = defaultHits(s.Type)
		}
		st.hits = st.hitsMax
		if s.Hits != nil {
			st.hits = *s.Hits
		}
		st.capacity = defaultEnergyCapacity(s.Type)
		if s.EnergyCapacity != nil {
			st.capacity = *s.EnergyCapacity
		}
		if st.energy > st.capacity {
			errs = append(errs, fmt.Errorf("%s %s holds %d energy but stores %d", s.Type, st.id, st.energy, st.capacity))
		}
		r.structures = append(r.structures, st)
		w.structures[st.id] = st
		keep = append(keep, st.pos)
	}
	for _, s := range rs.Sites {
		site := &Site{id: claim(s.ID, "site"), pos: check("site", s.X, s.Y), kind: game.StructureType(s.Type), progress: s.Progress, total: s.ProgressTotal}
		if site.total == 0 {
			site.total = defaultHits(s.Type) / 10
		}
		r.sites = append(r.sites, site)
		w.sites[site.id] = site
		keep = append(keep, site.pos)
	}
	for i, cs := range rs.Creeps {
		c := w.creepFrom(r, cs, true, claim(cs.ID, "cr"))
		c.pos = check("creep", cs.X, cs.Y)
		if c.name == "" {
			c.name = rs.Name + "-c" + strconv.Itoa(i+1)
		}
		if _, dup := w.names[c.name]; dup {
			errs = append(errs, fmt.Errorf("duplicate creep name %q", c.name))
		}
		w.addCreep(r, c)
		keep = append(keep, c.pos)
	}
	for _, cs := range rs.Hostiles {
		c := w.creepFrom(r, cs, false, claim(cs.ID, "hostile"))
		c.pos = check("hostile", cs.X, cs.Y)
		r.hostiles = append(r.hostiles, c)
		w.creeps[c.id] = c
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	switch {
	case len(rs.Terrain.Rows) > 0:
		t, err := terrainFromRows(w.size, rs.Terrain.Rows)
		if err != nil {
			return err
		}
		r.terrain = t
	case rs.Terrain.Noise != nil:
		r.terrain = terrainFromNoise(w.size, roomSeed(w.seed, index), *rs.Terrain.Noise, keep)
	default:
		r.terrain = make([]game.Terrain, w.size*w.size)
	}
	w.rooms = append(w.rooms, r)
	return nil
}

func (w *World) creepFrom(r *Room, cs CreepScenario, my bool, id game.ObjectID) *Creep {
	c := &Creep{
		id:       id,
		name:     cs.Name,
		room:     r,
		my:       my,
		hitsMax:  cs.HitsMax,
		energy:   cs.Energy,
		capacity: w.rules.CreepCapacity,
		ttl:      cs.TTL,
	}
	if c.hitsMax == 0 {
		c.hitsMax = w.rules.CreepHits
	}
	c.hits = c.hitsMax
	if cs.Hits != nil {
		c.hits = *cs.Hits
	}
	if cs.Capacity != nil {
		c.capacity = *cs.Capacity
	}
	if c.ttl == 0 {
		c.ttl = w.rules.CreepLifetime
	}
	if c.name == "" && !my {
		c.name = string(id)
	}
	return c
}

func (w *World) newID(prefix string) game.ObjectID {
	for {
		w.nextID++
		id := game.ObjectID(prefix + strconv.FormatUint(w.nextID, 36))
		if _, taken := w.ids[id]; !taken {
			w.ids[id] = struct{}{}
			return id
		}
	}
}

func (w *World) addCreep(r *Room, c *Creep) {
	r.creeps = append(r.creeps, c)
	w.creeps[c.id] = c
	w.names[c.name] = struct{}{}
}

// forget drops a dead or finished entity from the id index.
func (w *World) forget(id game.ObjectID) {
	if c, ok := w.creeps[id]; ok && c.my {
		delete(w.names, c.name)
	}
	delete(w.creeps, id)
	delete(w.sites, id)
	delete(w.structures, id)
}

func (w *World) Time() uint64 { return w.tick }

func (w *World) Rooms() []game.Room {
	out := make([]game.Room, 0, len(w.rooms))
	for _, r := range w.rooms {
		out = append(out, r)
	}
	return out
}

// Room returns the named room.
func (w *World) Room(name string) (*Room, bool) {
	for _, r := range w.rooms {
		if r.name == name {
			return r, true
		}
	}
	return nil, false
}

func (w *World) CreepNames() []string {
	var names []string
	for _, r := range w.rooms {
		for _, c := range r.creeps {
			names = append(names, c.name)
		}
	}
	sort.Strings(names)
	return names
}

func (w *World) creep(id game.ObjectID) (*Creep, bool) {
	c, ok := w.creeps[id]
	return c, ok
}

func (w *World) source(id game.ObjectID) (*Source, bool) {
	s, ok := w.sources[id]
	return s, ok
}

func (w *World) site(id game.ObjectID) (*Site, bool) {
	s, ok := w.sites[id]
	return s, ok
}

func (w *World) structure(id game.ObjectID) (*Structure, bool) {
	s, ok := w.structures[id]
	return s, ok
}

func (w *World) controller(id game.ObjectID) (*Controller, bool) {
	c, ok := w.controllers[id]
	return c, ok
}

func (w *World) CreepByID(id game.ObjectID) (game.Creep, bool) {
	if c, ok := w.creeps[id]; ok {
		return c, true
	}
	return nil, false
}

func (w *World) SiteByID(id game.ObjectID) (game.Site, bool) {
	if s, ok := w.sites[id]; ok {
		return s, true
	}
	return nil, false
}

func (w *World) SourceByID(id game.ObjectID) (game.Source, bool) {
	if s, ok := w.sources[id]; ok {
		return s, true
	}
	return nil, false
}

func (w *World) StructureByID(id game.ObjectID) (game.Structure, bool) {
	if s, ok := w.structures[id]; ok {
		return s, true
	}
	return nil, false
}

func (w *World) ControllerByID(id game.ObjectID) (game.Controller, bool) {
	if c, ok := w.controllers[id]; ok {
		return c, true
	}
	return nil, false
}

// Step advances the world by one tick: spawning, lifetimes, completed
// construction and source regeneration.
func (w *World) Step() {
	w.tick++
	for _, r := range w.rooms {
		r.step(w.tick)
	}
}

// Replenish spawns workers in every room below the population target.
func (w *World) Replenish(tick uint64) error {
	var errs []error
	for _, r := range w.rooms {
		for _, sp := range r.structures {
			if len(r.creeps) >= w.maxCreeps {
				break
			}
			if sp.kind != game.StructureSpawn {
				continue
			}
			switch rc := r.spawnCreep(sp); rc {
			case game.OK, game.ErrBusy, game.ErrNotEnough:
			default:
				errs = append(errs, fmt.Errorf("tick %d room %s spawn %s: %s", tick, r.name, sp.id, rc))
			}
		}
	}
	return errors.Join(errs...)
}

// RoomStats is a summary of one room for reporting.
type RoomStats struct {
	Room               string `json:"room"`
	Creeps             int    `json:"creeps"`
	Hostiles           int    `json:"hostiles"`
	Sites              int    `json:"sites"`
	EnergyAvailable    int    `json:"energy_available"`
	ControllerLevel    int    `json:"controller_level"`
	ControllerProgress int    `json:"controller_progress"`
}

func (w *World) Stats() []RoomStats {
	out := make([]RoomStats, 0, len(w.rooms))
	for _, r := range w.rooms {
		s := RoomStats{
			Room:            r.name,
			Creeps:          len(r.creeps),
			Hostiles:        len(r.hostiles),
			Sites:           len(r.sites),
			EnergyAvailable: r.EnergyAvailable(),
		}
		if r.ctrl != nil {
			s.ControllerLevel = r.ctrl.level
			s.ControllerProgress = r.ctrl.progress
		}
		out = append(out, s)
	}
	return out
}
