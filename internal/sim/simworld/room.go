package simworld

import (
	"fmt"

	"hivecore.ai/internal/sim/game"
)

// Room implements game.Room over the world's state.
type Room struct {
	world   *World
	name    string
	terrain []game.Terrain

	creeps     []*Creep
	hostiles   []*Creep
	sites      []*Site
	sources    []*Source
	structures []*Structure
	ctrl       *Controller
}

func (r *Room) Name() string { return r.name }

func (r *Room) MyCreeps() []game.Creep {
	out := make([]game.Creep, 0, len(r.creeps))
	for _, c := range r.creeps {
		out = append(out, c)
	}
	return out
}

func (r *Room) Hostiles() []game.Creep {
	out := make([]game.Creep, 0, len(r.hostiles))
	for _, c := range r.hostiles {
		out = append(out, c)
	}
	return out
}

func (r *Room) Sites() []game.Site {
	out := make([]game.Site, 0, len(r.sites))
	for _, s := range r.sites {
		out = append(out, s)
	}
	return out
}

func (r *Room) Sources() []game.Source {
	out := make([]game.Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	return out
}

func (r *Room) Structures() []game.Structure {
	out := make([]game.Structure, 0, len(r.structures))
	for _, s := range r.structures {
		out = append(out, s)
	}
	return out
}

func (r *Room) Towers() []game.Tower {
	var out []game.Tower
	for _, s := range r.structures {
		if s.kind == game.StructureTower {
			out = append(out, s)
		}
	}
	return out
}

func (r *Room) Controller() (game.Controller, bool) {
	if r.ctrl == nil {
		return nil, false
	}
	return r.ctrl, true
}

// EnergyCapacityAvailable sums the stores of spawns and extensions.
func (r *Room) EnergyCapacityAvailable() int {
	n := 0
	for _, s := range r.structures {
		if s.kind == game.StructureSpawn || s.kind == game.StructureExtension {
			n += s.capacity
		}
	}
	return n
}

func (r *Room) EnergyAvailable() int {
	n := 0
	for _, s := range r.structures {
		if s.kind == game.StructureSpawn || s.kind == game.StructureExtension {
			n += s.energy
		}
	}
	return n
}

func (r *Room) LookTerrainArea(top, left, bottom, right int) ([]game.Terrain, error) {
	size := r.world.size
	if top < 0 || left < 0 || bottom >= size || right >= size || top > bottom || left > right {
		return nil, fmt.Errorf("room %s: area %d,%d..%d,%d outside 0..%d", r.name, left, top, right, bottom, size-1)
	}
	out := make([]game.Terrain, 0, (bottom-top+1)*(right-left+1))
	for y := top; y <= bottom; y++ {
		out = append(out, r.terrain[y*size+left:y*size+right+1]...)
	}
	return out, nil
}

func (r *Room) inBounds(p game.Pos) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < r.world.size && p.Y < r.world.size
}

func (r *Room) terrainAt(p game.Pos) game.Terrain {
	if !r.inBounds(p) {
		return game.TerrainWall
	}
	return r.terrain[p.Y*r.world.size+p.X]
}

func (r *Room) walkable(p game.Pos) bool { return r.terrainAt(p) != game.TerrainWall }

func (r *Room) step(tick uint64) {
	rules := r.world.rules

	alive := r.creeps[:0]
	for _, c := range r.creeps {
		switch {
		case c.spawnLeft > 0:
			c.spawnLeft--
			if c.spawnLeft == 0 {
				c.ttl = rules.CreepLifetime
			}
		default:
			c.ttl--
		}
		if c.fatigue > 0 {
			c.fatigue--
		}
		c.moved = false
		if c.hits <= 0 || (!c.Spawning() && c.ttl <= 0) {
			r.world.forget(c.id)
			continue
		}
		alive = append(alive, c)
	}
	r.creeps = alive

	hostiles := r.hostiles[:0]
	for _, c := range r.hostiles {
		if c.hits <= 0 {
			r.world.forget(c.id)
			continue
		}
		hostiles = append(hostiles, c)
	}
	r.hostiles = hostiles

	sites := r.sites[:0]
	for _, s := range r.sites {
		if s.progress < s.total {
			sites = append(sites, s)
			continue
		}
		r.world.forget(s.id)
		st := &Structure{
			id:       r.world.newID("st"),
			room:     r,
			pos:      s.pos,
			kind:     s.kind,
			hits:     defaultHits(string(s.kind)),
			hitsMax:  defaultHits(string(s.kind)),
			capacity: defaultEnergyCapacity(string(s.kind)),
		}
		r.structures = append(r.structures, st)
		r.world.structures[st.id] = st
	}
	r.sites = sites

	if rules.SourceRegenTicks > 0 && tick%uint64(rules.SourceRegenTicks) == 0 {
		for _, s := range r.sources {
			s.energy = s.capacity
		}
	}
}

// spawnCreep starts a new worker at spawn sp.
func (r *Room) spawnCreep(sp *Structure) game.ReturnCode {
	rules := r.world.rules
	for _, c := range r.creeps {
		if c.Spawning() && c.pos == sp.pos {
			return game.ErrBusy
		}
	}
	if sp.energy < rules.CreepCost {
		return game.ErrNotEnough
	}
	name := fmt.Sprintf("%s-w%d", r.name, r.world.spawned+1)
	if _, taken := r.world.names[name]; taken {
		return game.ErrNameExists
	}
	sp.energy -= rules.CreepCost
	r.world.spawned++
	c := &Creep{
		id:        r.world.newID("cr"),
		name:      name,
		room:      r,
		pos:       sp.pos,
		my:        true,
		hits:      rules.CreepHits,
		hitsMax:   rules.CreepHits,
		capacity:  rules.CreepCapacity,
		spawnLeft: rules.SpawnTicks,
	}
	if c.spawnLeft <= 0 {
		c.ttl = rules.CreepLifetime
	}
	r.world.addCreep(r, c)
	return game.OK
}
