package gametest

import (
	"sort"

	"hivecore.ai/internal/sim/game"
)

// Room is a fixed room. Walls lists impassable tiles; everything else is plain.
type Room struct {
	Label       string
	Size        int
	Walls       map[game.Pos]bool
	Creeps      []*Creep
	Enemies     []*Creep
	SiteList    []*Site
	SourceList  []*Source
	Structs     []*Structure
	TowerList   []*Tower
	Ctrl        *Controller
	EnergyCap   int
	TerrainErr  error
	TerrainHits int
}

func (r *Room) Name() string { return r.Label }

func (r *Room) MyCreeps() []game.Creep {
	out := make([]game.Creep, 0, len(r.Creeps))
	for _, c := range r.Creeps {
		out = append(out, c)
	}
	return out
}

func (r *Room) Hostiles() []game.Creep {
	out := make([]game.Creep, 0, len(r.Enemies))
	for _, c := range r.Enemies {
		out = append(out, c)
	}
	return out
}

func (r *Room) Sites() []game.Site {
	out := make([]game.Site, 0, len(r.SiteList))
	for _, s := range r.SiteList {
		out = append(out, s)
	}
	return out
}

func (r *Room) Sources() []game.Source {
	out := make([]game.Source, 0, len(r.SourceList))
	for _, s := range r.SourceList {
		out = append(out, s)
	}
	return out
}

func (r *Room) Structures() []game.Structure {
	out := make([]game.Structure, 0, len(r.Structs))
	for _, s := range r.Structs {
		out = append(out, s)
	}
	return out
}

func (r *Room) Towers() []game.Tower {
	out := make([]game.Tower, 0, len(r.TowerList))
	for _, t := range r.TowerList {
		out = append(out, t)
	}
	return out
}

func (r *Room) Controller() (game.Controller, bool) {
	if r.Ctrl == nil {
		return nil, false
	}
	return r.Ctrl, true
}

func (r *Room) EnergyCapacityAvailable() int { return r.EnergyCap }

func (r *Room) LookTerrainArea(top, left, bottom, right int) ([]game.Terrain, error) {
	r.TerrainHits++
	if r.TerrainErr != nil {
		return nil, r.TerrainErr
	}
	out := make([]game.Terrain, 0, (bottom-top+1)*(right-left+1))
	for y := top; y <= bottom; y++ {
		for x := left; x <= right; x++ {
			if r.Walls[game.Pos{X: x, Y: y}] {
				out = append(out, game.TerrainWall)
			} else {
				out = append(out, game.TerrainPlain)
			}
		}
	}
	return out, nil
}

// World resolves entities across its rooms by id.
type World struct {
	Tick     uint64
	RoomList []*Room
	Gone     map[game.ObjectID]bool
}

func NewWorld(rooms ...*Room) *World {
	return &World{RoomList: rooms, Gone: map[game.ObjectID]bool{}}
}

func (w *World) Time() uint64 { return w.Tick }

func (w *World) Rooms() []game.Room {
	out := make([]game.Room, 0, len(w.RoomList))
	for _, r := range w.RoomList {
		out = append(out, r)
	}
	return out
}

func (w *World) CreepNames() []string {
	var names []string
	for _, r := range w.RoomList {
		for _, c := range r.Creeps {
			names = append(names, c.Label)
		}
	}
	sort.Strings(names)
	return names
}

func (w *World) CreepByID(id game.ObjectID) (game.Creep, bool) {
	if w.Gone[id] {
		return nil, false
	}
	for _, r := range w.RoomList {
		for _, c := range r.Creeps {
			if c.ObjID == id {
				return c, true
			}
		}
		for _, c := range r.Enemies {
			if c.ObjID == id {
				return c, true
			}
		}
	}
	return nil, false
}

func (w *World) SiteByID(id game.ObjectID) (game.Site, bool) {
	if w.Gone[id] {
		return nil, false
	}
	for _, r := range w.RoomList {
		for _, s := range r.SiteList {
			if s.ObjID == id {
				return s, true
			}
		}
	}
	return nil, false
}

func (w *World) SourceByID(id game.ObjectID) (game.Source, bool) {
	if w.Gone[id] {
		return nil, false
	}
	for _, r := range w.RoomList {
		for _, s := range r.SourceList {
			if s.ObjID == id {
				return s, true
			}
		}
	}
	return nil, false
}

func (w *World) StructureByID(id game.ObjectID) (game.Structure, bool) {
	if w.Gone[id] {
		return nil, false
	}
	for _, r := range w.RoomList {
		for _, s := range r.Structs {
			if s.ObjID == id {
				return s, true
			}
		}
	}
	return nil, false
}

func (w *World) ControllerByID(id game.ObjectID) (game.Controller, bool) {
	if w.Gone[id] {
		return nil, false
	}
	for _, r := range w.RoomList {
		if r.Ctrl != nil && r.Ctrl.ObjID == id {
			return r.Ctrl, true
		}
	}
	return nil, false
}
