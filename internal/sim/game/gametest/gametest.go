// Package gametest provides hand-wired stand-ins for the game interfaces so
// scheduler packages can be tested one decision at a time.
package gametest

import (
	"fmt"

	"hivecore.ai/internal/sim/game"
)

// Codes maps a command name ("harvest", "move", ...) to the code it returns.
// Commands not present return OK.
type Codes map[string]game.ReturnCode

func (c Codes) of(action string) game.ReturnCode {
	if c == nil {
		return game.OK
	}
	if rc, ok := c[action]; ok {
		return rc
	}
	return game.OK
}

type Creep struct {
	ObjID      game.ObjectID
	Label      string
	At         game.Pos
	Hostile    bool
	IsSpawning bool
	HP         int
	MaxHP      int
	TTL        int // < 0 means unknown
	Energy     int
	Capacity   int

	Codes Codes
	Calls []string
	Moves []game.Pos
}

func (c *Creep) ID() game.ObjectID { return c.ObjID }
func (c *Creep) Pos() game.Pos { return c.At }
func (c *Creep) Name() string { return c.Label }
func (c *Creep) My() bool { return !c.Hostile }
func (c *Creep) Spawning() bool { return c.IsSpawning }
func (c *Creep) Hits() int { return c.HP }
func (c *Creep) HitsMax() int { return c.MaxHP }
func (c *Creep) EnergyUsed() int { return c.Energy }
func (c *Creep) EnergyFree() int { return c.Capacity - c.Energy }
func (c *Creep) EnergyCapacity() int { return c.Capacity }
func (c *Creep) TicksToLive() (int, bool) {
	if c.TTL < 0 {
		return 0, false
	}
	return c.TTL, true
}

func (c *Creep) call(action string, target game.ObjectID) game.ReturnCode {
	c.Calls = append(c.Calls, fmt.Sprintf("%s %s", action, target))
	return c.Codes.of(action)
}

func (c *Creep) Harvest(s game.Source) game.ReturnCode { return c.call("harvest", s.ID()) }
func (c *Creep) Build(s game.Site) game.ReturnCode { return c.call("build", s.ID()) }
func (c *Creep) Repair(s game.Structure) game.ReturnCode { return c.call("repair", s.ID()) }
func (c *Creep) Transfer(s game.Structure) game.ReturnCode { return c.call("transfer", s.ID()) }
func (c *Creep) UpgradeController(x game.Controller) game.ReturnCode {
	return c.call("upgrade", x.ID())
}
func (c *Creep) Attack(x game.Creep) game.ReturnCode { return c.call("attack", x.ID()) }
func (c *Creep) Heal(x game.Creep) game.ReturnCode { return c.call("heal", x.ID()) }
func (c *Creep) MoveTo(p game.Pos) game.ReturnCode {
	c.Moves = append(c.Moves, p)
	return c.call("move", game.ObjectID(p.String()))
}

type Tower struct {
	ObjID    game.ObjectID
	At       game.Pos
	Energy   int
	Capacity int

	Codes Codes
	Calls []string
}

func (t *Tower) ID() game.ObjectID { return t.ObjID }
func (t *Tower) Pos() game.Pos { return t.At }
func (t *Tower) EnergyUsed() int { return t.Energy }
func (t *Tower) EnergyCapacity() int { return t.Capacity }

func (t *Tower) call(action string, target game.ObjectID) game.ReturnCode {
	t.Calls = append(t.Calls, fmt.Sprintf("%s %s", action, target))
	return t.Codes.of(action)
}

func (t *Tower) Attack(c game.Creep) game.ReturnCode { return t.call("attack", c.ID()) }
func (t *Tower) Heal(c game.Creep) game.ReturnCode { return t.call("heal", c.ID()) }
func (t *Tower) Repair(s game.Structure) game.ReturnCode { return t.call("repair", s.ID()) }

type Source struct {
	ObjID    game.ObjectID
	At       game.Pos
	Amount   int
	Capacity int
}

func (s *Source) ID() game.ObjectID { return s.ObjID }
func (s *Source) Pos() game.Pos { return s.At }
func (s *Source) Energy() int { return s.Amount }
func (s *Source) EnergyCapacity() int { return s.Capacity }

type Site struct {
	ObjID game.ObjectID
	At    game.Pos
	Type  game.StructureType
	Done  int
	Total int
}

func (s *Site) ID() game.ObjectID { return s.ObjID }
func (s *Site) Pos() game.Pos { return s.At }
func (s *Site) StructureType() game.StructureType { return s.Type }
func (s *Site) Progress() int { return s.Done }
func (s *Site) ProgressTotal() int { return s.Total }

type Structure struct {
	ObjID    game.ObjectID
	At       game.Pos
	Type     game.StructureType
	HP       int
	MaxHP    int
	Store    bool
	Energy   int
	Capacity int
}

func (s *Structure) ID() game.ObjectID { return s.ObjID }
func (s *Structure) Pos() game.Pos { return s.At }
func (s *Structure) StructureType() game.StructureType { return s.Type }
func (s *Structure) Hits() int { return s.HP }
func (s *Structure) HitsMax() int { return s.MaxHP }
func (s *Structure) HasStore() bool { return s.Store }
func (s *Structure) EnergyUsed() int { return s.Energy }
func (s *Structure) EnergyFree() int {
	if !s.Store {
		return 0
	}
	return s.Capacity - s.Energy
}

type Controller struct {
	ObjID game.ObjectID
	At    game.Pos
	Lvl   int
}

func (c *Controller) ID() game.ObjectID { return c.ObjID }
func (c *Controller) Pos() game.Pos { return c.At }
func (c *Controller) Level() int { return c.Lvl }
func (c *Controller) Progress() int { return 0 }
func (c *Controller) ProgressTotal() int { return 1 }
