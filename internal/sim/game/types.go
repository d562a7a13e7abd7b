// Package game describes the world query and command layer the scheduler runs against.
// Implementations live outside the scheduler (the real host, or simworld for local runs).
package game

import (
	"fmt"

	"hivecore.ai/internal/sim/mathx"
)

// ObjectID is an opaque, re-resolvable reference to a world entity.
type ObjectID string

type Pos struct{ X, Y int }

func (p Pos) RangeTo(o Pos) uint32 {
	return uint32(mathx.Chebyshev(p.X, p.Y, o.X, o.Y))
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

type Terrain uint8

const (
	TerrainPlain Terrain = iota
	TerrainSwamp
	TerrainWall
)

func (t Terrain) String() string {
	switch t {
	case TerrainPlain:
		return "plain"
	case TerrainSwamp:
		return "swamp"
	case TerrainWall:
		return "wall"
	default:
		return fmt.Sprintf("terrain(%d)", uint8(t))
	}
}

type StructureType string

const (
	StructureSpawn      StructureType = "spawn"
	StructureExtension  StructureType = "extension"
	StructureTower      StructureType = "tower"
	StructureRoad       StructureType = "road"
	StructureWall       StructureType = "constructedWall"
	StructureRampart    StructureType = "rampart"
	StructureContainer  StructureType = "container"
	StructureController StructureType = "controller"
)

// StoresEnergy reports whether the structure type is one workers keep filled.
func (t StructureType) StoresEnergy() bool {
	switch t {
	case StructureSpawn, StructureExtension, StructureTower:
		return true
	default:
		return false
	}
}
