package simworld

import (
	"fmt"

	"github.com/ojrac/opensimplex-go"

	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/mathx"
)

const (
	defaultNoiseScale     = 0.11
	defaultWallThreshold  = 0.68
	defaultSwampThreshold = 0.60
	defaultClearRadius    = 1
)

func terrainFromRows(size int, rows []string) ([]game.Terrain, error) {
	if len(rows) != size {
		return nil, fmt.Errorf("terrain has %d rows, want %d", len(rows), size)
	}
	out := make([]game.Terrain, size*size)
	for y, row := range rows {
		if len(row) != size {
			return nil, fmt.Errorf("terrain row %d has %d tiles, want %d", y, len(row), size)
		}
		for x := 0; x < size; x++ {
			switch row[x] {
			case '#':
				out[y*size+x] = game.TerrainWall
			case '~':
				out[y*size+x] = game.TerrainSwamp
			}
		}
	}
	return out, nil
}

// terrainFromNoise lays out walls and swamps from seeded OpenSimplex noise.
// The room edge is always wall and tiles within clear of any keep position
// are always plain.
func terrainFromNoise(size int, seed int64, n NoiseScenario, keep []game.Pos) []game.Terrain {
	scale := n.Scale
	if scale == 0 {
		scale = defaultNoiseScale
	}
	wall := n.WallThreshold
	if wall == 0 {
		wall = defaultWallThreshold
	}
	swamp := n.SwampThreshold
	if swamp == 0 {
		swamp = defaultSwampThreshold
	}
	clear := defaultClearRadius
	if n.ClearRadius != nil {
		clear = *n.ClearRadius
	}

	noise := opensimplex.NewNormalized(seed)
	out := make([]game.Terrain, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x == 0 || y == 0 || x == size-1 || y == size-1 {
				out[y*size+x] = game.TerrainWall
				continue
			}
			v := noise.Eval2(float64(x)*scale, float64(y)*scale)
			switch {
			case v >= wall:
				out[y*size+x] = game.TerrainWall
			case v >= swamp:
				out[y*size+x] = game.TerrainSwamp
			}
		}
	}
	for _, p := range keep {
		for y := mathx.MaxInt(1, p.Y-clear); y <= mathx.MinInt(size-2, p.Y+clear); y++ {
			for x := mathx.MaxInt(1, p.X-clear); x <= mathx.MinInt(size-2, p.X+clear); x++ {
				out[y*size+x] = game.TerrainPlain
			}
		}
	}
	return out
}

// roomSeed derives a per-room noise seed so rooms sharing a scenario seed
// still differ.
func roomSeed(seed int64, index int) int64 {
	return int64(mathx.Hash2(seed, index, 0x5eed))
}
