package simworld

import "hivecore.ai/internal/sim/game"

// Fixed order keeps path choice deterministic.
var directions = [8]game.Pos{
	{X: 0, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 0}, {X: 1, Y: 1},
	{X: 0, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: 0}, {X: -1, Y: -1},
}

func (c *Creep) MoveTo(p game.Pos) game.ReturnCode {
	if rc := c.ready(); rc != game.OK {
		return rc
	}
	if c.fatigue > 0 {
		return game.ErrTired
	}
	if c.pos == p || c.moved {
		return game.OK
	}
	next, ok := c.room.nextStep(c.pos, p)
	if !ok {
		return game.ErrNoPath
	}
	if next == c.pos {
		return game.OK
	}
	c.pos = next
	c.moved = true
	if c.room.terrainAt(next) == game.TerrainSwamp {
		c.fatigue = 2
	}
	return game.OK
}

// nextStep runs a breadth-first search from from towards to and returns the
// first tile of a shortest path, or from itself when already there. A wall
// target is reached by any tile next to it.
func (r *Room) nextStep(from, to game.Pos) (game.Pos, bool) {
	goal := func(p game.Pos) bool { return p == to }
	if !r.walkable(to) {
		goal = func(p game.Pos) bool { return p.RangeTo(to) <= 1 }
	}
	if goal(from) {
		return from, true
	}

	size := r.world.size
	parent := make([]int, size*size)
	for i := range parent {
		parent[i] = -1
	}
	start := from.Y*size + from.X
	parent[start] = start
	queue := []game.Pos{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range directions {
			n := game.Pos{X: cur.X + d.X, Y: cur.Y + d.Y}
			if !r.walkable(n) {
				continue
			}
			idx := n.Y*size + n.X
			if parent[idx] >= 0 {
				continue
			}
			parent[idx] = cur.Y*size + cur.X
			if goal(n) {
				for parent[idx] != start {
					idx = parent[idx]
				}
				return game.Pos{X: idx % size, Y: idx / size}, true
			}
			queue = append(queue, n)
		}
	}
	return from, false
}
