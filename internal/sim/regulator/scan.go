package regulator

import (
	"fmt"

	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/jobs"
	"hivecore.ai/internal/sim/mathx"
)

type scanner struct {
	name string
	fn   func(*Regulator, jobs.Pool) (jobs.Pool, error)
}

// Fixed order; ties in the assignment score fall back to pool order.
var scanners = []scanner{
	{"attack", (*Regulator).scanAttack},
	{"build", (*Regulator).scanBuild},
	{"harvest", (*Regulator).scanHarvest},
	{"heal", (*Regulator).scanHeal},
	{"maintain", (*Regulator).scanMaintain},
	{"repair", (*Regulator).scanRepair},
	{"upgrade", (*Regulator).scanUpgrade},
}

// Scan rebuilds the offer pool from the room. The new pool replaces the old
// one only if every scanner succeeds.
func (r *Regulator) Scan(now uint64) error {
	pool := jobs.Pool{}
	for _, s := range scanners {
		var err error
		if pool, err = s.fn(r, pool); err != nil {
			return fmt.Errorf("scan %s in %s: %w", s.name, r.name, err)
		}
	}
	r.pool = pool
	r.scanned = true
	r.lastScan = now
	return nil
}

// FreeSpots counts the non-wall tiles within rng of p, clipped to the room.
func (r *Regulator) FreeSpots(p game.Pos, rng int) (uint32, error) {
	last := r.tune.RoomSize - 1
	top := mathx.Clamp(p.Y-rng, 0, last)
	left := mathx.Clamp(p.X-rng, 0, last)
	bottom := mathx.Clamp(p.Y+rng, 0, last)
	right := mathx.Clamp(p.X+rng, 0, last)

	tiles, err := r.room.LookTerrainArea(top, left, bottom, right)
	if err != nil {
		return 0, fmt.Errorf("terrain around %s: %w", p, err)
	}
	var n uint32
	for _, t := range tiles {
		if t != game.TerrainWall {
			n++
		}
	}
	return n, nil
}

func (r *Regulator) scanAttack(pool jobs.Pool) (jobs.Pool, error) {
	for _, c := range r.room.Hostiles() {
		pool = append(pool, jobs.NewOffer(jobs.Attack(c), r.tune.AttackPlaces))
	}
	return pool, nil
}

func (r *Regulator) scanBuild(pool jobs.Pool) (jobs.Pool, error) {
	for _, s := range r.room.Sites() {
		n, err := r.FreeSpots(s.Pos(), r.tune.Ranges.Build)
		if err != nil {
			return nil, err
		}
		pool = append(pool, jobs.NewOffer(jobs.Build(s), n))
	}
	return pool, nil
}

func (r *Regulator) scanHarvest(pool jobs.Pool) (jobs.Pool, error) {
	for _, s := range r.room.Sources() {
		if s.Energy() <= 0 {
			continue
		}
		n, err := r.FreeSpots(s.Pos(), r.tune.Ranges.Harvest)
		if err != nil {
			return nil, err
		}
		pool = append(pool, jobs.NewOffer(jobs.Harvest(s), n))
	}
	return pool, nil
}

func (r *Regulator) scanHeal(pool jobs.Pool) (jobs.Pool, error) {
	for _, c := range r.room.MyCreeps() {
		if c.Hits() < c.HitsMax() {
			pool = append(pool, jobs.NewOffer(jobs.Heal(c), r.tune.HealPlaces))
		}
	}
	return pool, nil
}

func (r *Regulator) scanMaintain(pool jobs.Pool) (jobs.Pool, error) {
	for _, s := range r.room.Structures() {
		if !s.StructureType().StoresEnergy() || !s.HasStore() || s.EnergyFree() <= 0 {
			continue
		}
		n, err := r.FreeSpots(s.Pos(), r.tune.Ranges.Transfer)
		if err != nil {
			return nil, err
		}
		pool = append(pool, jobs.NewOffer(jobs.Maintain(s), n))
	}
	return pool, nil
}

func (r *Regulator) scanRepair(pool jobs.Pool) (jobs.Pool, error) {
	limit := r.room.EnergyCapacityAvailable() * r.tune.RepairMultiplier
	for _, s := range r.room.Structures() {
		hits := s.Hits()
		if hits > 0 && hits < s.HitsMax() && hits < limit {
			pool = append(pool, jobs.NewOffer(jobs.Repair(s), r.tune.RepairPlaces))
		}
	}
	return pool, nil
}

func (r *Regulator) scanUpgrade(pool jobs.Pool) (jobs.Pool, error) {
	ctrl, ok := r.room.Controller()
	if !ok {
		return pool, nil
	}
	n, err := r.FreeSpots(ctrl.Pos(), r.tune.Ranges.Upgrade)
	if err != nil {
		return nil, err
	}
	return append(pool, jobs.NewOffer(jobs.Upgrade(ctrl), n)), nil
}
