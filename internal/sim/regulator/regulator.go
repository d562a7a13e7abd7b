// Package regulator runs one room's scan-and-distribute cycle: it rebuilds the
// room's offer pool on a cadence and hands every live unit its turn against it.
package regulator

import (
	"io"
	"log"
	"sort"

	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/jobs"
	"hivecore.ai/internal/sim/memory"
	"hivecore.ai/internal/sim/tuning"
	"hivecore.ai/internal/sim/units"
)

type Regulator struct {
	name     string
	room     game.Room
	resolver game.Resolver
	tune     tuning.Tuning
	params   units.Params
	mem      memory.Store
	log      *log.Logger

	creeps map[string]*units.Creep
	towers map[game.ObjectID]*units.Tower

	pool     jobs.Pool
	scanned  bool
	lastScan uint64
}

func New(room game.Room, resolver game.Resolver, tune tuning.Tuning, mem memory.Store, logger *log.Logger) *Regulator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Regulator{
		name:     room.Name(),
		room:     room,
		resolver: resolver,
		tune:     tune,
		params:   units.ParamsFrom(tune),
		mem:      mem,
		log:      logger,
		creeps:   map[string]*units.Creep{},
		towers:   map[game.ObjectID]*units.Tower{},
	}
}

func (r *Regulator) Name() string { return r.name }

// SetRoom swaps in this tick's room and resolver handles.
func (r *Regulator) SetRoom(room game.Room, resolver game.Resolver) {
	r.room = room
	r.resolver = resolver
}

// Offers is the pool units currently assign against. It is shared, not copied.
func (r *Regulator) Offers() jobs.Pool { return r.pool }

// ScanDue reports whether the pool is missing or older than ScanEveryTicks.
func (r *Regulator) ScanDue(now uint64) bool {
	if !r.scanned || now < r.lastScan {
		return true
	}
	return now-r.lastScan >= uint64(r.tune.ScanEveryTicks)
}

// Tick scans when due and then distributes. A failed scan skips distribution
// for this tick and leaves the previous pool in place.
func (r *Regulator) Tick(now uint64) RoomReport {
	if r.ScanDue(now) {
		if err := r.Scan(now); err != nil {
			r.log.Printf("scan failed, skipping distribution: %v", err)
			rep := r.report(now)
			rep.ScanErr = err.Error()
			return rep
		}
		rep := r.Distribute(now)
		rep.Scanned = true
		return rep
	}
	return r.Distribute(now)
}

// Distribute gives every live creep, then every tower, its turn. Units are
// visited in name/id order so the pool is consumed deterministically.
func (r *Regulator) Distribute(now uint64) RoomReport {
	rep := r.report(now)

	live := r.room.MyCreeps()
	sort.Slice(live, func(i, j int) bool { return live[i].Name() < live[j].Name() })
	seen := make(map[string]bool, len(live))
	for _, c := range live {
		seen[c.Name()] = true
		u, ok := r.creeps[c.Name()]
		if ok {
			u.SetCreep(c)
		} else {
			u = units.NewCreep(c, r.mem, r.resolver, r.params, r.log)
			r.creeps[c.Name()] = u
		}
		res, err := u.SelectJob(r.resolver, r.pool)
		rep.Units = append(rep.Units, r.unitReport(c.Name(), UnitCreep, res, err))
	}
	for name := range r.creeps {
		if !seen[name] {
			delete(r.creeps, name)
		}
	}

	towers := r.room.Towers()
	sort.Slice(towers, func(i, j int) bool { return towers[i].ID() < towers[j].ID() })
	seenTowers := make(map[game.ObjectID]bool, len(towers))
	for _, t := range towers {
		seenTowers[t.ID()] = true
		u, ok := r.towers[t.ID()]
		if ok {
			u.SetTower(t)
		} else {
			u = units.NewTower(t, r.params)
			r.towers[t.ID()] = u
		}
		res, err := u.SelectJob(r.resolver, r.pool)
		rep.Units = append(rep.Units, r.unitReport(string(t.ID()), UnitTower, res, err))
	}
	for id := range r.towers {
		if !seenTowers[id] {
			delete(r.towers, id)
		}
	}

	rep.OpenPlaces = openPlaces(r.pool)
	return rep
}

func (r *Regulator) unitReport(name string, kind UnitKind, res units.Result, err error) UnitReport {
	ur := UnitReport{Unit: name, UnitKind: kind, Action: res.Action}
	if res.HasJob() {
		ur.Job = res.Job.Kind().String()
		ur.Target = res.Job.Target()
	}
	if err != nil {
		r.log.Printf("%s %s: %v", kind, name, err)
		ur.Err = err.Error()
	}
	return ur
}

func (r *Regulator) report(now uint64) RoomReport {
	return RoomReport{Room: r.name, Tick: now, Offers: len(r.pool)}
}

// HeldJobs lists every unit currently holding a job, creeps first, each group
// sorted.
func (r *Regulator) HeldJobs() []HeldJob {
	var out []HeldJob
	names := make([]string, 0, len(r.creeps))
	for name := range r.creeps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if j, ok := r.creeps[name].Job(); ok {
			out = append(out, HeldJob{Unit: name, UnitKind: UnitCreep, Job: j})
		}
	}
	ids := make([]string, 0, len(r.towers))
	for id := range r.towers {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		if j, ok := r.towers[game.ObjectID(id)].Job(); ok {
			out = append(out, HeldJob{Unit: id, UnitKind: UnitTower, Job: j})
		}
	}
	return out
}

// RestoreJobs hands held jobs back to units that are alive in the current
// room. Jobs whose unit or target is gone are dropped; the count restored is
// returned.
func (r *Regulator) RestoreJobs(held []HeldJob) int {
	creeps := map[string]game.Creep{}
	for _, c := range r.room.MyCreeps() {
		creeps[c.Name()] = c
	}
	towers := map[game.ObjectID]game.Tower{}
	for _, t := range r.room.Towers() {
		towers[t.ID()] = t
	}

	n := 0
	for _, h := range held {
		if !h.Job.Resolves(r.resolver) {
			continue
		}
		switch h.UnitKind {
		case UnitCreep:
			c, ok := creeps[h.Unit]
			if !ok {
				continue
			}
			u, ok := r.creeps[h.Unit]
			if !ok {
				u = units.NewCreep(c, r.mem, r.resolver, r.params, r.log)
				r.creeps[h.Unit] = u
			}
			u.Restore(h.Job)
			n++
		case UnitTower:
			t, ok := towers[game.ObjectID(h.Unit)]
			if !ok {
				continue
			}
			u, ok := r.towers[t.ID()]
			if !ok {
				u = units.NewTower(t, r.params)
				r.towers[t.ID()] = u
			}
			if err := u.Restore(h.Job); err != nil {
				r.log.Printf("restore: %v", err)
				continue
			}
			n++
		}
	}
	return n
}
