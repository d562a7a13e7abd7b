// Package gameloop is the host-facing entry point. A Loop owns one regulator
// per visible room and runs them once per Tick.
package gameloop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"hivecore.ai/internal/persistence/snapshot"
	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/jobs"
	"hivecore.ai/internal/sim/memory"
	"hivecore.ai/internal/sim/regulator"
	"hivecore.ai/internal/sim/tuning"
)

// TickLogEntry records every decision made on one tick.
type TickLogEntry struct {
	Tick   uint64                 `json:"tick"`
	Digest string                 `json:"digest"`
	Rooms  []regulator.RoomReport `json:"rooms"`
}

type TickSink interface {
	WriteTick(entry TickLogEntry) error
}

// Spawner keeps the creep population topped up. Spawning is not a scheduler
// decision; the loop only gives the host a hook before each tick.
type Spawner interface {
	Replenish(tick uint64) error
}

// Stepper is implemented by hosts that advance their own world after each
// tick's commands are issued.
type Stepper interface {
	Step()
}

type Config struct {
	Game    game.Game
	Tuning  tuning.Tuning
	Memory  memory.Store
	Spawner Spawner
	Sinks   []TickSink
	Logger  *log.Logger
}

type Loop struct {
	game    game.Game
	tune    tuning.Tuning
	mem     memory.Store
	spawner Spawner
	sinks   []TickSink
	log     *log.Logger

	snapshotSink chan<- snapshot.SnapshotV1

	regs    map[string]*regulator.Regulator
	pending map[string][]regulator.HeldJob
	last    TickLogEntry
	closed  bool
}

func New(cfg Config) (*Loop, error) {
	if cfg.Game == nil {
		return nil, errors.New("gameloop: nil game")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("gameloop: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	mem := cfg.Memory
	if mem == nil {
		mem = memory.NewMemStore()
	}
	return &Loop{
		game:    cfg.Game,
		tune:    cfg.Tuning,
		mem:     mem,
		spawner: cfg.Spawner,
		sinks:   append([]TickSink(nil), cfg.Sinks...),
		log:     logger,
		regs:    map[string]*regulator.Regulator{},
		pending: map[string][]regulator.HeldJob{},
	}, nil
}

func (l *Loop) AddSink(s TickSink) { l.sinks = append(l.sinks, s) }

// SetSnapshotSink enables periodic snapshots. Sends never block the tick; a
// full channel drops that snapshot.
func (l *Loop) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { l.snapshotSink = ch }

// Last is the entry produced by the most recent Tick.
func (l *Loop) Last() TickLogEntry { return l.last }

func (l *Loop) Regulator(room string) (*regulator.Regulator, bool) {
	g, ok := l.regs[room]
	return g, ok
}

// Tick runs one game tick. Failures are logged; nothing is returned to the
// host.
func (l *Loop) Tick() {
	if l.closed {
		return
	}
	now := l.game.Time()

	if l.spawner != nil {
		if err := l.spawner.Replenish(now); err != nil {
			l.log.Printf("tick %d: spawn: %v", now, err)
		}
	}

	rooms := l.game.Rooms()
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name() < rooms[j].Name() })

	visible := make(map[string]bool, len(rooms))
	reports := make([]regulator.RoomReport, 0, len(rooms))
	for _, room := range rooms {
		name := room.Name()
		visible[name] = true
		g, ok := l.regs[name]
		if !ok {
			g = regulator.New(room, l.game, l.tune, l.mem, l.roomLogger(name))
			l.regs[name] = g
		} else {
			g.SetRoom(room, l.game)
		}
		if held, ok := l.pending[name]; ok {
			n := g.RestoreJobs(held)
			l.log.Printf("room %s: restored %d of %d held jobs", name, n, len(held))
			delete(l.pending, name)
		}
		reports = append(reports, g.Tick(now))
	}
	for name := range l.regs {
		if !visible[name] {
			delete(l.regs, name)
		}
	}

	if l.cleanupDue(now) {
		removed, err := memory.Cleanup(l.mem, l.game.CreepNames())
		if err != nil {
			l.log.Printf("tick %d: memory cleanup: %v", now, err)
		} else if len(removed) > 0 {
			l.log.Printf("tick %d: dropped memory of %d dead creeps", now, len(removed))
		}
	}

	entry := TickLogEntry{Tick: now, Digest: regulator.Digest(now, reports), Rooms: reports}
	l.last = entry
	for _, s := range l.sinks {
		if err := s.WriteTick(entry); err != nil {
			l.log.Printf("tick %d: sink: %v", now, err)
		}
	}

	if l.snapshotDue(now) {
		select {
		case l.snapshotSink <- l.ExportSnapshot():
		default:
			l.log.Printf("tick %d: snapshot dropped, writer busy", now)
		}
	}
}

func (l *Loop) cleanupDue(now uint64) bool {
	every := uint64(l.tune.MemoryCleanupEveryTicks)
	return now%every == uint64(l.tune.MemoryCleanupOffset)%every
}

func (l *Loop) snapshotDue(now uint64) bool {
	if l.snapshotSink == nil || l.tune.SnapshotEveryTicks <= 0 || now == 0 {
		return false
	}
	return now%uint64(l.tune.SnapshotEveryTicks) == 0
}

func (l *Loop) roomLogger(room string) *log.Logger {
	return log.New(l.log.Writer(), fmt.Sprintf("[regulator %s] ", room), l.log.Flags())
}

// Run calls Tick at the tuning's tick rate until ctx is done. Hosts that
// implement Stepper are advanced after every tick.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(l.tune.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.step()
		}
	}
}

// RunTicks runs n ticks back to back, without pacing.
func (l *Loop) RunTicks(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.step()
	}
	return nil
}

func (l *Loop) step() {
	l.Tick()
	if s, ok := l.game.(Stepper); ok {
		s.Step()
	}
}

// ExportSnapshot captures every unit's held job.
func (l *Loop) ExportSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header:           snapshot.Header{Version: snapshot.Version, Tick: l.game.Time()},
		ScanEveryTicks:   l.tune.ScanEveryTicks,
		RepairMultiplier: l.tune.RepairMultiplier,
	}
	names := make([]string, 0, len(l.regs))
	for name := range l.regs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		room := snapshot.RoomV1{Name: name}
		for _, h := range l.regs[name].HeldJobs() {
			room.Units = append(room.Units, snapshot.UnitV1{Name: h.Unit, Kind: string(h.UnitKind), Job: h.Job.Record()})
		}
		snap.Rooms = append(snap.Rooms, room)
	}
	return snap
}

// ImportSnapshot queues held jobs for restoration. Each room's jobs are handed
// back when its regulator next runs, and only for units and targets that still
// exist.
func (l *Loop) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("gameloop: snapshot version %d not supported", snap.Header.Version)
	}
	var errs []error
	for _, room := range snap.Rooms {
		held := make([]regulator.HeldJob, 0, len(room.Units))
		for _, u := range room.Units {
			j, err := jobs.FromRecord(u.Job)
			if err != nil {
				errs = append(errs, fmt.Errorf("room %s unit %s: %w", room.Name, u.Name, err))
				continue
			}
			kind := regulator.UnitKind(u.Kind)
			if kind != regulator.UnitCreep && kind != regulator.UnitTower {
				errs = append(errs, fmt.Errorf("room %s unit %s: unknown unit kind %q", room.Name, u.Name, u.Kind))
				continue
			}
			held = append(held, regulator.HeldJob{Unit: u.Name, UnitKind: kind, Job: j})
		}
		l.pending[room.Name] = held
	}
	return errors.Join(errs...)
}

// Close ends the loop's lifetime. Regulators and unit state are dropped and
// later Ticks do nothing.
func (l *Loop) Close() {
	l.closed = true
	l.regs = map[string]*regulator.Regulator{}
	l.pending = map[string][]regulator.HeldJob{}
	l.snapshotSink = nil
}
