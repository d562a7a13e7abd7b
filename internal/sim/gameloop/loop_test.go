package gameloop

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hivecore.ai/internal/persistence/snapshot"
	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/game/gametest"
	"hivecore.ai/internal/sim/memory"
	"hivecore.ai/internal/sim/tuning"
	"hivecore.ai/internal/sim/units"
)

type captureSink struct {
	entries []TickLogEntry
	err     error
}

func (s *captureSink) WriteTick(e TickLogEntry) error {
	s.entries = append(s.entries, e)
	return s.err
}

type countingSpawner struct {
	calls []uint64
	err   error
}

func (s *countingSpawner) Replenish(tick uint64) error {
	s.calls = append(s.calls, tick)
	return s.err
}

func buildWorld() (*gametest.World, *gametest.Room, *gametest.Room) {
	a := &gametest.Room{Label: "W2N1", Size: 50, EnergyCap: 300}
	a.SiteList = []*gametest.Site{{ObjID: "site", At: game.Pos{X: 10, Y: 11}, Total: 1000}}
	a.Creeps = []*gametest.Creep{{ObjID: "c1", Label: "builder", At: game.Pos{X: 10, Y: 10}, HP: 100, MaxHP: 100, TTL: 1000, Energy: 50, Capacity: 50}}

	b := &gametest.Room{Label: "W1N1", Size: 50, EnergyCap: 300}
	b.SourceList = []*gametest.Source{{ObjID: "src", At: game.Pos{X: 30, Y: 30}, Amount: 3000}}
	b.Creeps = []*gametest.Creep{{ObjID: "c2", Label: "miner", At: game.Pos{X: 30, Y: 31}, HP: 100, MaxHP: 100, TTL: 1000, Capacity: 50}}
	b.TowerList = []*gametest.Tower{{ObjID: "t1", At: game.Pos{X: 25, Y: 25}, Energy: 500, Capacity: 1000}}
	b.Enemies = []*gametest.Creep{{ObjID: "enemy", Hostile: true, At: game.Pos{X: 40, Y: 40}, HP: 300, MaxHP: 300}}

	return gametest.NewWorld(a, b), a, b
}

func newLoop(t *testing.T, w *gametest.World, mem memory.Store, sinks ...TickSink) (*Loop, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Game: w, Tuning: tuning.Defaults(), Memory: mem, Sinks: sinks, Logger: log.New(&buf, "", 0)})
	require.NoError(t, err)
	return l, &buf
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Tuning: tuning.Defaults()})
	assert.Error(t, err)

	bad := tuning.Defaults()
	bad.ScanEveryTicks = 0
	_, err = New(Config{Game: gametest.NewWorld(), Tuning: bad})
	assert.Error(t, err)
}

func TestTickRunsRoomsInNameOrder(t *testing.T) {
	w, _, _ := buildWorld()
	w.Tick = 1
	sink := &captureSink{}
	l, _ := newLoop(t, w, nil, sink)

	l.Tick()
	require.Len(t, sink.entries, 1)
	e := sink.entries[0]
	assert.Equal(t, uint64(1), e.Tick)
	require.Len(t, e.Rooms, 2)
	assert.Equal(t, "W1N1", e.Rooms[0].Room)
	assert.Equal(t, "W2N1", e.Rooms[1].Room)
	assert.Len(t, e.Digest, 64)
	assert.Equal(t, e, l.Last())

	units0 := e.Rooms[0].Units
	require.Len(t, units0, 2)
	assert.Equal(t, "miner", units0[0].Unit)
	assert.Equal(t, "harvest", units0[0].Job)
	assert.Equal(t, "t1", units0[1].Unit)
	assert.Equal(t, "attack", units0[1].Job)
}

func TestDigestIsDeterministicAcrossRuns(t *testing.T) {
	run := func() []string {
		w, _, _ := buildWorld()
		sink := &captureSink{}
		l, _ := newLoop(t, w, nil, sink)
		for i := 0; i < 12; i++ {
			w.Tick = uint64(i)
			l.Tick()
		}
		out := make([]string, 0, len(sink.entries))
		for _, e := range sink.entries {
			out = append(out, e.Digest)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestScanFailureIsIsolatedToItsRoom(t *testing.T) {
	w, a, b := buildWorld()
	b.TerrainErr = errors.New("no vision")
	sink := &captureSink{}
	l, logs := newLoop(t, w, nil, sink)

	l.Tick()
	e := sink.entries[0]
	assert.NotEmpty(t, e.Rooms[0].ScanErr)
	assert.Empty(t, e.Rooms[0].Units)
	assert.Empty(t, e.Rooms[1].ScanErr)
	assert.Equal(t, units.ActionAssigned, e.Rooms[1].Units[0].Action)
	assert.NotEmpty(t, a.Creeps[0].Calls)
	assert.Contains(t, logs.String(), "[regulator W1N1]")
}

func TestRoomsThatVanishDropTheirRegulator(t *testing.T) {
	w, _, _ := buildWorld()
	l, _ := newLoop(t, w, nil)
	l.Tick()
	_, ok := l.Regulator("W2N1")
	require.True(t, ok)

	w.RoomList = w.RoomList[1:]
	w.Tick++
	l.Tick()
	_, ok = l.Regulator("W2N1")
	assert.False(t, ok)
	_, ok = l.Regulator("W1N1")
	assert.True(t, ok)
}

func TestMemoryCleanupCadence(t *testing.T) {
	w, _, _ := buildWorld()
	mem := memory.NewMemStore()
	require.NoError(t, mem.Save("ghost", memory.Idle()))
	l, _ := newLoop(t, w, mem)

	w.Tick = 34
	l.Tick()
	_, err := mem.Load("ghost")
	require.NoError(t, err)

	w.Tick = 35
	l.Tick()
	_, err = mem.Load("ghost")
	assert.ErrorIs(t, err, memory.ErrNotFound)
	_, err = mem.Load("builder")
	assert.NoError(t, err)
}

func TestSpawnerAndSinkErrorsAreLogged(t *testing.T) {
	w, _, _ := buildWorld()
	w.Tick = 9
	sp := &countingSpawner{err: errors.New("no energy")}
	sink := &captureSink{err: errors.New("disk full")}
	var buf bytes.Buffer
	l, err := New(Config{Game: w, Tuning: tuning.Defaults(), Spawner: sp, Sinks: []TickSink{sink}, Logger: log.New(&buf, "", 0)})
	require.NoError(t, err)

	l.Tick()
	assert.Equal(t, []uint64{9}, sp.calls)
	assert.Len(t, sink.entries, 1)
	assert.Contains(t, buf.String(), "spawn: no energy")
	assert.Contains(t, buf.String(), "sink: disk full")
}

func TestSnapshotIsSentOnCadenceWithoutBlocking(t *testing.T) {
	w, _, _ := buildWorld()
	l, logs := newLoop(t, w, nil)
	ch := make(chan snapshot.SnapshotV1, 1)
	l.SetSnapshotSink(ch)

	w.Tick = 299
	l.Tick()
	assert.Len(t, ch, 0)

	w.Tick = 300
	l.Tick()
	require.Len(t, ch, 1)

	w.Tick = 600
	l.Tick()
	assert.Contains(t, logs.String(), "snapshot dropped")

	snap := <-ch
	assert.Equal(t, uint64(300), snap.Header.Tick)
	assert.Equal(t, 3, snap.Units())
}

func TestSnapshotRestoresHeldJobs(t *testing.T) {
	w, _, _ := buildWorld()
	l, _ := newLoop(t, w, nil)
	l.Tick()
	snap := l.ExportSnapshot()
	require.Equal(t, 3, snap.Units())
	l.Close()

	w2, _, _ := buildWorld()
	sink := &captureSink{}
	resumed, logs := newLoop(t, w2, nil, sink)
	require.NoError(t, resumed.ImportSnapshot(snap))
	resumed.Tick()

	e := sink.entries[0]
	for _, r := range e.Rooms {
		for _, u := range r.Units {
			assert.Equal(t, units.ActionKept, u.Action, u.Unit)
		}
	}
	assert.Contains(t, logs.String(), "room W1N1: restored 2 of 2 held jobs")
	assert.Contains(t, logs.String(), "room W2N1: restored 1 of 1 held jobs")
}

func TestImportSnapshotReportsBadRecords(t *testing.T) {
	w, _, _ := buildWorld()
	l, _ := newLoop(t, w, nil)
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version},
		Rooms: []snapshot.RoomV1{{Name: "W1N1", Units: []snapshot.UnitV1{
			{Name: "x", Kind: "creep"},
			{Name: "y", Kind: "drone"},
		}}},
	}
	assert.Error(t, l.ImportSnapshot(snap))
	assert.Error(t, l.ImportSnapshot(snapshot.SnapshotV1{}))
}

func TestCloseStopsTicks(t *testing.T) {
	w, _, _ := buildWorld()
	sink := &captureSink{}
	l, _ := newLoop(t, w, nil, sink)
	l.Close()
	l.Tick()
	assert.Empty(t, sink.entries)
}

type steppingWorld struct {
	*gametest.World
	steps int
}

func (s *steppingWorld) Step() {
	s.steps++
	s.Tick++
}

func TestRunTicksAdvancesStepper(t *testing.T) {
	w, _, _ := buildWorld()
	sw := &steppingWorld{World: w}
	sink := &captureSink{}
	l, err := New(Config{Game: sw, Tuning: tuning.Defaults(), Sinks: []TickSink{sink}})
	require.NoError(t, err)

	require.NoError(t, l.RunTicks(context.Background(), 3))
	assert.Equal(t, 3, sw.steps)
	require.Len(t, sink.entries, 3)
	assert.Equal(t, uint64(2), sink.entries[2].Tick)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.RunTicks(ctx, 3), context.Canceled)
}
