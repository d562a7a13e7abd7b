package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"hivecore.ai/internal/persistence/snapshot"
	"hivecore.ai/internal/sim/gameloop"
	"hivecore.ai/internal/sim/regulator"
	"hivecore.ai/internal/sim/tuning"
	"hivecore.ai/internal/sim/units"
)

func sampleTick(tick uint64) gameloop.TickLogEntry {
	return gameloop.TickLogEntry{
		Tick:   tick,
		Digest: "abc",
		Rooms: []regulator.RoomReport{
			{
				Room:       "W1N1",
				Tick:       tick,
				Scanned:    true,
				Offers:     2,
				OpenPlaces: map[string]uint32{"harvest": 1},
				Units: []regulator.UnitReport{
					{Unit: "miner", UnitKind: regulator.UnitCreep, Action: units.ActionAssigned, Job: "harvest", Target: "src1"},
					{Unit: "t1", UnitKind: regulator.UnitTower, Action: units.ActionIdle},
				},
			},
			{
				Room:    "W2N1",
				Tick:    tick,
				ScanErr: "room not visible",
			},
		},
	}
}

func TestSQLiteIndex_WritesTicksAndAssignments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	for tick := uint64(1); tick <= 3; tick++ {
		if err := idx.WriteTick(sampleTick(tick)); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var ticks, assigned int
	if err := db.QueryRow(`SELECT COUNT(*), SUM(assigned) FROM ticks`).Scan(&ticks, &assigned); err != nil {
		t.Fatalf("ticks: %v", err)
	}
	if ticks != 3 || assigned != 3 {
		t.Fatalf("ticks=%d assigned=%d, want 3 and 3", ticks, assigned)
	}

	var scanErr string
	if err := db.QueryRow(`SELECT scan_err FROM room_ticks WHERE tick=2 AND room='W2N1'`).Scan(&scanErr); err != nil {
		t.Fatalf("room_ticks: %v", err)
	}
	if scanErr != "room not visible" {
		t.Fatalf("scan_err=%q", scanErr)
	}

	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM assignments WHERE target IS NULL`).Scan(&rows); err != nil {
		t.Fatalf("assignments: %v", err)
	}
	if rows != 3 {
		t.Fatalf("idle tower rows=%d, want 3", rows)
	}
}

func TestSQLiteIndex_UnitHistoryAndLatestSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = idx.WriteTick(sampleTick(7))
	_ = idx.WriteTick(sampleTick(8))
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, Tick: 300},
		Rooms:  []snapshot.RoomV1{{Name: "W1N1", Units: []snapshot.UnitV1{{Name: "miner", Kind: "creep"}}}},
	}
	idx.RecordSnapshot("/data/snapshots/300.snap.zst", snap)
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ro, err := openSQLite(path, 1)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer ro.Close()

	hist, err := ro.UnitHistory(context.Background(), "miner", 10)
	if err != nil {
		t.Fatalf("UnitHistory: %v", err)
	}
	if len(hist) != 2 || hist[0].Tick != 7 || hist[1].Job != "harvest" || hist[1].Target != "src1" {
		t.Fatalf("history = %+v", hist)
	}

	tick, p, err := ro.LatestSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if tick != 300 || p != "/data/snapshots/300.snap.zst" {
		t.Fatalf("latest = %d %q", tick, p)
	}
}

func TestSQLiteIndex_LatestSnapshotEmpty(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()
	if _, _, err := idx.LatestSnapshot(context.Background()); err == nil {
		t.Fatalf("expected error on empty index")
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: gameloop.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(gameloop.TickLogEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropTickTotal != 1 {
		t.Fatalf("DropTickTotal=%d want=1", st.DropTickTotal)
	}
	if st.DropSnapshotTotal != 1 {
		t.Fatalf("DropSnapshotTotal=%d want=1", st.DropSnapshotTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_ClosedIgnoresWrites(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := idx.WriteTick(sampleTick(1)); err != nil {
		t.Fatalf("WriteTick after close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSQLiteIndex_UpsertTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.UpsertTuning(tuning.Defaults()); err != nil {
		t.Fatalf("UpsertTuning: %v", err)
	}
	tune := tuning.Defaults()
	tune.ScanEveryTicks = 9
	if err := idx.UpsertTuning(tune); err != nil {
		t.Fatalf("UpsertTuning: %v", err)
	}
	var n int
	var js string
	if err := idx.db.QueryRow(`SELECT COUNT(*), MAX(json) FROM configs WHERE name='tuning'`).Scan(&n, &js); err != nil {
		t.Fatalf("query: %v", err)
	}
	_ = idx.Close()
	if n != 1 {
		t.Fatalf("tuning rows=%d, want 1", n)
	}
	if want := `"ScanEveryTicks":9`; !strings.Contains(js, want) {
		t.Fatalf("json %s lacks %s", js, want)
	}
}
