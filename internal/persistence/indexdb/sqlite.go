package indexdb

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"

	"hivecore.ai/internal/persistence/snapshot"
	"hivecore.ai/internal/sim/gameloop"
	"hivecore.ai/internal/sim/tuning"
)

const schemaVersion = "1"

// SQLiteIndex is a queryable read model of the tick log. Writes are queued
// and applied by one writer goroutine; the JSONL log stays the source of
// truth, so a full queue drops the request and counts it.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	tick     gameloop.TickLogEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick  uint64
	Path  string
	Rooms int
	Units int
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropTickTotal     uint64
	DropSnapshotTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// openDB opens a single-connection SQLite handle with WAL enabled.
func openDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS configs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			rooms INTEGER NOT NULL,
			assigned INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS room_ticks (
			tick INTEGER NOT NULL,
			room TEXT NOT NULL,
			scanned INTEGER NOT NULL,
			scan_err TEXT,
			offers INTEGER NOT NULL,
			open_places_json TEXT NOT NULL,
			PRIMARY KEY (tick, room)
		);`,
		`CREATE TABLE IF NOT EXISTS assignments (
			tick INTEGER NOT NULL,
			room TEXT NOT NULL,
			unit TEXT NOT NULL,
			unit_kind TEXT NOT NULL,
			action TEXT NOT NULL,
			job TEXT,
			target TEXT,
			err TEXT,
			PRIMARY KEY (tick, unit_kind, unit)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_unit_tick ON assignments(unit, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_target_tick ON assignments(target, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			rooms INTEGER NOT NULL,
			units INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version',?)`, schemaVersion)
	return err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTickTotal:     s.dropTick.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) WriteTick(entry gameloop.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:  snap.Header.Tick,
		Path:  path,
		Rooms: len(snap.Rooms),
		Units: snap.Units(),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertTuning stores the tuning actually applied, keyed by its digest.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := blake3.Sum256(b)
	_, err = s.db.Exec(`INSERT OR REPLACE INTO configs(name,digest,json,updated_at) VALUES('tuning',?,?,?)`,
		hex.EncodeToString(sum[:]), string(b), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest,rooms,assigned,errors,raw_json) VALUES(?,?,?,?,?,?)`)
	insertRoom, _ := s.db.Prepare(`INSERT OR REPLACE INTO room_ticks(tick,room,scanned,scan_err,offers,open_places_json) VALUES(?,?,?,?,?,?)`)
	insertUnit, _ := s.db.Prepare(`INSERT OR REPLACE INTO assignments(tick,room,unit,unit_kind,action,job,target,err) VALUES(?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,rooms,units) VALUES(?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertRoom, insertUnit, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			var assigned, errs int
			for _, rr := range e.Rooms {
				assigned += rr.Assigned()
				errs += rr.Errors()
			}
			raw, _ := json.Marshal(e)
			if !exec(insertTick, int64(e.Tick), e.Digest, len(e.Rooms), assigned, errs, string(raw)) {
				continue
			}
		rooms:
			for _, rr := range e.Rooms {
				places, _ := json.Marshal(rr.OpenPlaces)
				if !exec(insertRoom, int64(e.Tick), rr.Room, rr.Scanned, nullable(rr.ScanErr), rr.Offers, string(places)) {
					break
				}
				for _, u := range rr.Units {
					if !exec(insertUnit, int64(e.Tick), rr.Room, u.Unit, string(u.UnitKind), string(u.Action),
						nullable(u.Job), nullable(string(u.Target)), nullable(u.Err)) {
						break rooms
					}
				}
			}

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, int64(sn.Tick), sn.Path, sn.Rooms, sn.Units)
		}
		flushIfNeeded()
	}

	commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Assignment is one unit's decision as stored in the index.
type Assignment struct {
	Tick     uint64
	Room     string
	UnitKind string
	Action   string
	Job      string
	Target   string
	Err      string
}

// UnitHistory returns a unit's decisions in tick order, at most limit rows.
func (s *SQLiteIndex) UnitHistory(ctx context.Context, unit string, limit int) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tick,room,unit_kind,action,
		COALESCE(job,''),COALESCE(target,''),COALESCE(err,'')
		FROM assignments WHERE unit=? ORDER BY tick LIMIT ?`, unit, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Assignment
	for rows.Next() {
		var a Assignment
		var tick int64
		if err := rows.Scan(&tick, &a.Room, &a.UnitKind, &a.Action, &a.Job, &a.Target, &a.Err); err != nil {
			return nil, err
		}
		a.Tick = uint64(tick)
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the path of the newest indexed snapshot.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (uint64, string, error) {
	var (
		tick int64
		path string
	)
	err := s.db.QueryRowContext(ctx, `SELECT tick,path FROM snapshots ORDER BY tick DESC LIMIT 1`).Scan(&tick, &path)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", fmt.Errorf("no snapshots indexed: %w", err)
	}
	if err != nil {
		return 0, "", err
	}
	return uint64(tick), path, nil
}
