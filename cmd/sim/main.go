package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"hivecore.ai/internal/persistence/archive"
	"hivecore.ai/internal/persistence/indexdb"
	persistlog "hivecore.ai/internal/persistence/log"
	"hivecore.ai/internal/persistence/memorydb"
	"hivecore.ai/internal/persistence/snapshot"
	"hivecore.ai/internal/sim/gameloop"
	"hivecore.ai/internal/sim/memory"
	"hivecore.ai/internal/sim/simworld"
	"hivecore.ai/internal/sim/tuning"
	"hivecore.ai/internal/transport/observer"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	scenario   string
	tuningPath string
	dataDir    string
	ticks      int
	realtime   bool
	observer   string
	disableDB  bool
	resume     bool

	snapshotKeep int
	archiveEvery uint64
}

func run(args []string) error {
	var o options
	flagSet := pflag.NewFlagSet("sim", pflag.ContinueOnError)
	flagSet.StringVar(&o.scenario, "scenario", "./configs/scenarios/starter.jsonc", "scenario file (JSONC)")
	flagSet.StringVar(&o.tuningPath, "tuning", "./configs/tuning.yaml", "path to tuning.yaml")
	flagSet.StringVar(&o.dataDir, "data", "./data", "runtime data directory")
	flagSet.IntVar(&o.ticks, "ticks", 0, "stop after this many ticks (0 runs until interrupted)")
	flagSet.BoolVar(&o.realtime, "realtime", false, "pace ticks at tick_rate_hz")
	flagSet.StringVar(&o.observer, "observer", "127.0.0.1:8081", "observer listen address (empty to disable)")
	flagSet.BoolVar(&o.disableDB, "disable-db", false, "keep creep memory in process and skip the SQLite index")
	flagSet.BoolVar(&o.resume, "resume", true, "restore held jobs from the latest snapshot in the data dir")
	flagSet.IntVar(&o.snapshotKeep, "snapshot-keep", 10, "rolling snapshots to keep (0 keeps all)")
	flagSet.Uint64Var(&o.archiveEvery, "archive-every", 0, "also archive snapshots whose tick is a multiple of this (0 disables)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	logger := log.New(os.Stdout, "[sim] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(o.tuningPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load tuning: %w", err)
		}
		logger.Printf("tuning not found (%s); using defaults", o.tuningPath)
		tune = tuning.Defaults()
	}

	sc, err := simworld.LoadScenario(o.scenario)
	if err != nil {
		return err
	}
	w, err := simworld.New(sc, worldOptions(sc, tune)...)
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}

	if err := os.MkdirAll(o.dataDir, 0o755); err != nil {
		return err
	}

	var mem memory.Store = memory.NewMemStore()
	var idx *indexdb.SQLiteIndex
	if !o.disableDB {
		ms, err := memorydb.Open(filepath.Join(o.dataDir, "memory.db"))
		if err != nil {
			return fmt.Errorf("open memory db: %w", err)
		}
		defer ms.Close()
		mem = ms

		idx, err = indexdb.OpenSQLite(filepath.Join(o.dataDir, "index.db"))
		if err != nil {
			return fmt.Errorf("open index db: %w", err)
		}
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index: upsert tuning: %v", err)
		}
	}

	tickLog := persistlog.NewTickLogger(o.dataDir)
	defer tickLog.Close()

	sinks := []gameloop.TickSink{tickLog}
	if idx != nil {
		sinks = append(sinks, idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if addr := strings.TrimSpace(o.observer); addr != "" {
		obs := observer.NewServer(tune.TickRateHz, log.New(os.Stdout, "[observer] ", log.LstdFlags|log.Lmicroseconds))
		m := &metrics{idx: idx, obs: obs}
		sinks = append(sinks, obs, m)

		mux := http.NewServeMux()
		mux.Handle("/v1/observer/", obs.Handler())
		mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(http.StatusOK)
			_, _ = rw.Write([]byte("ok"))
		})
		mux.Handle("/metrics", m)
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			<-ctx.Done()
			ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel2()
			_ = srv.Shutdown(ctx2)
		}()
		go func() {
			logger.Printf("observer listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("observer: %v", err)
			}
		}()
	}

	loop, err := gameloop.New(gameloop.Config{
		Game:    w,
		Tuning:  tune,
		Memory:  mem,
		Spawner: w,
		Sinks:   sinks,
		Logger:  log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds),
	})
	if err != nil {
		return err
	}
	defer loop.Close()

	snapDir := filepath.Join(o.dataDir, "snapshots")
	if o.resume {
		if path := snapshot.Latest(snapDir); path != "" {
			snap, err := snapshot.ReadSnapshot(path)
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			if err := loop.ImportSnapshot(snap); err != nil {
				logger.Printf("import snapshot: %v", err)
			}
			logger.Printf("resuming held jobs from snapshot=%s tick=%d units=%d", filepath.Base(path), snap.Header.Tick, snap.Units())
		}
	}

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	loop.SetSnapshotSink(snapCh)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for snap := range snapCh {
			path := filepath.Join(snapDir, snapshot.FileName(snap.Header.Tick))
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				logger.Printf("snapshot write: %v", err)
				continue
			}
			if idx != nil {
				idx.RecordSnapshot(path, snap)
			}
			if dst, ok, err := archive.ArchiveSnapshot(o.dataDir, path, snap, o.archiveEvery); err != nil {
				logger.Printf("archive snapshot: %v", err)
			} else if ok {
				logger.Printf("archived snapshot tick=%d to %s", snap.Header.Tick, dst)
			}
			if _, err := archive.Prune(snapDir, o.snapshotKeep); err != nil {
				logger.Printf("prune snapshots: %v", err)
			}
		}
	}()
	defer func() {
		close(snapCh)
		<-writerDone
	}()

	logger.Printf("scenario=%s rooms=%d tick=%d", filepath.Base(o.scenario), len(w.Rooms()), w.Time())
	runErr := drive(ctx, loop, o, tune)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	loop.SetSnapshotSink(nil)

	for _, st := range w.Stats() {
		logger.Printf("room %s: creeps=%d controller level=%d progress=%d", st.Room, st.Creeps, st.ControllerLevel, st.ControllerProgress)
	}
	return runErr
}

func drive(ctx context.Context, loop *gameloop.Loop, o options, tune tuning.Tuning) error {
	switch {
	case o.ticks > 0 && !o.realtime:
		return loop.RunTicks(ctx, o.ticks)
	case o.ticks > 0:
		d := time.Duration(o.ticks) * time.Second / time.Duration(tune.TickRateHz)
		ctx2, cancel := context.WithTimeout(ctx, d+time.Second/time.Duration(tune.TickRateHz)/2)
		defer cancel()
		if err := loop.Run(ctx2); !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	default:
		return loop.Run(ctx)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// worldOptions applies the tuning's creep cap unless the scenario sets one.
func worldOptions(sc simworld.Scenario, tune tuning.Tuning) []simworld.Option {
	if sc.MaxCreeps != nil {
		return nil
	}
	return []simworld.Option{simworld.WithMaxCreeps(tune.MaxCreeps)}
}
