package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	persistlog "hivecore.ai/internal/persistence/log"
	"hivecore.ai/internal/persistence/snapshot"
	"hivecore.ai/internal/sim/gameloop"
	"hivecore.ai/internal/sim/simworld"
	"hivecore.ai/internal/sim/tuning"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		snapPath   string
		ticksDir   string
		scenario   string
		tuningPath string
		toTick     uint64
	)
	flagSet := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flagSet.StringVar(&snapPath, "snapshot", "", "print a summary of this .snap.zst")
	flagSet.StringVar(&ticksDir, "ticks", "", "dir containing ticks-*.jsonl.zst")
	flagSet.StringVar(&scenario, "scenario", "", "re-run this scenario and verify digests against the tick log")
	flagSet.StringVar(&tuningPath, "tuning", "./configs/tuning.yaml", "path to tuning.yaml used by the logged run")
	flagSet.Uint64Var(&toTick, "to-tick", 0, "stop at tick (inclusive, optional)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if snapPath == "" && ticksDir == "" {
		return errors.New("need --snapshot or --ticks")
	}

	if snapPath != "" {
		snap, err := snapshot.ReadSnapshot(snapPath)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		fmt.Print(summarizeSnapshot(snap))
	}
	if ticksDir == "" {
		return nil
	}

	files, err := persistlog.TickFiles(ticksDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no tick files found in %s", ticksDir)
	}
	var entries []gameloop.TickLogEntry
	for _, path := range files {
		es, err := persistlog.ReadTickFile(path, toTick)
		if err != nil {
			return err
		}
		entries = append(entries, es...)
	}

	if scenario == "" {
		fmt.Print(summarizeTicks(entries))
		return nil
	}

	tune, err := tuning.Load(tuningPath)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	sc, err := simworld.LoadScenario(scenario)
	if err != nil {
		return err
	}
	checked, err := verify(sc, tune, entries)
	if err != nil {
		return err
	}
	fmt.Printf("replay ok: checked=%d ticks\n", checked)
	return nil
}

func summarizeSnapshot(snap snapshot.SnapshotV1) string {
	var b strings.Builder
	fmt.Fprintf(&b, "snapshot v%d tick=%d rooms=%d units=%d\n", snap.Header.Version, snap.Header.Tick, len(snap.Rooms), snap.Units())
	for _, r := range snap.Rooms {
		fmt.Fprintf(&b, "  %s\n", r.Name)
		for _, u := range r.Units {
			fmt.Fprintf(&b, "    %-6s %-16s %s:%s\n", u.Kind, u.Name, u.Job.Kind, u.Job.Target)
		}
	}
	return b.String()
}

func summarizeTicks(entries []gameloop.TickLogEntry) string {
	if len(entries) == 0 {
		return "no ticks\n"
	}
	actions := map[string]int{}
	jobs := map[string]int{}
	var errs int
	for _, e := range entries {
		for _, r := range e.Rooms {
			errs += r.Errors()
			for _, u := range r.Units {
				actions[string(u.Action)]++
				if u.Job != "" {
					jobs[u.Job]++
				}
			}
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ticks %d..%d (%d entries) unit errors=%d\n", entries[0].Tick, entries[len(entries)-1].Tick, len(entries), errs)
	writeCounts(&b, "actions", actions)
	writeCounts(&b, "jobs", jobs)
	return b.String()
}

func writeCounts(b *strings.Builder, title string, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(b, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "  %-10s %d\n", k, m[k])
	}
}

// verify re-runs the scenario from its first tick with in-process memory and
// compares every tick digest with the log.
func verify(sc simworld.Scenario, tune tuning.Tuning, entries []gameloop.TickLogEntry) (int, error) {
	w, err := simworld.New(sc, worldOptions(sc, tune)...)
	if err != nil {
		return 0, err
	}
	loop, err := gameloop.New(gameloop.Config{Game: w, Tuning: tune, Spawner: w})
	if err != nil {
		return 0, err
	}
	defer loop.Close()

	checked := 0
	for _, e := range entries {
		if e.Tick < w.Time() {
			continue
		}
		if e.Tick != w.Time() {
			return checked, fmt.Errorf("tick gap: log has %d, world is at %d", e.Tick, w.Time())
		}
		if err := loop.RunTicks(context.Background(), 1); err != nil {
			return checked, err
		}
		if got := loop.Last().Digest; got != e.Digest {
			return checked, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", e.Tick, got, e.Digest)
		}
		checked++
	}
	return checked, nil
}

// worldOptions applies the tuning's creep cap unless the scenario sets one.
func worldOptions(sc simworld.Scenario, tune tuning.Tuning) []simworld.Option {
	if sc.MaxCreeps != nil {
		return nil
	}
	return []simworld.Option{simworld.WithMaxCreeps(tune.MaxCreeps)}
}
