package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	persistlog "hivecore.ai/internal/persistence/log"
	"hivecore.ai/internal/sim/gameloop"
	"hivecore.ai/internal/sim/simworld"
	"hivecore.ai/internal/sim/tuning"
)

func recordRun(t *testing.T, sc simworld.Scenario, ticks int) string {
	t.Helper()
	dir := t.TempDir()
	w, err := simworld.New(sc)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	tl := persistlog.NewTickLogger(dir)
	loop, err := gameloop.New(gameloop.Config{Game: w, Tuning: tuning.Defaults(), Spawner: w, Sinks: []gameloop.TickSink{tl}})
	if err != nil {
		t.Fatalf("loop: %v", err)
	}
	if err := loop.RunTicks(context.Background(), ticks); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return filepath.Join(dir, "ticks")
}

func loadEntries(t *testing.T, dir string) []gameloop.TickLogEntry {
	t.Helper()
	files, err := persistlog.TickFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var out []gameloop.TickLogEntry
	for _, f := range files {
		es, err := persistlog.ReadTickFile(f, 0)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		out = append(out, es...)
	}
	return out
}

func scenario(t *testing.T) simworld.Scenario {
	t.Helper()
	sc, err := simworld.LoadScenario(filepath.Join("..", "..", "configs", "scenarios", "starter.jsonc"))
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	return sc
}

func TestVerifyMatchesRecordedRun(t *testing.T) {
	sc := scenario(t)
	entries := loadEntries(t, recordRun(t, sc, 40))
	if len(entries) != 40 {
		t.Fatalf("entries = %d, want 40", len(entries))
	}
	checked, err := verify(sc, tuning.Defaults(), entries)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if checked != 40 {
		t.Fatalf("checked = %d", checked)
	}
}

func TestVerifyDetectsTamperedDigest(t *testing.T) {
	sc := scenario(t)
	entries := loadEntries(t, recordRun(t, sc, 10))
	entries[6].Digest = "00"
	checked, err := verify(sc, tuning.Defaults(), entries)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch") {
		t.Fatalf("err = %v, want digest mismatch", err)
	}
	if checked != 6 {
		t.Fatalf("checked = %d, want 6", checked)
	}
}

func TestSummarizeTicks(t *testing.T) {
	entries := loadEntries(t, recordRun(t, scenario(t), 5))
	out := summarizeTicks(entries)
	if !strings.Contains(out, "(5 entries)") || !strings.Contains(out, "actions:") {
		t.Fatalf("summary:\n%s", out)
	}
}
