package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	raw := "scan_every_ticks: 3\nrepair_multiplier: 6\npriorities:\n  harvest: 9\n"
	if err := os.WriteFile(p, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ScanEveryTicks != 3 || got.RepairMultiplier != 6 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.Priorities.Harvest != 9 {
		t.Fatalf("expected harvest priority 9, got %d", got.Priorities.Harvest)
	}
	if got.LowTTLThreshold != 50 || got.AttackPlaces != 5 {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(p, []byte("scan_every_ticks: 0\nroom_size: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(p)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "scan_every_ticks") || !strings.Contains(err.Error(), "room_size") {
		t.Fatalf("expected both problems reported, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
