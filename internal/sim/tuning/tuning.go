package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`
	RoomSize   int `yaml:"room_size"`

	// Offer pools are rebuilt every ScanEveryTicks; in between units keep
	// assigning against the last pool.
	ScanEveryTicks          int `yaml:"scan_every_ticks"`
	MemoryCleanupEveryTicks int `yaml:"memory_cleanup_every_ticks"`
	MemoryCleanupOffset     int `yaml:"memory_cleanup_offset"`
	SnapshotEveryTicks      int `yaml:"snapshot_every_ticks"`

	RepairMultiplier int `yaml:"repair_multiplier"`
	LowTTLThreshold  int `yaml:"low_ttl_threshold"`
	MaxCreeps        int `yaml:"max_creeps"`

	AttackPlaces uint32 `yaml:"attack_places"`
	HealPlaces   uint32 `yaml:"heal_places"`
	RepairPlaces uint32 `yaml:"repair_places"`

	Priorities Priorities `yaml:"priorities"`
	Ranges     Ranges     `yaml:"ranges"`
}

// Priorities: lower value is scheduled first.
type Priorities struct {
	Attack   uint32 `yaml:"attack"`
	Heal     uint32 `yaml:"heal"`
	Repair   uint32 `yaml:"repair"`
	Maintain uint32 `yaml:"maintain"`
	Build    uint32 `yaml:"build"`
	Upgrade  uint32 `yaml:"upgrade"`
	Harvest  uint32 `yaml:"harvest"`
}

type Ranges struct {
	Attack   int `yaml:"attack"`
	Build    int `yaml:"build"`
	Harvest  int `yaml:"harvest"`
	Heal     int `yaml:"heal"`
	Repair   int `yaml:"repair"`
	Transfer int `yaml:"transfer"`
	Upgrade  int `yaml:"upgrade"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz: 2,
		RoomSize:   50,

		ScanEveryTicks:          5,
		MemoryCleanupEveryTicks: 32,
		MemoryCleanupOffset:     3,
		SnapshotEveryTicks:      300,

		RepairMultiplier: 4,
		LowTTLThreshold:  50,
		MaxCreeps:        10,

		AttackPlaces: 5,
		HealPlaces:   1,
		RepairPlaces: 1,

		Priorities: DefaultPriorities(),
		Ranges:     DefaultRanges(),
	}
}

func DefaultPriorities() Priorities {
	return Priorities{Attack: 0, Heal: 1, Repair: 2, Maintain: 3, Build: 4, Upgrade: 5, Harvest: 6}
}

func DefaultRanges() Ranges {
	return Ranges{Attack: 1, Build: 3, Harvest: 1, Heal: 1, Repair: 3, Transfer: 1, Upgrade: 3}
}

// Load reads a tuning file. Keys missing from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate_hz must be > 0, got %d", t.TickRateHz))
	}
	if t.RoomSize <= 0 {
		errs = append(errs, fmt.Errorf("room_size must be > 0, got %d", t.RoomSize))
	}
	if t.ScanEveryTicks <= 0 {
		errs = append(errs, fmt.Errorf("scan_every_ticks must be > 0, got %d", t.ScanEveryTicks))
	}
	if t.MemoryCleanupEveryTicks <= 0 {
		errs = append(errs, fmt.Errorf("memory_cleanup_every_ticks must be > 0, got %d", t.MemoryCleanupEveryTicks))
	}
	if t.SnapshotEveryTicks < 0 {
		errs = append(errs, fmt.Errorf("snapshot_every_ticks must be >= 0, got %d", t.SnapshotEveryTicks))
	}
	if t.RepairMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("repair_multiplier must be > 0, got %d", t.RepairMultiplier))
	}
	if t.LowTTLThreshold < 0 {
		errs = append(errs, fmt.Errorf("low_ttl_threshold must be >= 0, got %d", t.LowTTLThreshold))
	}
	if t.MaxCreeps < 0 {
		errs = append(errs, fmt.Errorf("max_creeps must be >= 0, got %d", t.MaxCreeps))
	}
	r := t.Ranges
	for name, v := range map[string]int{
		"attack": r.Attack, "build": r.Build, "harvest": r.Harvest, "heal": r.Heal,
		"repair": r.Repair, "transfer": r.Transfer, "upgrade": r.Upgrade,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("ranges.%s must be >= 0, got %d", name, v))
		}
	}
	return errors.Join(errs...)
}
