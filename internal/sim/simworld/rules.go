package simworld

// Rules are the world's mechanics constants.
type Rules struct {
	HarvestPower int
	BuildPower   int
	RepairPower  int
	UpgradePower int
	AttackPower  int
	HealPower    int

	TowerAttack       int
	TowerHeal         int
	TowerRepair       int
	TowerEnergyCost   int
	TowerOptimalRange int
	TowerFalloffRange int

	CreepCost        int
	CreepCapacity    int
	CreepHits        int
	CreepLifetime    int
	SpawnTicks       int
	MaxCreepsPerRoom int

	SourceCapacity   int
	SourceRegenTicks int

	ControllerLevelProgress int
}

func DefaultRules() Rules {
	return Rules{
		HarvestPower: 2,
		BuildPower:   5,
		RepairPower:  100,
		UpgradePower: 1,
		AttackPower:  30,
		HealPower:    12,

		TowerAttack:       600,
		TowerHeal:         400,
		TowerRepair:       800,
		TowerEnergyCost:   10,
		TowerOptimalRange: 5,
		TowerFalloffRange: 20,

		CreepCost:        200,
		CreepCapacity:    50,
		CreepHits:        300,
		CreepLifetime:    1500,
		SpawnTicks:       9,
		MaxCreepsPerRoom: 10,

		SourceCapacity:   3000,
		SourceRegenTicks: 300,

		ControllerLevelProgress: 200,
	}
}

// towerPower scales a tower action by distance: full power up to the optimal
// range, a quarter at the falloff range and beyond, linear in between.
func (r Rules) towerPower(base int, rng int) int {
	if rng <= r.TowerOptimalRange {
		return base
	}
	if rng >= r.TowerFalloffRange {
		return base / 4
	}
	span := r.TowerFalloffRange - r.TowerOptimalRange
	lost := base * 3 / 4 * (rng - r.TowerOptimalRange) / span
	return base - lost
}

func defaultHits(t string) int {
	switch t {
	case "spawn":
		return 5000
	case "extension":
		return 1000
	case "tower":
		return 3000
	case "road":
		return 5000
	case "constructedWall", "rampart":
		return 300000
	case "container":
		return 250000
	default:
		return 1000
	}
}

func defaultEnergyCapacity(t string) int {
	switch t {
	case "spawn":
		return 300
	case "extension":
		return 50
	case "tower":
		return 1000
	default:
		return 0
	}
}
