// Package memory keeps the small per-creep record that survives process
// restarts: what the creep is doing and which target it is bound to.
package memory

import (
	"fmt"

	"hivecore.ai/internal/sim/jobs"
)

// Role is the single authoritative activity tag of a creep.
type Role uint8

const (
	RoleIdle Role = iota
	RoleHarvesting
	RoleBuilding
	RoleMaintaining
	RoleRepairing
	RoleUpgrading
	RoleAttacking
	RoleHealing
)

func (r Role) String() string {
	switch r {
	case RoleIdle:
		return "idle"
	case RoleHarvesting:
		return "harvesting"
	case RoleBuilding:
		return "building"
	case RoleMaintaining:
		return "maintaining"
	case RoleRepairing:
		return "repairing"
	case RoleUpgrading:
		return "upgrading"
	case RoleAttacking:
		return "attacking"
	case RoleHealing:
		return "healing"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

func RoleFor(k jobs.Kind) Role {
	switch k {
	case jobs.KindHarvest:
		return RoleHarvesting
	case jobs.KindBuild:
		return RoleBuilding
	case jobs.KindMaintain:
		return RoleMaintaining
	case jobs.KindRepair:
		return RoleRepairing
	case jobs.KindUpgrade:
		return RoleUpgrading
	case jobs.KindAttack:
		return RoleAttacking
	case jobs.KindHeal:
		return RoleHealing
	default:
		return RoleIdle
	}
}

func (r Role) kind() (jobs.Kind, bool) {
	switch r {
	case RoleHarvesting:
		return jobs.KindHarvest, true
	case RoleBuilding:
		return jobs.KindBuild, true
	case RoleMaintaining:
		return jobs.KindMaintain, true
	case RoleRepairing:
		return jobs.KindRepair, true
	case RoleUpgrading:
		return jobs.KindUpgrade, true
	case RoleAttacking:
		return jobs.KindAttack, true
	case RoleHealing:
		return jobs.KindHeal, true
	default:
		return 0, false
	}
}

// Record is what a creep remembers. An idle record carries no job.
type Record struct {
	Role Role         `cbor:"r"`
	Job  *jobs.Record `cbor:"j,omitempty"`
}

func Idle() Record { return Record{Role: RoleIdle} }

func ForJob(j jobs.Job) Record {
	rec := j.Record()
	return Record{Role: RoleFor(j.Kind()), Job: &rec}
}

// RestoreJob returns the job the record describes. A record whose role and
// job disagree is treated as corrupt.
func (r Record) RestoreJob() (jobs.Job, bool, error) {
	kind, ok := r.Role.kind()
	if !ok {
		if r.Role != RoleIdle {
			return jobs.Job{}, false, fmt.Errorf("unknown role %d", uint8(r.Role))
		}
		return jobs.Job{}, false, nil
	}
	if r.Job == nil {
		return jobs.Job{}, false, fmt.Errorf("role %s without a job", r.Role)
	}
	j, err := jobs.FromRecord(*r.Job)
	if err != nil {
		return jobs.Job{}, false, err
	}
	if j.Kind() != kind {
		return jobs.Job{}, false, fmt.Errorf("role %s does not match job %s", r.Role, j.Kind())
	}
	return j, true, nil
}
