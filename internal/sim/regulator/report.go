package regulator

import (
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/zeebo/blake3"

	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/jobs"
	"hivecore.ai/internal/sim/units"
)

type UnitKind string

const (
	UnitCreep UnitKind = "creep"
	UnitTower UnitKind = "tower"
)

// UnitReport is one unit's turn.
type UnitReport struct {
	Unit     string        `json:"unit"`
	UnitKind UnitKind      `json:"unit_kind"`
	Action   units.Action  `json:"action"`
	Job      string        `json:"job,omitempty"`
	Target   game.ObjectID `json:"target,omitempty"`
	Err      string        `json:"err,omitempty"`
}

// RoomReport is what one room's regulator did on a tick.
type RoomReport struct {
	Room       string            `json:"room"`
	Tick       uint64            `json:"tick"`
	Scanned    bool              `json:"scanned,omitempty"`
	ScanErr    string            `json:"scan_err,omitempty"`
	Offers     int               `json:"offers"`
	OpenPlaces map[string]uint32 `json:"open_places,omitempty"`
	Units      []UnitReport      `json:"units,omitempty"`
}

// HeldJob pairs a unit with the job it holds, for snapshots.
type HeldJob struct {
	Unit     string
	UnitKind UnitKind
	Job      jobs.Job
}

// Assigned counts units that hold a job after their turn.
func (r RoomReport) Assigned() int {
	n := 0
	for _, u := range r.Units {
		if u.Action == units.ActionAssigned || u.Action == units.ActionKept {
			n++
		}
	}
	return n
}

// Errors counts units whose turn ended in an error.
func (r RoomReport) Errors() int {
	n := 0
	for _, u := range r.Units {
		if u.Err != "" {
			n++
		}
	}
	return n
}

func openPlaces(pool jobs.Pool) map[string]uint32 {
	out := map[string]uint32{}
	for _, o := range pool {
		out[o.Job.Kind().String()] += o.Places()
	}
	return out
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func writeU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func writeString(h hashWriter, tmp *[8]byte, s string) {
	writeU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

// Digest hashes the decisions of a set of room reports. Two runs that made
// the same decisions in the same order produce the same digest.
func Digest(tick uint64, reports []RoomReport) string {
	h := blake3.New()
	var tmp [8]byte

	writeU64(h, &tmp, tick)
	writeU64(h, &tmp, uint64(len(reports)))
	for _, r := range reports {
		writeString(h, &tmp, r.Room)
		writeString(h, &tmp, r.ScanErr)
		writeU64(h, &tmp, uint64(r.Offers))

		kinds := make([]string, 0, len(r.OpenPlaces))
		for k := range r.OpenPlaces {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			writeString(h, &tmp, k)
			writeU64(h, &tmp, uint64(r.OpenPlaces[k]))
		}

		writeU64(h, &tmp, uint64(len(r.Units)))
		for _, u := range r.Units {
			writeString(h, &tmp, u.Unit)
			writeString(h, &tmp, string(u.UnitKind))
			writeString(h, &tmp, string(u.Action))
			writeString(h, &tmp, u.Job)
			writeString(h, &tmp, string(u.Target))
			writeString(h, &tmp, u.Err)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
