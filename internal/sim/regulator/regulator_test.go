package regulator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/game/gametest"
	"hivecore.ai/internal/sim/jobs"
	"hivecore.ai/internal/sim/memory"
	"hivecore.ai/internal/sim/tuning"
	"hivecore.ai/internal/sim/units"
)

func newRoom() (*gametest.Room, *gametest.World) {
	room := &gametest.Room{Label: "W1N1", Size: 50, EnergyCap: 300, Walls: map[game.Pos]bool{}}
	return room, gametest.NewWorld(room)
}

func newRegulator(room *gametest.Room, w *gametest.World) *Regulator {
	return New(room, w, tuning.Defaults(), memory.NewMemStore(), nil)
}

func kinds(pool jobs.Pool) []jobs.Kind {
	out := make([]jobs.Kind, 0, len(pool))
	for _, o := range pool {
		out = append(out, o.Job.Kind())
	}
	return out
}

func TestFreeSpots(t *testing.T) {
	room, w := newRoom()
	g := newRegulator(room, w)

	cases := []struct {
		name  string
		pos   game.Pos
		rng   int
		walls []game.Pos
		want  uint32
	}{
		{"open range 1", game.Pos{X: 10, Y: 10}, 1, nil, 9},
		{"open range 3", game.Pos{X: 10, Y: 10}, 3, nil, 49},
		{"corner clipped", game.Pos{X: 0, Y: 0}, 1, nil, 4},
		{"far corner clipped", game.Pos{X: 49, Y: 49}, 3, nil, 16},
		{"walls excluded", game.Pos{X: 10, Y: 10}, 1, []game.Pos{{X: 9, Y: 9}, {X: 11, Y: 10}}, 7},
		{"wall outside range ignored", game.Pos{X: 10, Y: 10}, 1, []game.Pos{{X: 12, Y: 10}}, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			room.Walls = map[game.Pos]bool{}
			for _, p := range tc.walls {
				room.Walls[p] = true
			}
			n, err := g.FreeSpots(tc.pos, tc.rng)
			require.NoError(t, err)
			assert.Equal(t, tc.want, n)
		})
	}
}

func TestScanBuildsOffersInFixedOrder(t *testing.T) {
	room, w := newRoom()
	room.Enemies = []*gametest.Creep{{ObjID: "enemy", Hostile: true, At: game.Pos{X: 40, Y: 40}, HP: 100, MaxHP: 100}}
	room.Creeps = []*gametest.Creep{{ObjID: "c1", Label: "hurt", At: game.Pos{X: 5, Y: 5}, HP: 50, MaxHP: 100, Capacity: 50}}
	room.SiteList = []*gametest.Site{{ObjID: "site", At: game.Pos{X: 20, Y: 20}, Total: 100}}
	room.SourceList = []*gametest.Source{
		{ObjID: "src", At: game.Pos{X: 30, Y: 30}, Amount: 3000},
		{ObjID: "dry", At: game.Pos{X: 31, Y: 31}, Amount: 0},
	}
	room.Structs = []*gametest.Structure{
		{ObjID: "spawn", Type: game.StructureSpawn, At: game.Pos{X: 25, Y: 25}, HP: 5000, MaxHP: 5000, Store: true, Energy: 100, Capacity: 300},
		{ObjID: "fullext", Type: game.StructureExtension, At: game.Pos{X: 26, Y: 25}, HP: 1000, MaxHP: 1000, Store: true, Energy: 50, Capacity: 50},
		{ObjID: "road", Type: game.StructureRoad, At: game.Pos{X: 27, Y: 25}, HP: 100, MaxHP: 5000},
	}
	room.Ctrl = &gametest.Controller{ObjID: "ctrl", At: game.Pos{X: 45, Y: 10}}

	g := newRegulator(room, w)
	require.NoError(t, g.Scan(1))

	pool := g.Offers()
	assert.Equal(t, []jobs.Kind{
		jobs.KindAttack, jobs.KindBuild, jobs.KindHarvest, jobs.KindHeal,
		jobs.KindMaintain, jobs.KindRepair, jobs.KindUpgrade,
	}, kinds(pool))
	assert.Equal(t, []uint32{5, 49, 9, 1, 9, 1, 49}, []uint32{
		pool[0].Places(), pool[1].Places(), pool[2].Places(), pool[3].Places(),
		pool[4].Places(), pool[5].Places(), pool[6].Places(),
	})
	assert.Equal(t, game.ObjectID("spawn"), pool[4].Job.Target())
	assert.Equal(t, game.ObjectID("road"), pool[5].Job.Target())
}

func TestScanRepairBoundary(t *testing.T) {
	room, w := newRoom()
	// 300 × 4 = 1200
	room.Structs = []*gametest.Structure{
		{ObjID: "at", Type: game.StructureWall, HP: 1200, MaxHP: 300000},
		{ObjID: "below", Type: game.StructureWall, HP: 1199, MaxHP: 300000},
		{ObjID: "dead", Type: game.StructureRoad, HP: 0, MaxHP: 5000},
		{ObjID: "full", Type: game.StructureRoad, HP: 800, MaxHP: 800},
	}
	g := newRegulator(room, w)
	require.NoError(t, g.Scan(1))

	pool := g.Offers()
	require.Len(t, pool, 1)
	assert.Equal(t, jobs.KindRepair, pool[0].Job.Kind())
	assert.Equal(t, game.ObjectID("below"), pool[0].Job.Target())
}

func TestScanErrorKeepsPreviousPool(t *testing.T) {
	room, w := newRoom()
	room.SourceList = []*gametest.Source{{ObjID: "src", At: game.Pos{X: 30, Y: 30}, Amount: 3000}}
	g := newRegulator(room, w)
	require.NoError(t, g.Scan(1))
	before := g.Offers()

	room.TerrainErr = errors.New("room not visible")
	err := g.Scan(10)
	require.Error(t, err)
	assert.ErrorIs(t, err, room.TerrainErr)
	assert.Equal(t, before, g.Offers())
	assert.True(t, g.ScanDue(11))
}

func TestTickSkipsDistributionWhenScanFails(t *testing.T) {
	room, w := newRoom()
	c := &gametest.Creep{ObjID: "c1", Label: "a", At: game.Pos{X: 5, Y: 5}, HP: 100, MaxHP: 100, TTL: 1000, Capacity: 50}
	room.Creeps = []*gametest.Creep{c}
	room.SourceList = []*gametest.Source{{ObjID: "src", At: game.Pos{X: 30, Y: 30}, Amount: 3000}}
	room.TerrainErr = errors.New("boom")

	g := newRegulator(room, w)
	rep := g.Tick(1)
	assert.NotEmpty(t, rep.ScanErr)
	assert.Empty(t, rep.Units)
	assert.Empty(t, c.Calls)
}

func TestScanCadence(t *testing.T) {
	room, w := newRoom()
	g := newRegulator(room, w)
	assert.True(t, g.ScanDue(100))

	rep := g.Tick(100)
	assert.True(t, rep.Scanned)
	assert.False(t, g.ScanDue(104))
	assert.True(t, g.ScanDue(105))

	rep = g.Tick(101)
	assert.False(t, rep.Scanned)
}

func TestDistributeSharesPoolAcrossUnitsInNameOrder(t *testing.T) {
	room, w := newRoom()
	src := &gametest.Source{ObjID: "src", At: game.Pos{X: 10, Y: 10}, Amount: 3000}
	room.SourceList = []*gametest.Source{src}
	// Walls leave two open tiles: the source tile and (11,11).
	for _, p := range []game.Pos{{X: 9, Y: 9}, {X: 10, Y: 9}, {X: 11, Y: 9}, {X: 9, Y: 10}, {X: 11, Y: 10}, {X: 9, Y: 11}, {X: 10, Y: 11}} {
		room.Walls[p] = true
	}
	b := &gametest.Creep{ObjID: "cb", Label: "b", At: game.Pos{X: 12, Y: 12}, HP: 100, MaxHP: 100, TTL: 1000, Capacity: 50}
	a := &gametest.Creep{ObjID: "ca", Label: "a", At: game.Pos{X: 20, Y: 20}, HP: 100, MaxHP: 100, TTL: 1000, Capacity: 50}
	a.Codes = gametest.Codes{"harvest": game.ErrNotInRange}
	b.Codes = gametest.Codes{"harvest": game.ErrNotInRange}
	room.Creeps = []*gametest.Creep{b, a}

	g := newRegulator(room, w)
	rep := g.Tick(1)
	require.Len(t, rep.Units, 2)
	assert.Equal(t, "a", rep.Units[0].Unit)
	assert.Equal(t, units.ActionAssigned, rep.Units[0].Action)
	assert.Equal(t, "harvest", rep.Units[0].Job)
	assert.Equal(t, units.ActionAssigned, rep.Units[1].Action)
	assert.Equal(t, uint32(0), rep.OpenPlaces["harvest"])

	c := &gametest.Creep{ObjID: "cc", Label: "c", At: game.Pos{X: 12, Y: 13}, HP: 100, MaxHP: 100, TTL: 1000, Capacity: 50}
	room.Creeps = append(room.Creeps, c)
	rep = g.Tick(2)
	require.Len(t, rep.Units, 3)
	assert.Equal(t, units.ActionKept, rep.Units[0].Action)
	assert.Equal(t, units.ActionKept, rep.Units[1].Action)
	assert.Equal(t, units.ActionIdle, rep.Units[2].Action)
	assert.Equal(t, 2, rep.Assigned())
}

func TestUnitErrorsAreReportedNotFatal(t *testing.T) {
	room, w := newRoom()
	room.SiteList = []*gametest.Site{{ObjID: "site", At: game.Pos{X: 10, Y: 11}, Total: 100}}
	bad := &gametest.Creep{ObjID: "c1", Label: "a", At: game.Pos{X: 10, Y: 10}, HP: 100, MaxHP: 100, TTL: 1000, Energy: 50, Capacity: 50}
	bad.Codes = gametest.Codes{"build": game.ErrNotOwner}
	good := &gametest.Creep{ObjID: "c2", Label: "b", At: game.Pos{X: 10, Y: 12}, HP: 100, MaxHP: 100, TTL: 1000, Energy: 50, Capacity: 50}
	room.Creeps = []*gametest.Creep{bad, good}

	rep := newRegulator(room, w).Tick(1)
	require.Len(t, rep.Units, 2)
	assert.Contains(t, rep.Units[0].Err, "ERR_NOT_OWNER")
	assert.Equal(t, units.ActionFailed, rep.Units[0].Action)
	assert.Equal(t, units.ActionAssigned, rep.Units[1].Action)
	assert.Equal(t, 1, rep.Errors())
}

func TestTowersRunAfterCreeps(t *testing.T) {
	room, w := newRoom()
	room.Enemies = []*gametest.Creep{{ObjID: "enemy", Hostile: true, At: game.Pos{X: 40, Y: 40}, HP: 100, MaxHP: 100}}
	room.TowerList = []*gametest.Tower{
		{ObjID: "t2", At: game.Pos{X: 25, Y: 25}, Energy: 500, Capacity: 1000},
		{ObjID: "t1", At: game.Pos{X: 24, Y: 25}, Energy: 500, Capacity: 1000},
	}
	room.Creeps = []*gametest.Creep{{ObjID: "c1", Label: "z", At: game.Pos{X: 5, Y: 5}, HP: 100, MaxHP: 100, TTL: 1000, Capacity: 50}}

	rep := newRegulator(room, w).Tick(1)
	require.Len(t, rep.Units, 3)
	assert.Equal(t, []string{"z", "t1", "t2"}, []string{rep.Units[0].Unit, rep.Units[1].Unit, rep.Units[2].Unit})
	assert.Equal(t, UnitTower, rep.Units[1].UnitKind)
	assert.Equal(t, "attack", rep.Units[1].Job)
	assert.Equal(t, uint32(3), rep.OpenPlaces["attack"])
}

func TestDeadUnitsAreDropped(t *testing.T) {
	room, w := newRoom()
	site := &gametest.Site{ObjID: "site", At: game.Pos{X: 10, Y: 11}, Total: 100}
	room.SiteList = []*gametest.Site{site}
	room.Creeps = []*gametest.Creep{{ObjID: "c1", Label: "a", At: game.Pos{X: 10, Y: 10}, HP: 100, MaxHP: 100, TTL: 1000, Energy: 50, Capacity: 50}}

	g := newRegulator(room, w)
	g.Tick(1)
	require.Len(t, g.HeldJobs(), 1)

	room.Creeps = nil
	g.Tick(2)
	assert.Empty(t, g.HeldJobs())
}

func TestHeldJobsRoundTrip(t *testing.T) {
	room, w := newRoom()
	site := &gametest.Site{ObjID: "site", At: game.Pos{X: 10, Y: 11}, Total: 100}
	enemy := &gametest.Creep{ObjID: "enemy", Hostile: true, At: game.Pos{X: 40, Y: 40}, HP: 100, MaxHP: 100}
	room.SiteList = []*gametest.Site{site}
	room.Enemies = []*gametest.Creep{enemy}
	room.Creeps = []*gametest.Creep{{ObjID: "c1", Label: "a", At: game.Pos{X: 10, Y: 10}, HP: 100, MaxHP: 100, TTL: 1000, Energy: 50, Capacity: 50}}
	room.TowerList = []*gametest.Tower{{ObjID: "t1", At: game.Pos{X: 25, Y: 25}, Energy: 500, Capacity: 1000}}

	held := []HeldJob{
		{Unit: "a", UnitKind: UnitCreep, Job: jobs.Build(site)},
		{Unit: "t1", UnitKind: UnitTower, Job: jobs.Attack(enemy)},
		{Unit: "ghost", UnitKind: UnitCreep, Job: jobs.Build(site)},
		{Unit: "t1", UnitKind: UnitTower, Job: jobs.Build(site)},
	}
	g := newRegulator(room, w)
	assert.Equal(t, 2, g.RestoreJobs(held))
	assert.Equal(t, held[:2], g.HeldJobs())
}

func TestDigestIsStableAndSensitive(t *testing.T) {
	reps := []RoomReport{{
		Room:       "W1N1",
		Offers:     2,
		OpenPlaces: map[string]uint32{"harvest": 1, "build": 3},
		Units:      []UnitReport{{Unit: "a", UnitKind: UnitCreep, Action: units.ActionAssigned, Job: "harvest", Target: "src"}},
	}}
	d1 := Digest(7, reps)
	assert.Equal(t, d1, Digest(7, reps))
	assert.Len(t, d1, 64)
	assert.NotEqual(t, d1, Digest(8, reps))

	reps[0].Units[0].Action = units.ActionIdle
	assert.NotEqual(t, d1, Digest(7, reps))
}
