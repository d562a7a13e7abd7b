package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/game/gametest"
	"hivecore.ai/internal/sim/jobs"
)

func TestForJobRestores(t *testing.T) {
	j := jobs.Build(&gametest.Site{ObjID: "site1", At: game.Pos{X: 4, Y: 5}})
	rec := ForJob(j)
	assert.Equal(t, RoleBuilding, rec.Role)

	s := NewMemStore()
	require.NoError(t, s.Save("c1", rec))
	got, err := s.Load("c1")
	require.NoError(t, err)
	back, ok, err := got.RestoreJob()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, back.Equal(j))
}

func TestEncodeIsDeterministic(t *testing.T) {
	rec := ForJob(jobs.Harvest(&gametest.Source{ObjID: "src"}))
	a, err := Encode(rec)
	require.NoError(t, err)
	b, err := Encode(rec)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestIdleRecordHasNoJob(t *testing.T) {
	_, ok, err := Idle().RestoreJob()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMismatchedRoleIsCorrupt(t *testing.T) {
	rec := ForJob(jobs.Harvest(&gametest.Source{ObjID: "src"}))
	rec.Role = RoleUpgrading
	_, _, err := rec.RestoreJob()
	assert.Error(t, err)

	_, _, err = Record{Role: RoleBuilding}.RestoreJob()
	assert.Error(t, err)

	_, _, err = Record{Role: Role(42)}.RestoreJob()
	assert.Error(t, err)
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	s := NewMemStore()
	_, err := s.Load("ghost")
	assert.True(t, errors.Is(err, ErrNotFound))

	s.PutRaw("broken", []byte{0xff, 0x00, 0x13})
	_, err = s.Load("broken")
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestCleanupRemovesDead(t *testing.T) {
	s := NewMemStore()
	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(n, Idle()))
	}
	removed, err := Cleanup(s, []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, removed)
	names, _ := s.Names()
	assert.Equal(t, []string{"b"}, names)
}
