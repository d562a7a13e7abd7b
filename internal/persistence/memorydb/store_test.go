package memorydb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hivecore.ai/internal/sim/game"
	"hivecore.ai/internal/sim/game/gametest"
	"hivecore.ai/internal/sim/jobs"
	"hivecore.ai/internal/sim/memory"
)

func TestStoreRoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")
	site := &gametest.Site{ObjID: "site1", At: game.Pos{X: 4, Y: 4}, Total: 100}

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save("bob", memory.ForJob(jobs.Build(site))))
	require.NoError(t, s.Save("amy", memory.Idle()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"amy", "bob"}, names)

	rec, err := s.Load("bob")
	require.NoError(t, err)
	assert.Equal(t, memory.RoleBuilding, rec.Role)
	j, ok, err := rec.RestoreJob()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jobs.KindBuild, j.Kind())
	assert.Equal(t, game.ObjectID("site1"), j.Target())
}

func TestStoreMissingAndCorrupt(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load("ghost")
	assert.ErrorIs(t, err, memory.ErrNotFound)

	_, err = s.db.Exec(`INSERT INTO creep_memory(name,record) VALUES('bad',?)`, []byte{0xff, 0x00, 0x13})
	require.NoError(t, err)
	_, err = s.Load("bad")
	assert.ErrorIs(t, err, memory.ErrCorrupt)
}

func TestStoreCleanup(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer s.Close()

	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(n, memory.Idle()))
	}
	removed, err := memory.Cleanup(s, []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, removed)

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
