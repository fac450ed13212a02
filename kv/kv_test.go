package kv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/catchat/cidutil"
)

func runStoreTests(t *testing.T, s Store) {
	t.Helper()

	_, err := s.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put("k", "v1"))
	v, err := s.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v1", v)

	require.NoError(t, s.Put("k", "v2"))
	v, err = s.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v2", v)

	require.NoError(t, s.Delete("k"))
	_, err = s.Get("k")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Delete("k"))

	_, err = s.Get("")
	require.ErrorIs(t, err, ErrZeroKey)
	require.ErrorIs(t, s.Put("", "x"), ErrZeroKey)

	id, err := cidutil.DagJSONCID([]byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, SetCID(s, "signed_message", id))
	got, ok := GetCID(s, "signed_message")
	require.True(t, ok)
	require.True(t, got.Equals(id))

	require.NoError(t, s.Put("garbage", "not-a-cid"))
	_, ok = GetCID(s, "garbage")
	require.False(t, ok)
}

func TestMemory(t *testing.T) {
	runStoreTests(t, NewMemory())
}

func TestLevelDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv")
	db, err := OpenLevelDB(path)
	require.NoError(t, err)
	runStoreTests(t, db)

	require.NoError(t, db.Put("persist", "yes"))
	require.NoError(t, db.Close())

	reopened, err := OpenLevelDB(path)
	require.NoError(t, err)
	defer reopened.Close()
	v, err := reopened.Get("persist")
	require.NoError(t, err)
	require.Equal(t, "yes", v)
}
