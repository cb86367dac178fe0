package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBRoundTrip(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("debt/meta"), []byte{0x01}))

	ok, err := db.Has([]byte("debt/meta"))
	require.NoError(t, err)
	require.True(t, ok)

	value, err := db.Get([]byte("debt/meta"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, value)

	_, err = db.Get([]byte("missing"))
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte{0xaa}
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 0xbb

	stored, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa}, stored)
}

func TestLevelDBRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db, err := NewLevelDB(filepath.Join(dir, "debt"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("debt/entry/0"), []byte{0x02}))
	value, err := db.Get([]byte("debt/entry/0"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x02}, value)

	_, err = db.Get([]byte("debt/entry/1"))
	require.True(t, errors.Is(err, ErrNotFound))
}
