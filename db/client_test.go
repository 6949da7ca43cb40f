package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iq-spectrogram/utils"
)

// testBlobStore is the behaviour every backend shares.
func testBlobStore(t *testing.T, store BlobStore) {
	t.Helper()
	require.NoError(t, store.DeleteAll())

	first := []byte("first recording bytes...")
	second := make([]byte, 1<<20)
	for i := range second {
		second[i] = byte(i * 7)
	}

	id1, err := store.Store(first, "first.iq")
	require.NoError(t, err)
	assert.Equal(t, utils.ContentID(first), id1)

	time.Sleep(5 * time.Millisecond)
	id2, err := store.Store(second, "second.cf32")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	again, err := store.Store(first, "renamed.iq")
	require.NoError(t, err)
	assert.Equal(t, id1, again)

	got, err := store.Fetch(id1)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = store.Fetch(id2)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	blob, ok, err := store.Stat(id1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first.iq", blob.Name)
	assert.Equal(t, int64(len(first)), blob.Size)
	assert.WithinDuration(t, time.Now(), blob.CreatedAt, time.Minute)

	blobs, err := store.List()
	require.NoError(t, err)
	require.Len(t, blobs, 2)
	assert.Equal(t, id1, blobs[0].ID)
	assert.Equal(t, id2, blobs[1].ID)
	assert.Equal(t, int64(len(second)), blobs[1].Size)

	missing := utils.ContentID([]byte("never stored"))
	_, err = store.Fetch(missing)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Fetch("../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok, err = store.Stat(missing)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(id1))
	assert.ErrorIs(t, store.Delete(id1), ErrNotFound)
	_, err = store.Fetch(id1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.DeleteAll())
	blobs, err = store.List()
	require.NoError(t, err)
	assert.Empty(t, blobs)
}

func TestFSClient(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")
	store, err := NewFSClient(dir)
	require.NoError(t, err)
	defer store.Close()

	testBlobStore(t, store)

	// no temp files are left behind
	id, err := store.Store([]byte{1, 2, 3, 4, 5, 6, 7, 8}, "x.iq")
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{id + ".iq", id + ".json"}, names)
}

func TestSQLiteClient(t *testing.T) {
	store, err := NewSQLiteClient(filepath.Join(t.TempDir(), "blobs.sqlite3"))
	require.NoError(t, err)
	defer store.Close()

	testBlobStore(t, store)
}

func TestMongoClient(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	store, err := NewMongoClient(uri, "iq-spectrogram-test")
	require.NoError(t, err)
	defer store.Close()

	testBlobStore(t, store)
}

func TestPostgresClient(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	store, err := NewPostgresClient(dsn)
	require.NoError(t, err)
	defer store.Close()

	testBlobStore(t, store)
}

func TestNewDBClient(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("DB_TYPE", "fs")
	t.Setenv("BLOB_DIR", filepath.Join(dir, "fs"))
	store, err := NewDBClient()
	require.NoError(t, err)
	assert.IsType(t, &FSClient{}, store)
	store.Close()

	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "db.sqlite3"))
	store, err = NewDBClient()
	require.NoError(t, err)
	assert.IsType(t, &SQLiteClient{}, store)
	store.Close()

	t.Setenv("DB_TYPE", "cassandra")
	_, err = NewDBClient()
	assert.Error(t, err)
}
