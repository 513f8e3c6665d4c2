package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePersistAndRead(t *testing.T) {
	store, dir := newTestStore(t)
	id := uuid.New()
	meta := Metadata{Username: "alice", FileExtension: "txt"}

	size, err := store.Persist(context.Background(), id, []byte("compressed"), meta)
	require.NoError(t, err)
	assert.Equal(t, int64(len("compressed")), size)

	data, err := store.Read(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []byte("compressed"), data)

	raw, err := os.ReadFile(filepath.Join(dir, id.String()+".meta"))
	require.NoError(t, err)
	var desc map[string]any
	require.NoError(t, json.Unmarshal(raw, &desc))
	assert.Equal(t, "alice", desc["username"])
	assert.Equal(t, "txt", desc["extension"])
	assert.Equal(t, float64(len("compressed")), desc["data size"])

	assertNoTempFiles(t, dir)
}

func TestStoreReadMissing(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Read(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreReadHonorsCanceledContext(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Read(ctx, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreScanRecoversOnlyCompleteEntries(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	good := uuid.New()
	_, err := store.Persist(ctx, good, []byte("abc"), Metadata{Username: "alice", FileExtension: "png"})
	require.NoError(t, err)

	orphan := uuid.New()
	writeFile(t, dir, orphan.String()+".data", "partial")

	missingField := uuid.New()
	writeFile(t, dir, missingField.String()+".meta", `{"username": "bob", "data size": 3}`)

	negative := uuid.New()
	writeFile(t, dir, negative.String()+".meta", `{"username": "bob", "extension": "txt", "data size": -1}`)

	wrongType := uuid.New()
	writeFile(t, dir, wrongType.String()+".meta", `{"username": "bob", "extension": "txt", "data size": "three"}`)

	notJSON := uuid.New()
	writeFile(t, dir, notJSON.String()+".meta", "{")

	writeFile(t, dir, "not-a-uuid.meta", `{"username": "eve", "extension": "txt", "data size": 1}`)
	writeFile(t, dir, "README.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, uuid.NewString()+".meta"), 0o755))

	records, err := store.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Record{
		ID:       good,
		Metadata: Metadata{Username: "alice", FileExtension: "png"},
		Size:     3,
	}, records[0])
}

func TestStoreScanRejectsNonCanonicalIDs(t *testing.T) {
	store, dir := newTestStore(t)
	id := uuid.New()
	braced := "{" + id.String() + "}"
	writeFile(t, dir, braced+".meta", `{"username": "a", "extension": "b", "data size": 1}`)

	records, err := store.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStoreScanFailsWhenDirectoryVanishes(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, os.RemoveAll(dir))

	_, err := store.Scan(context.Background())
	assert.Error(t, err)
}

func TestStorePersistMetaFailureLeavesOrphanData(t *testing.T) {
	store, dir := newTestStore(t)
	id := uuid.New()
	require.NoError(t, os.Mkdir(filepath.Join(dir, id.String()+".meta"), 0o755))

	_, err := store.Persist(context.Background(), id, []byte("payload"), Metadata{Username: "alice"})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, id.String()+".data"))
	assert.NoError(t, statErr, "data file is written before the meta file")
	assertNoTempFiles(t, dir)

	records, err := store.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNewStoreRejectsFilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := NewStore(path, discardLogger())
	assert.Error(t, err)
}

func TestNewStoreRequiresPath(t *testing.T) {
	_, err := NewStore("", discardLogger())
	assert.Error(t, err)
}

func TestNewStoreLocksDirectory(t *testing.T) {
	dir := t.TempDir()
	first, err := NewStore(dir, discardLogger())
	require.NoError(t, err)

	_, err = NewStore(dir, discardLogger())
	require.Error(t, err, "a second store on the same directory must be refused")

	require.NoError(t, first.Close())
	second, err := NewStore(dir, discardLogger())
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, tempPattern))
	require.NoError(t, err)
	assert.Empty(t, matches, "temporary files should be cleaned up")
}
