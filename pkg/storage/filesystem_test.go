package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("dtr/2026/job-1.csv", []byte("id,hours\n1,4\n"))
	require.NoError(t, err)
	assert.Equal(t, "dtr/2026/job-1.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, file.Close())
	require.NoError(t, err)
	assert.Equal(t, "id,hours\n1,4\n", string(data))

	_, err = os.Stat(store.Path(rel) + ".part")
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Delete(rel))
	require.NoError(t, store.Delete(rel))
	_, err = store.Open(rel)
	assert.Error(t, err)
}

func TestLocalStorageRejectsEscapingNames(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../secret.csv", "dtr/../../x.csv", "/etc/passwd", "", ".."} {
		_, err := store.Save(name, []byte("x"))
		assert.ErrorIs(t, err, ErrOutsideBase, name)
		_, err = store.Open(name)
		assert.ErrorIs(t, err, ErrOutsideBase, name)
		assert.ErrorIs(t, store.Delete(name), ErrOutsideBase, name)
		assert.Empty(t, store.Path(name), name)
	}

	_, err = store.Save("dtr/../roster.csv", []byte("ok"))
	assert.NoError(t, err)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old/a.pdf", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("fresh.pdf", []byte("b"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old", "a.pdf"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old/a.pdf"}, deleted)

	_, err = os.Stat(filepath.Join(dir, "fresh.pdf"))
	assert.NoError(t, err)
}
