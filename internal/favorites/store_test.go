package favorites

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestToggleAndPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := Open(path, testLogger())
	require.NoError(t, err)

	assert.True(t, s.Toggle("seed-1"))
	assert.True(t, s.Toggle("db-7"))
	assert.True(t, s.IsFavorite("seed-1"))
	assert.Equal(t, []string{"seed-1", "db-7"}, s.Favorites())

	// Toggling again removes it.
	assert.False(t, s.Toggle("seed-1"))
	assert.False(t, s.IsFavorite("seed-1"))

	s.SetDefaultTruck(7)

	// A fresh store sees the same state.
	reopened, err := Open(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"db-7"}, reopened.Favorites())
	assert.Equal(t, int64(7), reopened.DefaultTruck())
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nope", "state.json"), testLogger())
	require.NoError(t, err)
	assert.Empty(t, s.Favorites())
	assert.Zero(t, s.DefaultTruck())

	// First mutation creates the directory and file.
	s.Toggle("seed-2")
	reopened, err := Open(s.path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"seed-2"}, reopened.Favorites())
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path, testLogger())
	assert.Error(t, err)
}
