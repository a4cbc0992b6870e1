package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rotatedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		if e.Name() != "acetune.log" && strings.HasPrefix(e.Name(), "acetune.") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestOpenRotating_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state", "acetune.log")

	w, err := OpenRotating(path, RotationConfig{})
	require.NoError(t, err)
	defer w.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenRotating_RotatesOversizedFileOnOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acetune.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 200)), 0o644))

	w, err := OpenRotating(path, RotationConfig{MaxSize: 100, MaxBackups: 3})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Len(t, rotatedFiles(t, dir), 1)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestRotatingFile_RotatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acetune.log")

	w, err := OpenRotating(path, RotationConfig{MaxSize: 64, MaxBackups: 10})
	require.NoError(t, err)

	line := []byte(strings.Repeat("y", 40) + "\n")
	for i := 0; i < 3; i++ {
		_, err := w.Write(line)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	assert.Len(t, rotatedFiles(t, dir), 2)
}

func TestRotatingFile_PrunesBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acetune.log")
	for _, ts := range []string{"2025-01-01-000000.000", "2025-01-02-000000.000", "2025-01-03-000000.000"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "acetune."+ts+".log"), []byte("old"), 0o644))
	}

	w := &rotatingFile{path: path, cfg: RotationConfig{MaxSize: 10, MaxBackups: 2}}
	require.NoError(t, w.open())
	require.NoError(t, w.rotate())
	require.NoError(t, w.Close())

	names := rotatedFiles(t, dir)
	assert.Len(t, names, 2)
	assert.NotContains(t, names, "acetune.2025-01-01-000000.000.log")
}

func TestRotatingFile_WriteAfterClose(t *testing.T) {
	w, err := OpenRotating(filepath.Join(t.TempDir(), "acetune.log"), RotationConfig{})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
