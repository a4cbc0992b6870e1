//go:build linux

package probe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMeminfo(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meminfo")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMemAvailable(t *testing.T) {
	path := writeMeminfo(t, "MemTotal:       16314728 kB\nMemFree:         1021332 kB\nMemAvailable:    9876543 kB\n")

	got, err := memAvailable(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(9876543*1024), got)
}

func TestMemAvailable_Missing(t *testing.T) {
	_, err := memAvailable(writeMeminfo(t, "MemTotal: 16314728 kB\n"))
	assert.Error(t, err)

	_, err = memAvailable(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestLinuxHost_AvailableMemory(t *testing.T) {
	h := linuxHost{}
	avail, err := h.AvailableMemory()
	require.NoError(t, err)

	total, err := h.TotalMemory()
	require.NoError(t, err)
	assert.LessOrEqual(t, avail, total)
}
