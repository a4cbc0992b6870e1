package probe

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// baseHost carries the probes that work the same on every platform.
// Platform files embed it and add memory, chip and release lookups.
type baseHost struct{}

func (baseHost) GOOS() string { return runtime.GOOS }

func (baseHost) NumCPU() int { return runtime.NumCPU() }

func (baseHost) Hostname() (string, error) { return os.Hostname() }

// HasDiscreteGPU looks for an NVIDIA device node or driver tooling.
func (baseHost) HasDiscreteGPU() bool {
	if matches, _ := filepath.Glob("/dev/nvidia[0-9]*"); len(matches) > 0 {
		return true
	}
	if _, err := exec.LookPath("nvidia-smi"); err == nil {
		return true
	}
	return false
}

// Containerized checks the marker files docker and podman leave behind,
// and the container variable set by systemd-nspawn and friends.
func (baseHost) Containerized() bool {
	if os.Getenv("container") != "" {
		return true
	}
	for _, marker := range []string{"/.dockerenv", "/run/.containerenv"} {
		if _, err := os.Stat(marker); err == nil {
			return true
		}
	}
	return false
}
