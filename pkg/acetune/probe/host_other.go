//go:build !darwin && !linux

package probe

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("not supported on " + runtime.GOOS)

type otherHost struct {
	baseHost
}

// NewHost returns the introspection source for the running host. Memory
// detection is not implemented here, so probing yields a *ProbeError and
// callers fall back to Default.
func NewHost() Host {
	return otherHost{}
}

func (otherHost) Arch() (string, error) { return runtime.GOARCH, nil }

func (otherHost) TotalMemory() (uint64, error) { return 0, errUnsupported }

func (otherHost) AvailableMemory() (uint64, error) { return 0, errUnsupported }

func (otherHost) ChipName() (string, error) { return "", errUnsupported }

func (otherHost) OSRelease() (string, error) { return "", errUnsupported }
