// Package probe inspects the host and produces an immutable
// types.SystemCapabilities snapshot.
//
// Soft failures (chip name, OS version, available memory) degrade to the "unknown" sentinel or
// a nil version. Hard failures (architecture or total memory) are reported
// as *ProbeError so the caller can substitute Default. Memory reported as
// zero is a precondition violation and returns ErrInvalidMemory, which must
// not be papered over.
package probe

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/jamesainslie/acetune/pkg/acetune/logging"
	"github.com/jamesainslie/acetune/pkg/acetune/types"
)

var logger = logging.Get("probe")

// DefaultTotalMemory is the memory assumed when detection fails.
const DefaultTotalMemory = uint64(8 * types.GiB)

// ErrInvalidMemory is returned when the host reports zero total memory.
var ErrInvalidMemory = errors.New("host reported zero total memory")

// ProbeError reports a required capability that could not be determined.
type ProbeError struct {
	// Field is the capability that could not be read.
	Field string
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe: cannot determine %s: %v", e.Field, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Host is the raw introspection surface the probe reads from.
// Each platform provides its own implementation; tests supply fakes.
type Host interface {
	// GOOS returns the operating system name in runtime.GOOS form.
	GOOS() string

	// Arch returns the hardware architecture in runtime.GOARCH form.
	// Implementations report the native architecture even when the
	// process runs under binary translation.
	Arch() (string, error)

	TotalMemory() (uint64, error)

	// AvailableMemory returns the memory the OS could hand out now
	// without swapping.
	AvailableMemory() (uint64, error)

	ChipName() (string, error)
	OSRelease() (string, error)
	NumCPU() int

	// HasDiscreteGPU reports whether a discrete accelerator is present.
	HasDiscreteGPU() bool

	Containerized() bool
	Hostname() (string, error)
}

// Probe inspects the running host.
func Probe() (types.SystemCapabilities, error) {
	return ProbeHost(NewHost())
}

// ProbeHost builds a capability snapshot from h.
func ProbeHost(h Host) (types.SystemCapabilities, error) {
	caps := types.SystemCapabilities{
		Platform:        platformFor(h.GOOS()),
		ChipName:        types.UnknownChip,
		AcceleratorKind: types.AcceleratorNone,
		LogicalCores:    max(h.NumCPU(), 1),
		Containerized:   h.Containerized(),
	}

	arch, err := h.Arch()
	if err != nil || arch == "" {
		if err == nil {
			err = errors.New("empty architecture")
		}
		return caps, &ProbeError{Field: "architecture", Err: err}
	}
	caps.Architecture = architectureFor(arch)

	mem, err := h.TotalMemory()
	if err != nil {
		return caps, &ProbeError{Field: "total_memory", Err: err}
	}
	if mem == 0 {
		return caps, ErrInvalidMemory
	}
	caps.TotalMemoryBytes = mem

	if avail, err := h.AvailableMemory(); err != nil {
		logger.Debug("available memory unavailable", "err", err)
	} else {
		caps.AvailableMemoryBytes = min(avail, mem)
	}

	if chip, err := h.ChipName(); err != nil {
		logger.Debug("chip name unavailable", "err", err)
	} else if chip = strings.TrimSpace(chip); chip != "" {
		caps.ChipName = chip
	}

	if release, err := h.OSRelease(); err != nil {
		logger.Debug("os version unavailable", "err", err)
	} else if v, err := types.ParseOSVersion(release); err != nil {
		logger.Debug("os version unparseable", "release", release, "err", err)
	} else {
		caps.OSVersion = v
	}

	if name, err := h.Hostname(); err == nil {
		caps.Hostname = name
	}

	caps.AcceleratorKind = detectAccelerator(h.GOOS(), caps.Architecture, caps.ChipName, h.HasDiscreteGPU())

	logger.Debug("probed host",
		"platform", caps.Platform,
		"arch", caps.Architecture,
		"chip", caps.ChipName,
		"memory", types.FormatSize(caps.TotalMemoryBytes),
		"available", types.FormatSize(caps.AvailableMemoryBytes),
		"accelerator", caps.AcceleratorKind,
		"cores", caps.LogicalCores,
	)

	return caps, nil
}

// Default returns the conservative snapshot used when probing fails.
func Default() types.SystemCapabilities {
	return types.SystemCapabilities{
		Platform:         types.PlatformOther,
		Architecture:     types.ArchOther,
		ChipName:         types.UnknownChip,
		TotalMemoryBytes: DefaultTotalMemory,
		AcceleratorKind:  types.AcceleratorNone,
		LogicalCores:     max(runtime.NumCPU(), 1),
	}
}

// ProbeOrDefault probes h and substitutes Default on a *ProbeError, logging
// a warning. The probe error is still returned alongside the default so
// callers can surface it. ErrInvalidMemory is returned as is with a zero
// snapshot.
func ProbeOrDefault(h Host) (types.SystemCapabilities, error) {
	caps, err := ProbeHost(h)
	if err == nil {
		return caps, nil
	}

	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		logger.Warn("hardware probe failed, using conservative defaults",
			"field", probeErr.Field, "err", probeErr.Err)
		def := Default()
		def.LogicalCores = caps.LogicalCores
		def.Containerized = caps.Containerized
		return def, err
	}

	return types.SystemCapabilities{}, err
}

func platformFor(goos string) types.Platform {
	switch goos {
	case "darwin", "linux", "freebsd", "openbsd", "netbsd":
		return types.PlatformUnixDesktop
	default:
		return types.PlatformOther
	}
}

func architectureFor(goarch string) types.Architecture {
	switch strings.ToLower(goarch) {
	case "arm64", "aarch64":
		return types.ArchARM64
	case "amd64", "x86_64":
		return types.ArchX8664
	default:
		return types.ArchOther
	}
}

// detectAccelerator classifies the accelerator. Apple silicon exposes a
// unified-memory GPU; a discrete device is only reported when one was
// actually found.
func detectAccelerator(goos string, arch types.Architecture, chip string, discrete bool) types.AcceleratorKind {
	if goos == "darwin" && (arch == types.ArchARM64 || strings.Contains(strings.ToLower(chip), "apple")) {
		return types.AcceleratorUnified
	}
	if discrete {
		return types.AcceleratorDiscrete
	}
	return types.AcceleratorNone
}
