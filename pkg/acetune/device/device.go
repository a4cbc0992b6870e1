// Package device selects the execution device for the generation pipeline.
//
// Without an explicit request the first available device in the chain
// unified-memory-gpu, cpu, discrete-gpu wins. Since cpu is always available,
// a discrete GPU is only used when asked for. An explicit request that the
// host cannot honour falls back to the same chain and is reported as an
// *UnsupportedDeviceOverrideError.
package device

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/acetune/pkg/acetune/logging"
	"github.com/jamesainslie/acetune/pkg/acetune/types"
)

var logger = logging.Get("device")

// ErrUnsupportedDeviceOverride matches any *UnsupportedDeviceOverrideError.
var ErrUnsupportedDeviceOverride = errors.New("unsupported device override")

// UnsupportedDeviceOverrideError reports a requested device that is absent
// on the host, and the device used instead.
type UnsupportedDeviceOverrideError struct {
	Requested types.Device
	Selected  types.Device
}

func (e *UnsupportedDeviceOverrideError) Error() string {
	return fmt.Sprintf("requested device %s is not available on this host, using %s", e.Requested, e.Selected)
}

func (e *UnsupportedDeviceOverrideError) Is(target error) bool {
	return target == ErrUnsupportedDeviceOverride
}

// chain is the auto-selection priority order.
var chain = []types.Device{
	types.DeviceUnifiedGPU,
	types.DeviceCPU,
	types.DeviceDiscreteGPU,
}

// Options tunes the auto chain.
type Options struct {
	// SkipAccelerator drops unified-memory-gpu from the auto chain, so
	// auto-selection lands on cpu. It does not affect explicit requests.
	SkipAccelerator bool
}

// IsAvailable reports whether the host can run on d.
func IsAvailable(caps types.SystemCapabilities, d types.Device) bool {
	switch d {
	case types.DeviceCPU:
		return true
	case types.DeviceUnifiedGPU:
		return caps.AcceleratorKind == types.AcceleratorUnified && caps.Architecture == types.ArchARM64
	case types.DeviceDiscreteGPU:
		return caps.AcceleratorKind == types.AcceleratorDiscrete
	default:
		return false
	}
}

// Available lists the host's devices in chain order.
func Available(caps types.SystemCapabilities) []types.Device {
	var out []types.Device
	for _, d := range chain {
		if IsAvailable(caps, d) {
			out = append(out, d)
		}
	}
	return out
}

// Select picks a device using the default options.
func Select(caps types.SystemCapabilities, requested *types.Device) (types.Device, error) {
	return SelectWith(caps, requested, Options{})
}

// SelectWith picks a device for caps. A nil request uses the auto chain.
// When the request is unavailable the auto-chain device is returned
// together with an *UnsupportedDeviceOverrideError; the device is always
// valid for the host.
func SelectWith(caps types.SystemCapabilities, requested *types.Device, opts Options) (types.Device, error) {
	auto := autoSelect(caps, opts)
	if requested == nil {
		return auto, nil
	}

	if IsAvailable(caps, *requested) {
		return *requested, nil
	}

	err := &UnsupportedDeviceOverrideError{Requested: *requested, Selected: auto}
	logger.Warn("device override rejected", "requested", *requested, "selected", auto,
		"accelerator", caps.AcceleratorKind, "arch", caps.Architecture)
	return auto, err
}

func autoSelect(caps types.SystemCapabilities, opts Options) types.Device {
	for _, d := range chain {
		if opts.SkipAccelerator && d == types.DeviceUnifiedGPU {
			continue
		}
		if IsAvailable(caps, d) {
			return d
		}
	}
	return types.DeviceCPU
}
