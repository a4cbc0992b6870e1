// Package builder assembles the final RuntimeConfiguration.
//
// Values are resolved with explicit overrides first, then the device and
// memory policy recommendation, then the safe defaults. Inconsistent
// overrides are never resolved silently: Build still returns a usable
// configuration and reports every problem as a warning.
package builder

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/acetune/pkg/acetune/device"
	"github.com/jamesainslie/acetune/pkg/acetune/logging"
	"github.com/jamesainslie/acetune/pkg/acetune/memory"
	"github.com/jamesainslie/acetune/pkg/acetune/types"
)

var logger = logging.Get("builder")

// ErrConfigConflict matches any *ConflictError.
var ErrConfigConflict = errors.New("configuration conflict")

// ConflictError describes an override that is inconsistent with the host
// or with another setting.
type ConflictError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s=%s: %s", e.Field, e.Value, e.Reason)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConfigConflict
}

// Overrides holds caller-supplied values. A nil field was not supplied.
type Overrides struct {
	Device                *types.Device
	Backend               *types.Backend
	OffloadToCPU          *bool
	OffloadSecondaryToCPU *bool
	BatchSize             *int
	Precision             *types.Precision
	UseFusedAttention     *bool

	// SkipAccelerator drops unified-memory-gpu from auto device selection.
	SkipAccelerator bool
}

// Defaults is the configuration used where neither an override nor a
// recommendation applies.
func Defaults() types.RuntimeConfiguration {
	return types.RuntimeConfiguration{
		Device:                types.DeviceCPU,
		OffloadToCPU:          true,
		OffloadSecondaryToCPU: true,
		Backend:               types.BackendPyTorch,
		BatchSize:             1,
		Precision:             types.PrecisionHalf,
		Tier:                  types.TierConstrained,
	}
}

// Build resolves the runtime configuration for caps. The returned warnings
// are ordered and contain *device.UnsupportedDeviceOverrideError and
// *ConflictError values. Build is deterministic for equal inputs.
func Build(caps types.SystemCapabilities, o Overrides) (types.RuntimeConfiguration, []error) {
	var warnings []error
	cfg := Defaults()

	dev, err := device.SelectWith(caps, o.Device, device.Options{SkipAccelerator: o.SkipAccelerator})
	if err != nil {
		warnings = append(warnings, err)
	}
	cfg.Device = dev

	rec := memory.Recommend(caps, dev)
	cfg.Tier = rec.Tier
	cfg.OffloadToCPU = rec.OffloadToCPU
	cfg.OffloadSecondaryToCPU = rec.OffloadSecondaryToCPU
	cfg.BatchSize = rec.BatchSize
	cfg.Precision = rec.Precision
	cfg.UseFusedAttention = rec.UseFusedAttention

	if o.OffloadToCPU != nil {
		cfg.OffloadToCPU = *o.OffloadToCPU
		if !*o.OffloadToCPU && rec.Tier == types.TierConstrained {
			warnings = append(warnings, &ConflictError{
				Field:  "offload_to_cpu",
				Value:  "false",
				Reason: fmt.Sprintf("%s tier needs offload to fit in %s", rec.Tier, types.FormatSize(caps.TotalMemoryBytes)),
			})
		}
	}

	if o.OffloadSecondaryToCPU != nil {
		cfg.OffloadSecondaryToCPU = *o.OffloadSecondaryToCPU
		if !*o.OffloadSecondaryToCPU && rec.OffloadSecondaryToCPU && !rec.SecondaryRelaxable {
			warnings = append(warnings, &ConflictError{
				Field:  "offload_secondary_to_cpu",
				Value:  "false",
				Reason: fmt.Sprintf("%s tier needs secondary offload", rec.Tier),
			})
		}
	}

	if o.BatchSize != nil {
		switch n := *o.BatchSize; {
		case n <= 0:
			warnings = append(warnings, &ConflictError{
				Field:  "batch_size",
				Value:  fmt.Sprint(n),
				Reason: fmt.Sprintf("must be positive, using %d", rec.BatchSize),
			})
		case n > rec.MaxBatch:
			cfg.BatchSize = n
			warnings = append(warnings, &ConflictError{
				Field:  "batch_size",
				Value:  fmt.Sprint(n),
				Reason: fmt.Sprintf("exceeds %d, the largest feasible batch for the %s tier on %s", rec.MaxBatch, rec.Tier, dev),
			})
		default:
			cfg.BatchSize = n
		}
	}

	if o.Precision != nil {
		cfg.Precision = *o.Precision
	}

	if o.UseFusedAttention != nil {
		cfg.UseFusedAttention = *o.UseFusedAttention
		if *o.UseFusedAttention && dev == types.DeviceUnifiedGPU {
			warnings = append(warnings, &ConflictError{
				Field:  "use_fused_attention",
				Value:  "true",
				Reason: "fused attention kernels are not supported on " + string(dev),
			})
		}
	}

	if o.Backend != nil {
		cfg.Backend = *o.Backend
		if *o.Backend == types.BackendVLLM && dev != types.DeviceDiscreteGPU {
			warnings = append(warnings, &ConflictError{
				Field:  "backend",
				Value:  string(*o.Backend),
				Reason: "requires " + string(types.DeviceDiscreteGPU) + ", selected device is " + string(dev),
			})
		}
	}

	for _, w := range warnings {
		logger.Warn("configuration warning", "error", w)
	}
	logger.Debug("configuration built", "device", cfg.Device, "tier", cfg.Tier,
		"batch", cfg.BatchSize, "precision", cfg.Precision, "warnings", len(warnings))

	return cfg, warnings
}
