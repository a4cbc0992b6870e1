// Package types provides the core data types shared by the acetune
// configuration engine: host capability snapshots, the runtime configuration
// handed to the generation pipeline, and the enumerations both are built from.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Platform identifies the host operating system family.
type Platform string

const (
	// PlatformUnixDesktop covers macOS and Linux desktops/servers.
	PlatformUnixDesktop Platform = "desktop-unix-like"
	// PlatformOther is any platform the probe does not classify.
	PlatformOther Platform = "other"
)

// Architecture identifies the CPU instruction set.
type Architecture string

const (
	ArchARM64 Architecture = "arm64"
	ArchX8664 Architecture = "x86_64"
	ArchOther Architecture = "other"
)

// AcceleratorKind describes the accelerator detected on the host.
type AcceleratorKind string

const (
	// AcceleratorUnified is a GPU sharing system memory with the CPU.
	AcceleratorUnified AcceleratorKind = "unified-memory-gpu"
	// AcceleratorDiscrete is a GPU with dedicated memory.
	AcceleratorDiscrete AcceleratorKind = "discrete-gpu"
	// AcceleratorNone means no usable accelerator was found.
	AcceleratorNone AcceleratorKind = "none"
)

// Device is an execution device for the generation pipeline.
type Device string

const (
	DeviceUnifiedGPU  Device = "unified-memory-gpu"
	DeviceCPU         Device = "cpu"
	DeviceDiscreteGPU Device = "discrete-gpu"
)

// Precision is the numeric precision used by the pipeline.
type Precision string

const (
	PrecisionHalf   Precision = "half"
	PrecisionSingle Precision = "single"
)

// Backend tags the numeric backend the pipeline runs on.
type Backend string

const (
	// BackendPyTorch is the default eager backend, available on every device.
	BackendPyTorch Backend = "pt"
	// BackendVLLM is the paged-attention serving backend. It requires a
	// discrete GPU.
	BackendVLLM Backend = "vllm"
)

// Tier is a memory capability bucket.
type Tier string

const (
	TierConstrained Tier = "constrained"
	TierBalanced    Tier = "balanced"
	TierAmple       Tier = "ample"
	TierAbundant    Tier = "abundant"
)

// UnknownChip is the chip name used when the probe cannot identify the CPU.
const UnknownChip = "unknown"

// Parse errors.
var (
	ErrInvalidDevice    = errors.New("invalid device")
	ErrInvalidPrecision = errors.New("invalid precision")
	ErrInvalidBackend   = errors.New("invalid backend")
)

// ParseDevice parses a device name. "auto" and the empty string return
// (nil, nil), meaning no explicit device was requested. The aliases used by
// common numeric runtimes ("mps", "cuda") are accepted.
func ParseDevice(s string) (*Device, error) {
	var d Device
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return nil, nil
	case "cpu":
		d = DeviceCPU
	case "unified-memory-gpu", "mps":
		d = DeviceUnifiedGPU
	case "discrete-gpu", "cuda", "gpu":
		d = DeviceDiscreteGPU
	default:
		return nil, fmt.Errorf("%w: %q (want auto, cpu, unified-memory-gpu or discrete-gpu)", ErrInvalidDevice, s)
	}
	return &d, nil
}

// ParsePrecision parses a precision name. "float16"/"fp16" and
// "float32"/"fp32" are accepted as aliases.
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "half", "float16", "fp16":
		return PrecisionHalf, nil
	case "single", "float32", "fp32":
		return PrecisionSingle, nil
	default:
		return "", fmt.Errorf("%w: %q (want half or single)", ErrInvalidPrecision, s)
	}
}

// ParseBackend parses a backend tag.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pt", "pytorch", "torch":
		return BackendPyTorch, nil
	case "vllm":
		return BackendVLLM, nil
	default:
		return "", fmt.Errorf("%w: %q (want pt or vllm)", ErrInvalidBackend, s)
	}
}

// OSVersion is a major.minor.patch version triple.
type OSVersion struct {
	Major int `json:"major" yaml:"major" toml:"major"`
	Minor int `json:"minor" yaml:"minor" toml:"minor"`
	Patch int `json:"patch" yaml:"patch" toml:"patch"`
}

// String returns the version as "major.minor.patch".
func (v OSVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseOSVersion parses a dotted version string such as "14.2" or
// "6.8.0-45-generic". Missing components are zero; anything after the
// first non-numeric character of a component is ignored.
func ParseOSVersion(s string) (*OSVersion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty version")
	}

	parts := strings.SplitN(s, ".", 3)
	nums := make([]int, 3)
	for i, p := range parts {
		n, ok := leadingInt(p)
		if !ok {
			if i == 0 {
				return nil, fmt.Errorf("invalid version %q", s)
			}
			break
		}
		nums[i] = n
	}

	return &OSVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// leadingInt parses the decimal digits at the start of s.
func leadingInt(s string) (int, bool) {
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
	}
	return n, digits > 0
}

// SystemCapabilities is an immutable snapshot of what the host offers.
// It is produced once per process by the probe and passed by value.
type SystemCapabilities struct {
	Platform         Platform     `json:"platform" yaml:"platform" toml:"platform"`
	Architecture     Architecture `json:"architecture" yaml:"architecture" toml:"architecture"`
	ChipName         string       `json:"chip_name" yaml:"chip_name" toml:"chip_name"`
	TotalMemoryBytes uint64       `json:"total_memory_bytes" yaml:"total_memory_bytes" toml:"total_memory_bytes"`

	// AvailableMemoryBytes is the memory free at probe time, zero when
	// unknown. Tiers are drawn from TotalMemoryBytes only.
	AvailableMemoryBytes uint64 `json:"available_memory_bytes,omitempty" yaml:"available_memory_bytes,omitempty" toml:"available_memory_bytes,omitempty"`

	AcceleratorKind AcceleratorKind `json:"accelerator_kind" yaml:"accelerator_kind" toml:"accelerator_kind"`

	// OSVersion is nil when the OS version could not be determined.
	OSVersion *OSVersion `json:"os_version,omitempty" yaml:"os_version,omitempty" toml:"os_version,omitempty"`

	// LogicalCores is the number of logical CPUs usable by the process.
	LogicalCores int `json:"logical_cores" yaml:"logical_cores" toml:"logical_cores"`

	// Containerized is true when the process appears to run in a container.
	Containerized bool `json:"containerized" yaml:"containerized" toml:"containerized"`

	Hostname string `json:"hostname,omitempty" yaml:"hostname,omitempty" toml:"hostname,omitempty"`
}

// TotalMemoryGiB returns total memory in whole GiB, rounded down.
func (c SystemCapabilities) TotalMemoryGiB() uint64 {
	return c.TotalMemoryBytes / uint64(GiB)
}

// RuntimeConfiguration is the engine's output contract with the generation
// pipeline. Once built it is owned by the caller and never mutated by the
// engine.
type RuntimeConfiguration struct {
	Device                Device    `json:"device" yaml:"device" toml:"device"`
	OffloadToCPU          bool      `json:"offload_to_cpu" yaml:"offload_to_cpu" toml:"offload_to_cpu"`
	OffloadSecondaryToCPU bool      `json:"offload_secondary_to_cpu" yaml:"offload_secondary_to_cpu" toml:"offload_secondary_to_cpu"`
	UseFusedAttention     bool      `json:"use_fused_attention" yaml:"use_fused_attention" toml:"use_fused_attention"`
	Backend               Backend   `json:"backend" yaml:"backend" toml:"backend"`
	BatchSize             int       `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	Precision             Precision `json:"precision" yaml:"precision" toml:"precision"`

	// Tier is the capability tier the recommendation was drawn from.
	// Diagnostic only; the pipeline does not read it.
	Tier Tier `json:"tier" yaml:"tier" toml:"tier"`
}
