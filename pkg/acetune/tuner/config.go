package tuner

import "github.com/jamesainslie/acetune/pkg/acetune/types"

// Thread caps.
const (
	// DefaultThreadCap bounds each pool on bare-metal hosts. Beyond this the
	// math libraries contend with the accelerator driver threads.
	DefaultThreadCap = 8

	// ContainerThreadCap is used inside containers, where the visible core
	// count often exceeds the CPU quota.
	ContainerThreadCap = 4
)

// Thread-pool knobs, one per math backend.
const (
	// EnvOMPThreads sizes the general-purpose OpenMP pool.
	EnvOMPThreads = "OMP_NUM_THREADS"

	// EnvMKLThreads and EnvOpenBLASThreads size the linear-algebra pools.
	EnvMKLThreads      = "MKL_NUM_THREADS"
	EnvOpenBLASThreads = "OPENBLAS_NUM_THREADS"

	// EnvVecLibThreads sizes Accelerate's vectorized library on macOS.
	EnvVecLibThreads = "VECLIB_MAXIMUM_THREADS"
)

// Flags written alongside the thread counts.
const (
	EnvTokenizersParallelism = "TOKENIZERS_PARALLELISM"
	EnvMallocArenaMax        = "MALLOC_ARENA_MAX"

	// EnvMPSFallback and EnvMPSHighWatermark are only read by the
	// unified-memory-gpu backend.
	EnvMPSFallback      = "PYTORCH_ENABLE_MPS_FALLBACK"
	EnvMPSHighWatermark = "PYTORCH_MPS_HIGH_WATERMARK_RATIO"
)

const mallocArenaMax = "4"

// threadKnobs lists every thread-pool knob Derive fills.
var threadKnobs = []string{
	EnvOMPThreads,
	EnvMKLThreads,
	EnvOpenBLASThreads,
	EnvVecLibThreads,
}

// DefaultCap returns the thread cap for caps: ContainerThreadCap inside a
// container, DefaultThreadCap otherwise.
func DefaultCap(caps types.SystemCapabilities) int {
	if caps.Containerized {
		return ContainerThreadCap
	}
	return DefaultThreadCap
}

// Derive returns the thread tuning for caps using DefaultCap.
func Derive(caps types.SystemCapabilities) ThreadTuning {
	return DeriveWithCap(caps, DefaultCap(caps))
}

// DeriveWithCap sets every knob to min(LogicalCores, threadCap), never
// below one. A non-positive threadCap is treated as DefaultCap(caps).
func DeriveWithCap(caps types.SystemCapabilities, threadCap int) ThreadTuning {
	if threadCap <= 0 {
		threadCap = DefaultCap(caps)
	}

	threads := min(caps.LogicalCores, threadCap)
	threads = max(threads, 1)

	tuning := make(ThreadTuning, len(threadKnobs))
	for _, knob := range threadKnobs {
		tuning[knob] = threads
	}
	return tuning
}
