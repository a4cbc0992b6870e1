// Package tuner derives thread-pool sizing for the numeric runtimes under the
// generation pipeline and applies it to the process environment.
//
// The runtimes read these variables once, when they build their own thread
// pools, so Apply must run at startup before any of them initialise. Apply
// never overrides a variable that was already set when the tuner first ran,
// and a Tuner applies at most one plan for its lifetime.
package tuner

import (
	"sort"
	"strconv"

	"github.com/jamesainslie/acetune/pkg/acetune/types"
)

// ThreadTuning maps a thread-pool environment knob to its thread count.
type ThreadTuning map[string]int

// Keys returns the knob names in sorted order.
func (t ThreadTuning) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Plan is everything the tuner writes: thread counts plus string flags.
type Plan struct {
	Threads ThreadTuning
	Flags   map[string]string
}

// Vars flattens the plan into environment variable assignments.
func (p Plan) Vars() map[string]string {
	vars := make(map[string]string, len(p.Threads)+len(p.Flags))
	for k, n := range p.Threads {
		vars[k] = strconv.Itoa(n)
	}
	for k, v := range p.Flags {
		vars[k] = v
	}
	return vars
}

// PlanFor builds the full plan for a host running cfg. threadCap <= 0
// selects DefaultCap(caps).
func PlanFor(caps types.SystemCapabilities, cfg types.RuntimeConfiguration, threadCap int) Plan {
	if threadCap <= 0 {
		threadCap = DefaultCap(caps)
	}

	flags := map[string]string{
		EnvTokenizersParallelism: "false",
		EnvMallocArenaMax:        mallocArenaMax,
	}
	if cfg.Device == types.DeviceUnifiedGPU {
		flags[EnvMPSFallback] = "1"
		flags[EnvMPSHighWatermark] = "0.0"
	}

	return Plan{
		Threads: DeriveWithCap(caps, threadCap),
		Flags:   flags,
	}
}
