// Package engine runs the startup pipeline: probe the host, build the
// runtime configuration, tune the process environment and record the
// outcome. It is the one place that sequences those steps.
package engine

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/acetune/pkg/acetune/builder"
	"github.com/jamesainslie/acetune/pkg/acetune/history"
	"github.com/jamesainslie/acetune/pkg/acetune/logging"
	"github.com/jamesainslie/acetune/pkg/acetune/probe"
	"github.com/jamesainslie/acetune/pkg/acetune/tuner"
	"github.com/jamesainslie/acetune/pkg/acetune/types"
)

var logger = logging.Get("engine")

// Options controls one resolution.
type Options struct {
	// Host is probed for capabilities. Nil probes the running machine.
	Host probe.Host

	Overrides builder.Overrides

	// ThreadCap bounds each thread knob. Zero picks the default cap.
	ThreadCap int

	// SimulateMemory, when non-zero, replaces the probed total memory.
	SimulateMemory uint64

	// EnvFile is a dotenv file loaded into Environment before tuning.
	EnvFile string

	// Environment receives EnvFile, and its existing values take precedence
	// over the plan. It should be the environment Tuner writes to. Nil
	// means the process environment.
	Environment tuner.Environment

	// Tuner applies the plan. Nil computes the plan without applying it.
	Tuner *tuner.Tuner

	// Store records the resolution. Nil disables history.
	Store *history.Store
}

// Result is the outcome of a resolution.
type Result struct {
	Capabilities types.SystemCapabilities
	Config       types.RuntimeConfiguration
	Plan         tuner.Plan

	// Environment is the value every plan variable has once tuning is
	// applied: preset values win over computed ones.
	Environment map[string]string

	// Warnings holds every recoverable error in the order it was raised.
	Warnings []error

	// Applied is nil when the plan was not applied.
	Applied *tuner.ApplyResult

	// Record is nil when history is disabled or the write failed.
	Record *history.Record
}

// Resolve runs the pipeline. It fails only on precondition violations
// (zero host memory) and on an unreadable EnvFile; everything else is
// reported in Result.Warnings.
func Resolve(opts Options) (*Result, error) {
	host := opts.Host
	if host == nil {
		host = probe.NewHost()
	}

	res := &Result{}

	caps, err := probe.ProbeOrDefault(host)
	if err != nil {
		if errors.Is(err, probe.ErrInvalidMemory) {
			return nil, err
		}
		res.Warnings = append(res.Warnings, err)
	}
	if opts.SimulateMemory > 0 {
		logger.Info("simulating memory size", "probed", caps.TotalMemoryBytes, "simulated", opts.SimulateMemory)
		caps.TotalMemoryBytes = opts.SimulateMemory
		caps.AvailableMemoryBytes = min(caps.AvailableMemoryBytes, opts.SimulateMemory)
	}
	res.Capabilities = caps

	cfg, warnings := builder.Build(caps, opts.Overrides)
	res.Config = cfg
	res.Warnings = append(res.Warnings, warnings...)

	res.Plan = tuner.PlanFor(caps, cfg, opts.ThreadCap)

	env := opts.Environment
	if env == nil {
		env = tuner.ProcessEnv{}
	}

	if opts.EnvFile != "" {
		loaded, err := tuner.LoadFile(env, opts.EnvFile)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded env file", "path", opts.EnvFile, "keys", len(loaded))
	}

	res.Environment = tuner.Effective(env, res.Plan)

	if opts.Tuner != nil {
		applied, err := opts.Tuner.Apply(res.Plan)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Errorf("applying tuning: %w", err))
		} else {
			res.Applied = &applied
		}
	}

	if opts.Store != nil {
		rec := history.NewRecord(caps, cfg, res.Warnings)
		if err := opts.Store.Put(rec); err != nil {
			logger.Warn("failed to record history", "err", err)
		} else {
			res.Record = rec
		}
	}

	logger.Info("resolved runtime configuration",
		"device", cfg.Device, "tier", cfg.Tier, "batch", cfg.BatchSize,
		"precision", cfg.Precision, "warnings", len(res.Warnings))

	return res, nil
}
