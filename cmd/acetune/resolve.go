package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jamesainslie/acetune/pkg/acetune/config"
	"github.com/jamesainslie/acetune/pkg/acetune/engine"
	"github.com/jamesainslie/acetune/pkg/acetune/history"
	"github.com/jamesainslie/acetune/pkg/acetune/report"
	"github.com/jamesainslie/acetune/pkg/acetune/tuner"
	"github.com/spf13/cobra"
)

// runResolve probes the host, resolves the configuration and prints the
// report. The tuning is computed against a copy of the caller's environment;
// use `acetune run` to apply it to a launched pipeline.
func runResolve(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts, err := engineOptions(cfg)
	if err != nil {
		return err
	}

	formatter, err := report.Get(cfg.Output)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, report.Available())
	}

	store := attachHistory(cfg, &opts)
	if store != nil {
		defer store.Close()
	}

	res, err := engine.Resolve(opts)
	if err != nil {
		return err
	}

	r := report.New(res.Capabilities, res.Config, res.Environment, res.Warnings)
	if err := render(cmd.OutOrStdout(), formatter, r); err != nil {
		return err
	}

	if res.Record != nil {
		printVerbose("recorded as %s", res.Record.ShortID())
	}

	return nil
}

// engineOptions translates the loaded configuration into pipeline options.
// The environment is a snapshot of the process environment, so values the
// caller already exported take precedence and nothing is written back.
func engineOptions(cfg *config.Config) (engine.Options, error) {
	overrides, err := cfg.Overrides()
	if err != nil {
		return engine.Options{}, err
	}

	simulated, err := cfg.SimulatedMemory()
	if err != nil {
		return engine.Options{}, err
	}

	opts := engine.Options{
		Overrides:      overrides,
		ThreadCap:      cfg.ThreadCap,
		SimulateMemory: simulated,
		EnvFile:        cfg.EnvFile,
		Environment:    tuner.SnapshotProcess(),
	}
	return opts, nil
}

// attachHistory opens the history store into opts when recording is on.
// The caller closes the returned store; nil means history is off.
func attachHistory(cfg *config.Config, opts *engine.Options) *history.Store {
	if !recordHistory(cfg) {
		return nil
	}
	store, err := openHistory(cfg)
	if err != nil {
		printWarning("history disabled: %v", err)
		return nil
	}
	opts.Store = store
	return store
}

// recordHistory reports whether this run should be stored.
func recordHistory(cfg *config.Config) bool {
	return cfg.History.Enabled && !v.GetBool("no_history")
}

// openHistory opens the configured history store, creating its directory.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if err := os.MkdirAll(cfg.History.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	return history.Open(cfg.History.Path)
}

// render formats r and writes it to w.
func render(w io.Writer, f report.Formatter, r *report.Report) error {
	var buf bytes.Buffer
	if err := f.Format(&buf, r); err != nil {
		return fmt.Errorf("formatting report: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
