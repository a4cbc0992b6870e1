package main

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/acetune/pkg/acetune/builder"
	"github.com/jamesainslie/acetune/pkg/acetune/device"
	"github.com/jamesainslie/acetune/pkg/acetune/memory"
	"github.com/jamesainslie/acetune/pkg/acetune/probe"
	"github.com/jamesainslie/acetune/pkg/acetune/report"
	"github.com/jamesainslie/acetune/pkg/acetune/types"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Show detected hardware capabilities",
	Long: `Probe the host and print its capabilities, the devices it can run on and
its memory tier. Nothing is applied or recorded.`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

// runProbe prints the capability snapshot with the default recommendation.
func runProbe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	caps, err := probe.ProbeOrDefault(probe.NewHost())
	var warnings []error
	if err != nil {
		if errors.Is(err, probe.ErrInvalidMemory) {
			return err
		}
		warnings = append(warnings, err)
	}

	simulated, err := cfg.SimulatedMemory()
	if err != nil {
		return err
	}
	if simulated > 0 {
		caps.TotalMemoryBytes = simulated
		caps.AvailableMemoryBytes = min(caps.AvailableMemoryBytes, simulated)
	}

	rc, buildWarnings := builder.Build(caps, builder.Overrides{})
	warnings = append(warnings, buildWarnings...)

	formatter, err := report.Get(cfg.Output)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := render(out, formatter, report.New(caps, rc, nil, warnings)); err != nil {
		return err
	}

	if cfg.Output == "pretty" || cfg.Output == "plain" {
		row := memory.RowFor(caps.TotalMemoryBytes)
		fmt.Fprintf(out, "\navailable devices: %v\n", device.Available(caps))
		fmt.Fprintf(out, "tier %s starts at %s, max batch %d\n", row.Tier, types.FormatSize(row.MinBytes), row.MaxBatch)
	}
	return nil
}
