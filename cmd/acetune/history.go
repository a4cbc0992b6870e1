package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jamesainslie/acetune/pkg/acetune/config"
	"github.com/jamesainslie/acetune/pkg/acetune/history"
	"github.com/jamesainslie/acetune/pkg/acetune/report"
	"github.com/jamesainslie/acetune/pkg/acetune/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past resolutions",
	Long: `View the configurations acetune resolved on this machine.

Each run records the probed capabilities, the resolved configuration and any
warnings. Records are never used to influence later runs.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific resolution",
	Long:  `Display a recorded resolution by its ID or a unique ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// withHistory opens the configured store for the duration of fn.
func withHistory(fn func(cfg *config.Config, s *history.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer s.Close()

	return fn(cfg, s)
}

// runHistory lists recent resolutions.
func runHistory(cmd *cobra.Command, args []string) error {
	return withHistory(func(_ *config.Config, s *history.Store) error {
		records, err := s.List(historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}

		if len(records) == 0 {
			printInfo("No history entries found.")
			printInfo("Run 'acetune' to resolve a configuration.")
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\n%-10s  %-20s  %-19s  %-11s  %-6s  %s\n", "ID", "TIME", "DEVICE", "TIER", "BATCH", "MEMORY")
		fmt.Fprintln(out, strings.Repeat("-", 86))

		for _, r := range records {
			fmt.Fprintf(out, "%-10s  %-20s  %-19s  %-11s  %-6d  %s\n",
				r.ShortID(),
				r.Timestamp.Local().Format("2006-01-02 15:04:05"),
				r.Config.Device,
				r.Config.Tier,
				r.Config.BatchSize,
				types.FormatSize(r.Capabilities.TotalMemoryBytes),
			)
		}

		fmt.Fprintln(out, strings.Repeat("-", 86))
		fmt.Fprintf(out, "\nShowing %d entries. Use --limit to see more.\n", len(records))
		fmt.Fprintln(out, "Use 'acetune history show <id>' for details on a specific entry.")
		return nil
	})
}

// runHistoryShow displays one recorded resolution.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withHistory(func(cfg *config.Config, s *history.Store) error {
		r, err := s.Get(args[0])
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("no history entry matches %q", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to get entry: %w", err)
		}

		formatter, err := report.Get(cfg.Output)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if cfg.Output == "pretty" || cfg.Output == "plain" {
			fmt.Fprintf(out, "ID:        %s\n", r.ID)
			fmt.Fprintf(out, "Timestamp: %s\n\n", r.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
		}

		rep := &report.Report{Capabilities: r.Capabilities, Config: r.Config, Warnings: r.Warnings}
		return render(out, formatter, rep)
	})
}

// runHistoryClean removes records past the retention period.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	return withHistory(func(cfg *config.Config, s *history.Store) error {
		retentionDays := cfg.History.RetentionDays
		if retentionDays <= 0 {
			retentionDays = config.DefaultRetentionDays
		}

		printInfo("Cleaning history entries older than %d days...", retentionDays)

		removed, err := s.CleanRetention(retentionDays)
		if err != nil {
			return fmt.Errorf("failed to clean history: %w", err)
		}

		printInfo("Removed %d entries.", removed)
		return nil
	})
}
