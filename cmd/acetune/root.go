package main

import (
	"fmt"
	"os"

	"github.com/jamesainslie/acetune/pkg/acetune/config"
	"github.com/jamesainslie/acetune/pkg/acetune/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// v holds every configuration source: defaults, file, ACETUNE_* and flags.
	v = viper.New()

	rootCmd = &cobra.Command{
		Use:   "acetune",
		Short: "Derive a runtime configuration for audio generation from the host's hardware",
		Long: `acetune probes the host, classifies it into a memory tier and resolves the
execution device, offload strategy, batch size, precision and thread-pool
sizing for the generation pipeline.

Explicit flags win over the tier recommendation, which wins over safe
defaults. Overrides that do not fit the host are kept where possible and
reported as warnings.

Examples:
  acetune                              # Resolve and print a report
  acetune --device cpu --batch_size 2  # Override the recommendation
  acetune -o json                      # Machine-readable report
  acetune run -- python infer.py       # Tune the environment and start the pipeline
  acetune env --write tuning.env       # Export the tuning for a launcher
  acetune probe                        # Show detected hardware only
  acetune history                      # Past resolutions`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runResolve,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/acetune/config.yaml)")
	registerFlags(rootCmd.PersistentFlags())
}

// initConfig wires the flags into a fresh viper instance.
func initConfig() {
	v = config.NewViper(cfgFile)
	if err := bindFlags(v, rootCmd.PersistentFlags()); err != nil {
		printError("binding flags: %v", err)
	}
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()

	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		return err
	}
	return nil
}

// loadConfig decodes all sources and starts logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWith(v)
	if err != nil {
		return nil, err
	}

	logCfg, err := cfg.LoggingOptions()
	if err != nil {
		return nil, err
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}
	if err := logging.Init(logCfg); err != nil {
		// Continue without a log file.
		printVerbose("logging disabled: %v", err)
	}

	return cfg, nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return v.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return v.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printWarning prints a warning to stderr unless quiet mode is enabled.
func printWarning(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
