package main

import (
	"fmt"
	"os/exec"

	"github.com/jamesainslie/acetune/pkg/acetune/engine"
	"github.com/jamesainslie/acetune/pkg/acetune/logging"
	"github.com/jamesainslie/acetune/pkg/acetune/report"
	"github.com/jamesainslie/acetune/pkg/acetune/tuner"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- command [args...]",
	Short: "Tune the environment and start the generation pipeline",
	Long: `Resolve the configuration, apply the tuning to the environment and
replace acetune with command, so the numeric runtimes see the variables
before they build their thread pools.

Variables already set in the environment or in --env-file are passed through
unchanged. The resolved configuration is exported as ACESTEP_* variables.

  acetune run -- python infer.py --checkpoint ./ckpt
  acetune run --device cpu --thread-cap 4 -- ./launch.sh`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}

// runRun applies the plan to a copy of the environment and hands it to
// the launched command.
func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts, err := engineOptions(cfg)
	if err != nil {
		return err
	}
	env := tuner.SnapshotProcess()
	opts.Environment = env
	opts.Tuner = tuner.New(env)

	path, err := exec.LookPath(args[0])
	if err != nil {
		return fmt.Errorf("cannot run %s: %w", args[0], err)
	}

	store := attachHistory(cfg, &opts)
	res, err := engine.Resolve(opts)
	if store != nil {
		_ = store.Close()
	}
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		printWarning("%v", w)
	}

	if err := exportConfig(env, res); err != nil {
		return err
	}
	if res.Applied != nil {
		printVerbose("tuned %d variables, kept %d preset: %v", len(res.Applied.Set), len(res.Applied.Skipped), res.Applied.Skipped)
	}
	printVerbose("exec %s %v", path, args[1:])

	_ = logging.Close()
	return execProgram(path, args, env.Environ())
}

// exportConfig publishes the resolved configuration as report.ResultVars
// for the pipeline, leaving any the caller already set.
func exportConfig(env tuner.Environment, res *engine.Result) error {
	vars := report.ResultVars(res.Config)
	for k, value := range vars {
		if _, ok := env.Lookup(k); ok {
			continue
		}
		if err := env.Set(k, value); err != nil {
			return fmt.Errorf("setting %s: %w", k, err)
		}
	}
	return nil
}
