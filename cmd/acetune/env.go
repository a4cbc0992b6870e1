package main

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/acetune/pkg/acetune/engine"
	"github.com/jamesainslie/acetune/pkg/acetune/tuner"
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the environment tuning as dotenv",
	Long: `Resolve the configuration and print the thread-pool and accelerator
variables in dotenv form, without changing this process's environment.

Variables already set in the environment or in --env-file are printed with
their existing value, so sourcing the output never overrides them.
A launcher can source the output, or use --write to save it:
  acetune env --write ~/.config/acetune/tuning.env`,
	Args: cobra.NoArgs,
	RunE: runEnv,
}

var envWritePath string

func init() {
	envCmd.Flags().StringVarP(&envWritePath, "write", "w", "", "write the tuning to this file instead of stdout")
	rootCmd.AddCommand(envCmd)
}

// runEnv prints or writes the tuning plan.
func runEnv(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts, err := engineOptions(cfg)
	if err != nil {
		return err
	}
	res, err := engine.Resolve(opts)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		printWarning("%v", w)
	}

	if envWritePath != "" {
		if err := tuner.WriteVars(res.Environment, envWritePath); err != nil {
			return err
		}
		printInfo("Wrote %d variables to %s", len(res.Environment), envWritePath)
		return nil
	}

	out, err := tuner.MarshalVars(res.Environment)
	if err != nil {
		return err
	}
	if out == "" {
		return errors.New("empty tuning plan")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
