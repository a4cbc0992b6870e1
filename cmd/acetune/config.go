package main

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jamesainslie/acetune/pkg/acetune/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Inspect and edit the acetune configuration file.

Settings are layered, highest first: command-line flags, ACETUNE_*
environment variables, $XDG_CONFIG_HOME/acetune/config.yaml, built-in
defaults. Override keys left unset everywhere fall back to the host's
tier recommendation:

  ACETUNE_DEVICE=cpu acetune
  ACETUNE_BATCH_SIZE=2 acetune probe`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings and their source",
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in $VISUAL, $EDITOR or vi, writing the
commented template first when no file exists yet.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the commented configuration template",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// setting is one row of `config show`.
type setting struct {
	key   string
	value string
}

func settings(cfg *config.Config) []setting {
	return []setting{
		{"device", cfg.Device},
		{"backend", orAuto(cfg.Backend)},
		{"precision", orAuto(cfg.Precision)},
		{"batch_size", ptrString(cfg.BatchSize)},
		{"offload_to_cpu", ptrString(cfg.OffloadToCPU)},
		{"offload_secondary_to_cpu", ptrString(cfg.OffloadSecondaryToCPU)},
		{"use_fused_attention", ptrString(cfg.UseFusedAttention)},
		{"thread_cap", strconv.Itoa(cfg.ThreadCap)},
		{"prefer_accelerator", strconv.FormatBool(cfg.PreferAccelerator)},
		{"env_file", cfg.EnvFile},
		{"output", cfg.Output},
		{"simulate_memory", cfg.SimulateMemory},
		{"history.enabled", strconv.FormatBool(cfg.History.Enabled)},
		{"history.path", cfg.History.Path},
		{"history.retention_days", strconv.Itoa(cfg.History.RetentionDays)},
		{"logging.level", cfg.Logging.Level},
		{"logging.path", cfg.Logging.Path},
	}
}

// sourceOf names the layer that supplied key: flag, env, file or default.
func sourceOf(cmd *cobra.Command, key string) string {
	for name, k := range flagKeys {
		if k != key {
			continue
		}
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			return "flag"
		}
	}
	envKey := config.EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
	if _, ok := os.LookupEnv(envKey); ok {
		return "env"
	}
	if v.InConfig(key) {
		return "file"
	}
	return "default"
}

// runConfigShow displays the effective configuration and where each value
// came from.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWith(v)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	file := "(none, using defaults)"
	if used := v.ConfigFileUsed(); used != "" {
		if _, statErr := os.Stat(used); statErr == nil {
			file = used
		}
	}
	fmt.Fprintf(out, "Config file: %s\n\n", file)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
	for _, s := range settings(cfg) {
		value := s.value
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.key, value, sourceOf(cmd, s.key))
	}
	return tw.Flush()
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := "vi"
	for _, name := range []string{"VISUAL", "EDITOR"} {
		if e := os.Getenv(name); e != "" {
			editor = e
			break
		}
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'acetune config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		printVerbose("no file yet, defaults apply")
	}
	return nil
}

func orAuto(s string) string {
	if s == "" {
		return "auto"
	}
	return s
}

// ptrString renders an optional override, "auto" when unset.
func ptrString[T any](p *T) string {
	if p == nil {
		return "auto"
	}
	return fmt.Sprint(*p)
}
