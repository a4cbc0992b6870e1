package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/acetune/pkg/acetune/config"
	"github.com/jamesainslie/acetune/pkg/acetune/engine"
	"github.com/jamesainslie/acetune/pkg/acetune/report"
	"github.com/jamesainslie/acetune/pkg/acetune/tuner"
	"github.com/jamesainslie/acetune/pkg/acetune/types"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv keeps tests away from the user's config, logs and history.
func isolateEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("ACETUNE_LOGGING_PATH", filepath.Join(dir, "acetune.log"))
	t.Setenv("ACETUNE_HISTORY_PATH", filepath.Join(dir, "history"))
}

func parseFlags(t *testing.T, args ...string) *config.Config {
	t.Helper()
	fs := pflag.NewFlagSet("acetune", pflag.ContinueOnError)
	registerFlags(fs)
	require.NoError(t, fs.Parse(args))

	fv := config.NewViper("")
	require.NoError(t, bindFlags(fv, fs))

	cfg, err := config.LoadWith(fv)
	require.NoError(t, err)
	return cfg
}

func TestFlagKeys_AllRegistered(t *testing.T) {
	fs := pflag.NewFlagSet("acetune", pflag.ContinueOnError)
	registerFlags(fs)

	for name := range flagKeys {
		assert.NotNil(t, fs.Lookup(name), "flag %s", name)
	}
	for _, key := range config.OverrideKeys {
		assert.Contains(t, flagKeys, key, "override %s needs a flag", key)
	}
}

func TestFlags_NoneSet(t *testing.T) {
	isolateEnv(t)
	cfg := parseFlags(t)

	o, err := cfg.Overrides()
	require.NoError(t, err)

	assert.Nil(t, o.Device)
	assert.Nil(t, o.Backend)
	assert.Nil(t, o.Precision)
	assert.Nil(t, o.BatchSize)
	assert.Nil(t, o.OffloadToCPU)
	assert.Nil(t, o.OffloadSecondaryToCPU)
	assert.Nil(t, o.UseFusedAttention)
	assert.False(t, o.SkipAccelerator)
	assert.Equal(t, config.DefaultOutput, cfg.Output)
}

func TestFlags_ToOverrides(t *testing.T) {
	isolateEnv(t)
	cfg := parseFlags(t,
		"--device", "cpu",
		"--backend", "vllm",
		"--offload_to_cpu=false",
		"--offload_secondary_to_cpu=true",
		"--batch_size", "3",
		"--precision", "single",
		"--use_fused_attention",
		"--prefer-accelerator=false",
		"--thread-cap", "2",
		"-o", "json",
	)

	o, err := cfg.Overrides()
	require.NoError(t, err)

	require.NotNil(t, o.Device)
	assert.Equal(t, types.DeviceCPU, *o.Device)
	require.NotNil(t, o.Backend)
	assert.Equal(t, types.BackendVLLM, *o.Backend)
	require.NotNil(t, o.OffloadToCPU)
	assert.False(t, *o.OffloadToCPU)
	require.NotNil(t, o.OffloadSecondaryToCPU)
	assert.True(t, *o.OffloadSecondaryToCPU)
	require.NotNil(t, o.BatchSize)
	assert.Equal(t, 3, *o.BatchSize)
	require.NotNil(t, o.Precision)
	assert.Equal(t, types.PrecisionSingle, *o.Precision)
	require.NotNil(t, o.UseFusedAttention)
	assert.True(t, *o.UseFusedAttention)
	assert.True(t, o.SkipAccelerator)
	assert.Equal(t, 2, cfg.ThreadCap)
	assert.Equal(t, "json", cfg.Output)
}

func TestFlags_AutoDevice(t *testing.T) {
	isolateEnv(t)
	o, err := parseFlags(t, "--device", "auto").Overrides()
	require.NoError(t, err)
	assert.Nil(t, o.Device)
}

func TestFlags_InvalidDevice(t *testing.T) {
	isolateEnv(t)
	_, err := parseFlags(t, "--device", "tpu").Overrides()
	assert.ErrorIs(t, err, types.ErrInvalidDevice)
}

func TestFlags_EnvVarsMirrorFlags(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ACETUNE_PRECISION", "fp32")
	t.Setenv("ACETUNE_OFFLOAD_TO_CPU", "true")

	o, err := parseFlags(t).Overrides()
	require.NoError(t, err)
	require.NotNil(t, o.Precision)
	assert.Equal(t, types.PrecisionSingle, *o.Precision)
	require.NotNil(t, o.OffloadToCPU)
	assert.True(t, *o.OffloadToCPU)
}

func TestFlags_FlagBeatsEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ACETUNE_BATCH_SIZE", "8")

	cfg := parseFlags(t, "--batch_size", "1")
	require.NotNil(t, cfg.BatchSize)
	assert.Equal(t, 1, *cfg.BatchSize)
}

func TestRootCommand_JSONReport(t *testing.T) {
	isolateEnv(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--no-history", "-o", "json", "--simulate-memory", "12GiB", "--device", "cpu"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var r report.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	assert.Equal(t, uint64(12*types.GiB), r.Capabilities.TotalMemoryBytes)
	assert.Equal(t, types.TierBalanced, r.Config.Tier)
	assert.Equal(t, types.DeviceCPU, r.Config.Device)
	assert.Equal(t, 2, r.Config.BatchSize)
	assert.NotEmpty(t, r.Environment)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	runVersion(versionCmd, nil)

	assert.True(t, strings.HasPrefix(out.String(), "acetune dev"))
}

func TestPtrString(t *testing.T) {
	n := 4
	assert.Equal(t, "auto", ptrString[int](nil))
	assert.Equal(t, "4", ptrString(&n))
	assert.Equal(t, "auto", orAuto(""))
	assert.Equal(t, "pt", orAuto("pt"))
}

func TestConfigShow_CoversOverrides(t *testing.T) {
	isolateEnv(t)
	cfg := parseFlags(t)

	keys := map[string]bool{}
	for _, s := range settings(cfg) {
		keys[s.key] = true
	}
	for _, key := range config.OverrideKeys {
		assert.True(t, keys[key], "config show is missing %s", key)
	}
}

func TestSourceOf(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ACETUNE_BACKEND", "pt")

	saved := v
	v = config.NewViper("")
	t.Cleanup(func() { v = saved })

	cmd := &cobra.Command{Use: "show"}
	registerFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--device", "cpu"}))

	assert.Equal(t, "flag", sourceOf(cmd, "device"))
	assert.Equal(t, "env", sourceOf(cmd, "backend"))
	assert.Equal(t, "default", sourceOf(cmd, "precision"))
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestEnvCommand_KeepsPresetKnobs(t *testing.T) {
	isolateEnv(t)
	t.Setenv(tuner.EnvOMPThreads, "2")

	envFile := filepath.Join(t.TempDir(), "site.env")
	require.NoError(t, os.WriteFile(envFile, []byte("MKL_NUM_THREADS=5\n"), 0o644))
	t.Cleanup(func() { _ = rootCmd.PersistentFlags().Set("env-file", "") })

	out := execute(t, "env", "--no-history", "--simulate-memory", "12GiB", "--thread-cap", "3", "--env-file", envFile)

	vars, err := godotenv.Unmarshal(out)
	require.NoError(t, err)
	assert.Equal(t, "2", vars[tuner.EnvOMPThreads], "preset value is exported unchanged")
	assert.Equal(t, "5", vars[tuner.EnvMKLThreads], "env file value wins over the computed one")
	assert.Equal(t, "false", vars[tuner.EnvTokenizersParallelism])
	assert.Equal(t, "2", os.Getenv(tuner.EnvOMPThreads))
	_, set := os.LookupEnv(tuner.EnvMKLThreads)
	assert.False(t, set, "env file is not loaded into the process")
}

func TestRootCommand_EnvReportKeepsPresetKnobs(t *testing.T) {
	isolateEnv(t)
	t.Setenv(tuner.EnvOMPThreads, "2")

	out := execute(t, "--no-history", "-o", "env", "--simulate-memory", "12GiB")

	vars, err := godotenv.Unmarshal(out)
	require.NoError(t, err)
	assert.Equal(t, "2", vars[tuner.EnvOMPThreads])
	assert.Equal(t, "balanced", vars[report.ResultPrefix+"TIER"])
}

func TestEnvReport_SourcedDoesNotPinLaterRuns(t *testing.T) {
	isolateEnv(t)

	out := execute(t, "--no-history", "-o", "env", "--simulate-memory", "12GiB", "--device", "auto")
	vars, err := godotenv.Unmarshal(out)
	require.NoError(t, err)
	require.NotEmpty(t, vars)
	for k, value := range vars {
		t.Setenv(k, value)
	}

	cfg := parseFlags(t, "--simulate-memory", "64GiB")
	o, err := cfg.Overrides()
	require.NoError(t, err)
	assert.Nil(t, o.Device)
	assert.Nil(t, o.BatchSize)
	assert.Nil(t, o.OffloadToCPU)
	assert.Nil(t, o.OffloadSecondaryToCPU)

	opts, err := engineOptions(cfg)
	require.NoError(t, err)
	res, err := engine.Resolve(opts)
	require.NoError(t, err)
	assert.Equal(t, types.TierAbundant, res.Config.Tier)
	assert.GreaterOrEqual(t, res.Config.BatchSize, 4)
	assert.False(t, res.Config.OffloadToCPU)
	assert.False(t, res.Config.OffloadSecondaryToCPU)
}

func TestRunCommand_ExecsWithTunedEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv(tuner.EnvOMPThreads, "2")

	script := filepath.Join(t.TempDir(), "launch.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	var gotPath string
	var gotArgv, gotEnv []string
	saved := execProgram
	execProgram = func(path string, argv, env []string) error {
		gotPath, gotArgv, gotEnv = path, argv, env
		return nil
	}
	t.Cleanup(func() { execProgram = saved })

	execute(t, "run", "--no-history", "--simulate-memory", "12GiB", "--device", "cpu", "--", script, "--steps", "60")

	assert.Equal(t, script, gotPath)
	assert.Equal(t, []string{script, "--steps", "60"}, gotArgv)
	assert.Contains(t, gotEnv, "OMP_NUM_THREADS=2")
	assert.Contains(t, gotEnv, "TOKENIZERS_PARALLELISM=false")
	assert.Contains(t, gotEnv, "ACESTEP_TIER=balanced")
	assert.Contains(t, gotEnv, "ACESTEP_DEVICE=cpu")

	_, leaked := os.LookupEnv("ACESTEP_TIER")
	assert.False(t, leaked, "acetune's own environment is left alone")
}

func TestRunCommand_UnknownProgram(t *testing.T) {
	isolateEnv(t)

	rootCmd.SetArgs([]string{"run", "--no-history", "--", "acetune-no-such-program"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acetune-no-such-program")
}
