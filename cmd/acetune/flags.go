package main

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps flag names to configuration keys. The override flags keep
// their snake_case names so they read the same on the command line, in
// ACETUNE_* variables and in the config file.
var flagKeys = map[string]string{
	"device":                   "device",
	"backend":                  "backend",
	"offload_to_cpu":           "offload_to_cpu",
	"offload_secondary_to_cpu": "offload_secondary_to_cpu",
	"batch_size":               "batch_size",
	"precision":                "precision",
	"use_fused_attention":      "use_fused_attention",
	"thread-cap":               "thread_cap",
	"prefer-accelerator":       "prefer_accelerator",
	"env-file":                 "env_file",
	"output":                   "output",
	"simulate-memory":          "simulate_memory",
	"no-history":               "no_history",
	"quiet":                    "quiet",
	"verbose":                  "verbose",
}

// registerFlags declares the flags shared by every command.
func registerFlags(fs *pflag.FlagSet) {
	fs.String("device", "", "execution device: auto, cpu, unified-memory-gpu or discrete-gpu")
	fs.String("backend", "", "inference backend tag: pt or vllm")
	fs.Bool("offload_to_cpu", false, "offload model stages to CPU memory")
	fs.Bool("offload_secondary_to_cpu", false, "offload the secondary model component to CPU memory")
	fs.Int("batch_size", 0, "batch size (default: tier recommendation)")
	fs.String("precision", "", "numeric precision: half or single")
	fs.Bool("use_fused_attention", false, "use fused attention kernels")
	fs.Int("thread-cap", 0, "maximum threads per numeric library (0=auto)")
	fs.Bool("prefer-accelerator", true, "prefer the unified-memory accelerator when choosing a device")
	fs.String("env-file", "", "dotenv file loaded before tuning")
	fs.StringP("output", "o", "", "report format: pretty, plain, json, yaml, toml or env")
	fs.String("simulate-memory", "", "pretend the host has this much memory (e.g. 12GiB)")
	fs.Bool("no-history", false, "do not record this resolution")
	fs.BoolP("quiet", "q", false, "minimal output")
	fs.BoolP("verbose", "v", false, "debug output")
}

// bindFlags binds every registered flag to its configuration key.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag %s is not registered", name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding %s: %w", name, err)
		}
	}
	return nil
}
