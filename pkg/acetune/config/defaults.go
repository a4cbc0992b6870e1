// Package config loads acetune settings from the config file, ACETUNE_*
// environment variables and bound command-line flags.
package config

// Default configuration values.
const (
	// DefaultDevice leaves device selection to the host policy.
	DefaultDevice = "auto"

	// DefaultOutput is the report format used when none is given.
	DefaultOutput = "pretty"

	// DefaultThreadCap of zero lets the tuner pick 8, or 4 in containers.
	DefaultThreadCap = 0

	// DefaultRetentionDays is how long history records are kept.
	DefaultRetentionDays = 30

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MB"

	// DefaultLogMaxBackups is the number of rotated logs kept.
	DefaultLogMaxBackups = 5

	// EnvPrefix prefixes every environment variable viper reads.
	EnvPrefix = "ACETUNE"
)

// OverrideKeys are the keys that map to builder overrides. They carry no
// default so that an unset key means "use the recommendation".
var OverrideKeys = []string{
	"device",
	"backend",
	"precision",
	"offload_to_cpu",
	"offload_secondary_to_cpu",
	"batch_size",
	"use_fused_attention",
}

// DefaultComponentLevels are the per-component log levels.
var DefaultComponentLevels = map[string]string{
	"probe":   "info",
	"device":  "info",
	"builder": "info",
	"tuner":   "info",
	"history": "warn",
}
