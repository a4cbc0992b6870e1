package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/jamesainslie/acetune/pkg/acetune/builder"
	"github.com/jamesainslie/acetune/pkg/acetune/logging"
	"github.com/jamesainslie/acetune/pkg/acetune/types"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// HistoryConfig configures the resolution history store.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
//
// The pointer fields are nil unless the key was set by a flag, the
// environment or the config file.
type Config struct {
	Device                string `mapstructure:"device"`
	Backend               string `mapstructure:"backend"`
	Precision             string `mapstructure:"precision"`
	OffloadToCPU          *bool  `mapstructure:"offload_to_cpu"`
	OffloadSecondaryToCPU *bool  `mapstructure:"offload_secondary_to_cpu"`
	BatchSize             *int   `mapstructure:"batch_size"`
	UseFusedAttention     *bool  `mapstructure:"use_fused_attention"`

	ThreadCap         int    `mapstructure:"thread_cap"`
	PreferAccelerator bool   `mapstructure:"prefer_accelerator"`
	EnvFile           string `mapstructure:"env_file"`
	Output            string `mapstructure:"output"`

	// SimulateMemory replaces the probed memory size, e.g. "12GiB".
	SimulateMemory string `mapstructure:"simulate_memory"`

	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// NewViper returns a viper instance with acetune's search paths,
// environment binding and defaults. An empty cfgFile searches
// $XDG_CONFIG_HOME/acetune and ~/.config/acetune for config.yaml.
func NewViper(cfgFile string) *viper.Viper {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not expose keys without defaults to Unmarshal.
	for _, key := range OverrideKeys {
		_ = v.BindEnv(key)
	}

	v.SetDefault("device", DefaultDevice)
	v.SetDefault("thread_cap", DefaultThreadCap)
	v.SetDefault("prefer_accelerator", true)
	v.SetDefault("env_file", "")
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("simulate_memory", "")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // Empty means DefaultHistoryPath
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means logging.DefaultLogPath
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.components", DefaultComponentLevels)

	return v
}

// Load reads configuration from the default locations and the environment.
func Load() (*Config, error) {
	return LoadWith(NewViper(""))
}

// LoadWith reads the config file of v (a missing file is fine) and decodes
// every source v knows about, including bound flags.
func LoadWith(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// An unchanged flag still reports its zero default; only explicit
	// values count as overrides.
	if !v.IsSet("offload_to_cpu") {
		cfg.OffloadToCPU = nil
	}
	if !v.IsSet("offload_secondary_to_cpu") {
		cfg.OffloadSecondaryToCPU = nil
	}
	if !v.IsSet("batch_size") {
		cfg.BatchSize = nil
	}
	if !v.IsSet("use_fused_attention") {
		cfg.UseFusedAttention = nil
	}

	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath()
	} else {
		p, err := ExpandPath(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		cfg.History.Path = p
	}

	return &cfg, nil
}

// Overrides converts the configured values into builder overrides.
func (c *Config) Overrides() (builder.Overrides, error) {
	o := builder.Overrides{
		OffloadToCPU:          c.OffloadToCPU,
		OffloadSecondaryToCPU: c.OffloadSecondaryToCPU,
		BatchSize:             c.BatchSize,
		UseFusedAttention:     c.UseFusedAttention,
		SkipAccelerator:       !c.PreferAccelerator,
	}

	d, err := types.ParseDevice(c.Device)
	if err != nil {
		return o, err
	}
	o.Device = d

	if c.Backend != "" {
		b, err := types.ParseBackend(c.Backend)
		if err != nil {
			return o, err
		}
		o.Backend = &b
	}

	if c.Precision != "" {
		p, err := types.ParsePrecision(c.Precision)
		if err != nil {
			return o, err
		}
		o.Precision = &p
	}

	return o, nil
}

// SimulatedMemory returns the parsed SimulateMemory value, or zero when it
// is unset.
func (c *Config) SimulatedMemory() (uint64, error) {
	if c.SimulateMemory == "" {
		return 0, nil
	}
	n, err := types.ParseSize(c.SimulateMemory)
	if err != nil {
		return 0, fmt.Errorf("invalid simulate_memory %q: %w", c.SimulateMemory, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid simulate_memory %q: must be positive", c.SimulateMemory)
	}
	return n, nil
}

// LoggingOptions converts the logging section for logging.Init.
func (c *Config) LoggingOptions() (logging.Config, error) {
	out := logging.Config{
		Level:      c.Logging.Level,
		Path:       c.Logging.Path,
		Components: c.Logging.Components,
		Rotation:   logging.DefaultRotationConfig(),
	}

	if c.Logging.Rotation.MaxSize != "" {
		n, err := types.ParseSize(c.Logging.Rotation.MaxSize)
		if err != nil {
			return out, fmt.Errorf("invalid logging.rotation.max_size: %w", err)
		}
		out.Rotation.MaxSize = int64(n)
	}
	if c.Logging.Rotation.MaxBackups > 0 {
		out.Rotation.MaxBackups = c.Logging.Rotation.MaxBackups
	}
	if out.Path != "" {
		p, err := ExpandPath(out.Path)
		if err != nil {
			return out, err
		}
		out.Path = p
	}

	return out, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "acetune"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "acetune"), nil
}

// ConfigPath returns the path of the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a commented default config file if none exists and
// returns its path.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# acetune runtime configuration

# Execution device: auto, cpu, unified-memory-gpu or discrete-gpu
device: %s

# Uncomment to override the memory-tier recommendation
# backend: pt
# precision: half
# batch_size: 2
# offload_to_cpu: true
# offload_secondary_to_cpu: true
# use_fused_attention: false

# Thread-pool cap per numeric library (0 = 8, or 4 in containers)
thread_cap: %d

# Prefer the unified-memory accelerator when choosing a device automatically
prefer_accelerator: true

# Dotenv file loaded before tuning; its keys never override the environment
env_file: ""

# Report format: pretty, plain, json, yaml, toml or env
output: %s

# Resolution history
history:
  enabled: true
  # Empty means the default: $XDG_DATA_HOME/acetune/history
  path: ""
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means the default: $XDG_STATE_HOME/acetune/acetune.log)
  path: ""
  rotation:
    max_size: %s
    max_backups: %d
  # Per-component log levels
  components:
    probe: info
    device: info
    builder: info
    tuner: info
    history: warn
`, DefaultDevice, DefaultThreadCap, DefaultOutput, DefaultRetentionDays, DefaultLogMaxSize, DefaultLogMaxBackups)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/acetune/ for the history database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "acetune")
}

// StateDir returns $XDG_STATE_HOME/acetune/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "acetune")
}

// DefaultHistoryPath returns the default history database directory.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}
