package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aryankumar/linemill/internal/util"
)

const (
	defaultConfigName = ".linemill"
	defaultConfigDir  = ".linemill"
	envPrefix         = "LINEMILL"
)

// Manager handles linemill configuration.
// Precedence is flags, then environment, then the config file, then defaults.
type Manager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
}

// NewManager creates a new configuration manager.
// An empty configPath searches $HOME/.linemill.yaml and $HOME/.linemill/config.yaml.
func NewManager(configPath string) *Manager {
	m := &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     Default(),
	}
	m.applyDefaults()
	return m
}

// BindFlags binds command-line flags to configuration keys.
// bindings maps a key such as "run.parallel" to a flag name.
func (m *Manager) BindFlags(flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := m.viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the configuration file, if any, and returns the effective configuration
func (m *Manager) Load() (*Config, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		// Prefer ~/.linemill/config.yaml, the file written by `config init`
		dirConfig := filepath.Join(home, defaultConfigDir, "config.yaml")
		if _, err := os.Stat(dirConfig); err == nil {
			m.viper.SetConfigFile(dirConfig)
		} else {
			// Check ~/.linemill.yaml
			m.viper.AddConfigPath(home)
			m.viper.SetConfigName(defaultConfigName)
			m.viper.SetConfigType("yaml")
		}
	}

	// LINEMILL_RUN_PARALLEL overrides run.parallel
	m.viper.SetEnvPrefix(envPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	if err := m.viper.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := m.validateFile(m.viper.ConfigFileUsed()); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := m.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	m.config = cfg
	return cfg, nil
}

// validateFile checks the raw file against the embedded JSON schema
func (m *Manager) validateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := ValidateDocument(data); err != nil {
		return fmt.Errorf("%w: %s: %w", util.ErrInvalidConfig, path, err)
	}
	return nil
}

// Validate checks semantic constraints the schema cannot express for flags and env
func Validate(cfg *Config) error {
	errs := &util.MultiError{}

	if cfg.Run.Parallel < 1 {
		errs.Add(util.NewValidationError("run.parallel", cfg.Run.Parallel, "must be at least 1"))
	}
	if cfg.Run.TaskTimeout < 0 {
		errs.Add(util.NewValidationError("run.taskTimeout", cfg.Run.TaskTimeout, "must not be negative"))
	}
	if cfg.Run.GracefulWindow < 0 {
		errs.Add(util.NewValidationError("run.gracefulWindow", cfg.Run.GracefulWindow, "must not be negative"))
	}
	if cfg.Run.ForcedWindow < 0 {
		errs.Add(util.NewValidationError("run.forcedWindow", cfg.Run.ForcedWindow, "must not be negative"))
	}
	if !strings.HasPrefix(cfg.Run.Extension, ".") {
		errs.Add(util.NewValidationError("run.extension", cfg.Run.Extension, "must start with '.'"))
	}
	if !oneOf(cfg.Run.Transform, "upper", "lower", "title", "identity") {
		errs.Add(util.NewValidationError("run.transform", cfg.Run.Transform, "must be one of upper, lower, title, identity"))
	}
	if !oneOf(cfg.Log.Level, "debug", "info", "warn", "error") {
		errs.Add(util.NewValidationError("log.level", cfg.Log.Level, "must be one of debug, info, warn, error"))
	}
	if !oneOf(cfg.Log.Format, "text", "json") {
		errs.Add(util.NewValidationError("log.format", cfg.Log.Format, "must be text or json"))
	}
	if !oneOf(cfg.Output.Format, "table", "json", "yaml") {
		errs.Add(util.NewValidationError("output.format", cfg.Output.Format, "must be one of table, json, yaml"))
	}

	return errs.ErrorOrNil()
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

// Save writes cfg as YAML to the manager's config path.
// Without a path it writes $HOME/.linemill/config.yaml. An existing file is only
// replaced when force is set.
func (m *Manager) Save(cfg *Config, force bool) (string, error) {
	if m.configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		m.configPath = filepath.Join(home, defaultConfigDir, "config.yaml")
	}

	if _, err := os.Stat(m.configPath); err == nil && !force {
		return "", fmt.Errorf("config file %s already exists (use --force to overwrite)", m.configPath)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	m.config = cfg
	return m.configPath, nil
}

// Marshal renders cfg as YAML with durations in their string form
func Marshal(cfg *Config) ([]byte, error) {
	doc := map[string]interface{}{
		"run": map[string]interface{}{
			"input":          cfg.Run.Input,
			"output":         cfg.Run.Output,
			"parallel":       cfg.Run.Parallel,
			"extension":      cfg.Run.Extension,
			"transform":      cfg.Run.Transform,
			"taskTimeout":    formatDuration(cfg.Run.TaskTimeout),
			"gracefulWindow": formatDuration(cfg.Run.GracefulWindow),
			"forcedWindow":   formatDuration(cfg.Run.ForcedWindow),
			"metricsFile":    cfg.Run.MetricsFile,
		},
		"log": map[string]interface{}{
			"level":      cfg.Log.Level,
			"format":     cfg.Log.Format,
			"file":       cfg.Log.File,
			"maxSizeMB":  cfg.Log.MaxSizeMB,
			"maxBackups": cfg.Log.MaxBackups,
			"maxAgeDays": cfg.Log.MaxAgeDays,
			"compress":   cfg.Log.Compress,
		},
		"output": map[string]interface{}{
			"format":  cfg.Output.Format,
			"noColor": cfg.Output.NoColor,
		},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0"
	}
	return d.String()
}

// GetConfig returns the configuration loaded last
func (m *Manager) GetConfig() *Config {
	return m.config
}

// ConfigFileUsed returns the path of the file that was read, if any
func (m *Manager) ConfigFileUsed() string {
	return m.viper.ConfigFileUsed()
}

// applyDefaults registers default values so environment overrides and
// unmarshalling see every key
func (m *Manager) applyDefaults() {
	d := Default()

	m.viper.SetDefault("run.input", d.Run.Input)
	m.viper.SetDefault("run.output", d.Run.Output)
	m.viper.SetDefault("run.parallel", d.Run.Parallel)
	m.viper.SetDefault("run.extension", d.Run.Extension)
	m.viper.SetDefault("run.transform", d.Run.Transform)
	m.viper.SetDefault("run.taskTimeout", d.Run.TaskTimeout)
	m.viper.SetDefault("run.gracefulWindow", d.Run.GracefulWindow)
	m.viper.SetDefault("run.forcedWindow", d.Run.ForcedWindow)
	m.viper.SetDefault("run.metricsFile", d.Run.MetricsFile)

	m.viper.SetDefault("log.level", d.Log.Level)
	m.viper.SetDefault("log.format", d.Log.Format)
	m.viper.SetDefault("log.file", d.Log.File)
	m.viper.SetDefault("log.maxSizeMB", d.Log.MaxSizeMB)
	m.viper.SetDefault("log.maxBackups", d.Log.MaxBackups)
	m.viper.SetDefault("log.maxAgeDays", d.Log.MaxAgeDays)
	m.viper.SetDefault("log.compress", d.Log.Compress)

	m.viper.SetDefault("output.format", d.Output.Format)
	m.viper.SetDefault("output.noColor", d.Output.NoColor)
}
