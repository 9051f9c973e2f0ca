package config

import "time"

// Config represents the linemill configuration file structure
type Config struct {
	// Run holds the defaults for `linemill run`
	Run RunConfig `yaml:"run" json:"run" mapstructure:"run"`

	// Log configures structured logging
	Log LogConfig `yaml:"log" json:"log" mapstructure:"log"`

	// Output configures report rendering
	Output OutputConfig `yaml:"output" json:"output" mapstructure:"output"`
}

// RunConfig contains the settings of a mirroring run
type RunConfig struct {
	// Input is the directory tree to read
	Input string `yaml:"input" json:"input" mapstructure:"input"`

	// Output is the directory tree to write
	Output string `yaml:"output" json:"output" mapstructure:"output"`

	// Parallel is the number of concurrent workers
	Parallel int `yaml:"parallel" json:"parallel" mapstructure:"parallel"`

	// Extension selects input files, case-insensitively
	Extension string `yaml:"extension" json:"extension" mapstructure:"extension"`

	// Transform names the per-line transform (upper, lower, title, identity)
	Transform string `yaml:"transform" json:"transform" mapstructure:"transform"`

	// TaskTimeout bounds the wait for each task; 0 disables it
	TaskTimeout time.Duration `yaml:"taskTimeout" json:"taskTimeout" mapstructure:"taskTimeout"`

	// GracefulWindow is how long shutdown waits before cancelling tasks
	GracefulWindow time.Duration `yaml:"gracefulWindow" json:"gracefulWindow" mapstructure:"gracefulWindow"`

	// ForcedWindow is how long shutdown waits after cancelling before abandoning tasks
	ForcedWindow time.Duration `yaml:"forcedWindow" json:"forcedWindow" mapstructure:"forcedWindow"`

	// MetricsFile receives Prometheus textfile metrics when set
	MetricsFile string `yaml:"metricsFile,omitempty" json:"metricsFile,omitempty" mapstructure:"metricsFile"`
}

// LogConfig contains logging settings
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level" json:"level" mapstructure:"level"`

	// Format is text or json
	Format string `yaml:"format" json:"format" mapstructure:"format"`

	// File additionally writes logs to a size-rotated file when set
	File string `yaml:"file,omitempty" json:"file,omitempty" mapstructure:"file"`

	MaxSizeMB  int  `yaml:"maxSizeMB" json:"maxSizeMB" mapstructure:"maxSizeMB"`
	MaxBackups int  `yaml:"maxBackups" json:"maxBackups" mapstructure:"maxBackups"`
	MaxAgeDays int  `yaml:"maxAgeDays" json:"maxAgeDays" mapstructure:"maxAgeDays"`
	Compress   bool `yaml:"compress" json:"compress" mapstructure:"compress"`
}

// OutputConfig contains report output settings
type OutputConfig struct {
	// Format is the report format (table, json, yaml)
	Format string `yaml:"format" json:"format" mapstructure:"format"`

	// NoColor disables colored output
	NoColor bool `yaml:"noColor" json:"noColor" mapstructure:"noColor"`
}

// Default values
const (
	DefaultInput          = "in"
	DefaultOutput         = "out"
	DefaultParallel       = 6
	DefaultExtension      = ".txt"
	DefaultTransform      = "upper"
	DefaultTaskTimeout    = 2 * time.Minute
	DefaultGracefulWindow = time.Minute
	DefaultForcedWindow   = 30 * time.Second

	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultLogMaxSizeMB  = 100
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28

	DefaultOutputFormat = "table"
)

// Default returns a configuration with every default applied
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Input:          DefaultInput,
			Output:         DefaultOutput,
			Parallel:       DefaultParallel,
			Extension:      DefaultExtension,
			Transform:      DefaultTransform,
			TaskTimeout:    DefaultTaskTimeout,
			GracefulWindow: DefaultGracefulWindow,
			ForcedWindow:   DefaultForcedWindow,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
		Output: OutputConfig{
			Format: DefaultOutputFormat,
		},
	}
}
