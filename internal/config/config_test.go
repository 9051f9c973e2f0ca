package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryankumar/linemill/internal/util"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestManager_Load(t *testing.T) {
	tests := []struct {
		name          string
		configContent string
		wantErr       bool
		check         func(t *testing.T, cfg *Config)
	}{
		{
			name: "full config",
			configContent: `
run:
  input: data/in
  output: data/out
  parallel: 12
  extension: .log
  transform: lower
  taskTimeout: 30s
  gracefulWindow: 10s
  forcedWindow: 5s
  metricsFile: /var/lib/node_exporter/linemill.prom
log:
  level: debug
  format: json
output:
  format: yaml
  noColor: true
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "data/in", cfg.Run.Input)
				assert.Equal(t, "data/out", cfg.Run.Output)
				assert.Equal(t, 12, cfg.Run.Parallel)
				assert.Equal(t, ".log", cfg.Run.Extension)
				assert.Equal(t, "lower", cfg.Run.Transform)
				assert.Equal(t, 30*time.Second, cfg.Run.TaskTimeout)
				assert.Equal(t, 10*time.Second, cfg.Run.GracefulWindow)
				assert.Equal(t, 5*time.Second, cfg.Run.ForcedWindow)
				assert.Equal(t, "/var/lib/node_exporter/linemill.prom", cfg.Run.MetricsFile)
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "json", cfg.Log.Format)
				assert.Equal(t, "yaml", cfg.Output.Format)
				assert.True(t, cfg.Output.NoColor)
			},
		},
		{
			name: "partial config keeps defaults",
			configContent: `
run:
  parallel: 2
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2, cfg.Run.Parallel)
				assert.Equal(t, DefaultInput, cfg.Run.Input)
				assert.Equal(t, DefaultTaskTimeout, cfg.Run.TaskTimeout)
				assert.Equal(t, DefaultForcedWindow, cfg.Run.ForcedWindow)
				assert.Equal(t, DefaultOutputFormat, cfg.Output.Format)
			},
		},
		{
			name:          "empty config",
			configContent: "",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "zero timeout disables it",
			configContent: `
run:
  taskTimeout: 0
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Zero(t, cfg.Run.TaskTimeout)
			},
		},
		{
			name: "unknown key rejected by schema",
			configContent: `
run:
  paralel: 3
`,
			wantErr: true,
		},
		{
			name: "parallel below one rejected by schema",
			configContent: `
run:
  parallel: 0
`,
			wantErr: true,
		},
		{
			name: "malformed duration rejected by schema",
			configContent: `
run:
  gracefulWindow: soon
`,
			wantErr: true,
		},
		{
			name: "unknown transform rejected by schema",
			configContent: `
run:
  transform: reverse
`,
			wantErr: true,
		},
		{
			name:          "invalid yaml",
			configContent: "run: [unclosed",
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(writeConfig(t, tt.configContent))

			cfg, err := m.Load()
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.check(t, cfg)
			assert.Same(t, cfg, m.GetConfig())
		})
	}
}

func TestManager_Load_SchemaErrorIsInvalidConfig(t *testing.T) {
	m := NewManager(writeConfig(t, "output:\n  format: xml\n"))

	_, err := m.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestManager_Load_NoConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	m := NewManager("")
	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Empty(t, m.ConfigFileUsed())
}

func TestManager_Load_HomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".linemill.yaml"), []byte("run:\n  parallel: 9\n"), 0o644))

	m := NewManager("")
	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Run.Parallel)
	assert.Equal(t, filepath.Join(home, ".linemill.yaml"), m.ConfigFileUsed())
}

func TestManager_Load_MissingExplicitFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultParallel, cfg.Run.Parallel)
}

func TestManager_Load_Environment(t *testing.T) {
	t.Setenv("LINEMILL_RUN_PARALLEL", "3")
	t.Setenv("LINEMILL_RUN_TRANSFORM", "title")
	t.Setenv("LINEMILL_RUN_FORCEDWINDOW", "45s")
	t.Setenv("LINEMILL_OUTPUT_FORMAT", "json")

	m := NewManager(writeConfig(t, "run:\n  parallel: 8\n"))
	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Run.Parallel, "environment should override the file")
	assert.Equal(t, "title", cfg.Run.Transform)
	assert.Equal(t, 45*time.Second, cfg.Run.ForcedWindow)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestManager_Load_InvalidEnvironment(t *testing.T) {
	t.Setenv("LINEMILL_RUN_PARALLEL", "0")
	t.Setenv("LINEMILL_LOG_LEVEL", "chatty")

	m := NewManager(writeConfig(t, ""))
	_, err := m.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "run.parallel")
	assert.Contains(t, err.Error(), "log.level")
}

func TestManager_BindFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.IntP("parallel", "p", DefaultParallel, "")
	flags.Duration("task-timeout", DefaultTaskTimeout, "")
	flags.String("transform", DefaultTransform, "")

	m := NewManager(writeConfig(t, "run:\n  parallel: 8\n  transform: lower\n"))
	require.NoError(t, m.BindFlags(flags, map[string]string{
		"run.parallel":    "parallel",
		"run.taskTimeout": "task-timeout",
		"run.transform":   "transform",
		"run.missing":     "no-such-flag",
	}))

	require.NoError(t, flags.Parse([]string{"-p", "4", "--task-timeout", "90s"}))

	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Run.Parallel, "explicit flag should override the file")
	assert.Equal(t, 90*time.Second, cfg.Run.TaskTimeout)
	assert.Equal(t, "lower", cfg.Run.Transform, "unset flag should not override the file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "parallel", mutate: func(c *Config) { c.Run.Parallel = 0 }, wantField: "run.parallel"},
		{name: "task timeout", mutate: func(c *Config) { c.Run.TaskTimeout = -time.Second }, wantField: "run.taskTimeout"},
		{name: "graceful window", mutate: func(c *Config) { c.Run.GracefulWindow = -1 }, wantField: "run.gracefulWindow"},
		{name: "forced window", mutate: func(c *Config) { c.Run.ForcedWindow = -1 }, wantField: "run.forcedWindow"},
		{name: "extension", mutate: func(c *Config) { c.Run.Extension = "txt" }, wantField: "run.extension"},
		{name: "transform", mutate: func(c *Config) { c.Run.Transform = "shout" }, wantField: "run.transform"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantField: "log.format"},
		{name: "output format", mutate: func(c *Config) { c.Output.Format = "csv" }, wantField: "output.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, util.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestManager_Save(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Run.Parallel = 3
	cfg.Run.TaskTimeout = 0

	written, err := NewManager(path).Save(cfg, false)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gracefulWindow: 1m0s")
	require.NoError(t, ValidateDocument(data), "written config must satisfy the schema")

	loaded, err := NewManager(path).Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = NewManager(path).Save(cfg, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = NewManager(path).Save(cfg, true)
	assert.NoError(t, err)
}

func TestManager_Save_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	written, err := NewManager("").Save(Default(), false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".linemill", "config.yaml"), written)
	assert.FileExists(t, written)
}

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument(nil))
	assert.NoError(t, ValidateDocument([]byte(`{"run": {"parallel": 4}}`)))
	assert.Error(t, ValidateDocument([]byte(`{"run": {"parallel": "four"}}`)))
	assert.Error(t, ValidateDocument([]byte("- a\n- b\n")))
}
