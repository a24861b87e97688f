package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load uses defaults when no config file exists
// - Load reads .fcg/config.yml and .fcg/config.yaml
// - Environment variables override config file values
// - A .env file in the root supplies environment overrides
// - Explicit config files are honored
// - Malformed YAML and invalid values return errors
// - Validate() rejects empty output dir, bad globs, unknown fallback, negative debounce
// - Fallback names are matched case-insensitively

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, ConfigDirName)
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, name), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, "", cfg.Output.SQLite)
	assert.Empty(t, cfg.CallGraph.Ignore)
	assert.Equal(t, "snippet", cfg.Source.LocationFallback)
	assert.Equal(t, 500, cfg.Watch.DebounceMs)

	assert.NoError(t, Validate(cfg))
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	cfg, err := NewLoader(t.TempDir()).Load()

	require.NoError(t, err)
	assert.Equal(t, Default().Output, cfg.Output)
	assert.Equal(t, Default().Source, cfg.Source)
	assert.Equal(t, Default().Watch, cfg.Watch)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
output:
  dir: build/graphs
  sqlite: build/graphs/fcg.db

callgraph:
  ignore:
    - "tests/**"
    - "**/mock_*.rs"

source:
  root: /src/program
  location_fallback: header

watch:
  debounce_ms: 250
`)

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "build/graphs", cfg.Output.Dir)
	assert.Equal(t, "build/graphs/fcg.db", cfg.Output.SQLite)
	assert.Equal(t, []string{"tests/**", "**/mock_*.rs"}, cfg.CallGraph.Ignore)
	assert.Equal(t, "/src/program", cfg.Source.Root)
	assert.Equal(t, "header", cfg.Source.LocationFallback)
	assert.Equal(t, 250, cfg.Watch.DebounceMs)
}

func TestLoadConfig_LoadsFromConfigYaml(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yaml", "output:\n  dir: out-yaml\n")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)
	assert.Equal(t, "out-yaml", cfg.Output.Dir)
	assert.Equal(t, "snippet", cfg.Source.LocationFallback)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
output:
  dir: from-file
source:
  root: /file/root
`)

	t.Setenv("FCG_OUTPUT_DIR", "from-env")
	t.Setenv("FCG_WATCH_DEBOUNCE_MS", "75")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Output.Dir)
	assert.Equal(t, 75, cfg.Watch.DebounceMs)
	assert.Equal(t, "/file/root", cfg.Source.Root)
}

func TestLoadConfig_DotEnvSuppliesOverrides(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".env"), []byte("FCG_SOURCE_ROOT=/from/dotenv\n"), 0644))

	// Register restore, then make sure the variable is absent so .env can set it
	t.Setenv("FCG_SOURCE_ROOT", "")
	require.NoError(t, os.Unsetenv("FCG_SOURCE_ROOT"))

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv", cfg.Source.Root)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  dir: custom-out\n"), 0644))

	cfg, err := NewFileLoader(tempDir, path).Load()
	require.NoError(t, err)
	assert.Equal(t, "custom-out", cfg.Output.Dir)
}

func TestLoadConfig_ReturnsErrorForMalformedYaml(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
output:
  dir: "unclosed quote
  sqlite: [
`)

	cfg, err := NewLoader(tempDir).Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
source:
  location_fallback: nearest
`)

	cfg, err := NewLoader(tempDir).Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid")
}

func TestValidate_RejectsEmptyOutputDir(t *testing.T) {
	cfg := Default()
	cfg.Output.Dir = "  "

	err := Validate(cfg)
	assert.True(t, errors.Is(err, ErrEmptyOutputDir))
}

func TestValidate_RejectsBadIgnorePattern(t *testing.T) {
	cfg := Default()
	cfg.CallGraph.Ignore = []string{"[unclosed"}

	err := Validate(cfg)
	assert.True(t, errors.Is(err, ErrInvalidIgnorePattern))
}

func TestValidate_RejectsNegativeDebounce(t *testing.T) {
	cfg := Default()
	cfg.Watch.DebounceMs = -1

	err := Validate(cfg)
	assert.True(t, errors.Is(err, ErrInvalidDebounce))
}

func TestValidate_FallbackIgnoresCase(t *testing.T) {
	cfg := Default()
	cfg.Source.LocationFallback = "Header"
	assert.NoError(t, Validate(cfg))

	cfg.Source.LocationFallback = "Nearest"
	assert.True(t, errors.Is(Validate(cfg), ErrInvalidFallback))
}

func TestValidate_ReturnsMultipleErrorsForMultipleInvalidFields(t *testing.T) {
	cfg := Default()
	cfg.Output.Dir = ""
	cfg.Source.LocationFallback = "guess"
	cfg.Watch.DebounceMs = -5

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "output.dir")
	assert.Contains(t, err.Error(), "guess")
	assert.Contains(t, err.Error(), "debounce_ms")
}
