package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadOrDefault_NoConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))

	cfg, err := LoadOrDefault("", dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "project", cfg.Project.Name)
	assert.Equal(t, "dist", cfg.Targets.Root.Output)
	assert.Equal(t, filepath.Join("sites", "project"), cfg.Targets.Prefixed.Output)
	assert.Equal(t, "/project", cfg.Targets.Prefixed.BasePath)
	assert.Equal(t, BuildModeProduction, cfg.Build.Mode)
	assert.True(t, cfg.Build.PicturesEnabled())
	assert.True(t, cfg.Build.MinifyEnabled())
	assert.Equal(t, []string{"npx", "tailwindcss"}, cfg.CSS.Command)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.DebounceDuration())
	assert.Equal(t, filepath.Join(dir, "src", "img"), cfg.ImagesDir())
}

func TestLoadOrDefault_PackageJSONName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"name": "Wendekreis Café", "version": "1.0.0"}`)

	cfg, err := LoadOrDefault("", dir)
	require.NoError(t, err)
	assert.Equal(t, "Wendekreis-Cafe", cfg.Project.Name)
	assert.Equal(t, "/Wendekreis-Cafe", cfg.Targets.Prefixed.BasePath)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SITEBUILD_TEST_SITES", "/srv/sites")
	path := filepath.Join(dir, DefaultFileName)
	writeFile(t, path, `
project:
  name: wendekreis
targets:
  prefixed:
    output: ${SITEBUILD_TEST_SITES}/wendekreis
build:
  mode: dev
  workers: 3
watch:
  debounce: 1s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, "/srv/sites/wendekreis", cfg.Targets.Prefixed.Output)
	assert.Equal(t, "/wendekreis", cfg.Targets.Prefixed.BasePath)
	assert.Equal(t, BuildModeDevelopment, cfg.Build.Mode)
	assert.False(t, cfg.Build.PicturesEnabled(), "development mode disables pictures")
	assert.Equal(t, 3, cfg.Build.Workers)
	assert.Equal(t, time.Second, cfg.Watch.DebounceDuration())
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SITEBUILD_TEST_NAME", "from-env")
	writeFile(t, filepath.Join(dir, ".env"), "SITEBUILD_TEST_NAME=from-file\nSITEBUILD_TEST_BASE=/from-file\n")
	path := filepath.Join(dir, DefaultFileName)
	writeFile(t, path, "project:\n  name: ${SITEBUILD_TEST_NAME}\ntargets:\n  prefixed:\n    base_path: ${SITEBUILD_TEST_BASE}\n")
	t.Cleanup(func() { _ = os.Unsetenv("SITEBUILD_TEST_BASE") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Project.Name)
	assert.Equal(t, "/from-file", cfg.Targets.Prefixed.BasePath)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), DefaultFileName)
		writeFile(t, path, "project: [unterminated")
		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	})
}

func TestValidate(t *testing.T) {
	newConfig := func(t *testing.T) *Config {
		t.Helper()
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))
		cfg, err := LoadOrDefault("", dir)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing source", func(c *Config) { c.Paths.Source = "missing" }},
		{"same outputs", func(c *Config) { c.Targets.Prefixed.Output = c.Targets.Root.Output }},
		{"output inside source", func(c *Config) { c.Targets.Root.Output = "src/dist" }},
		{"nested outputs", func(c *Config) { c.Targets.Prefixed.Output = "dist/prefixed" }},
		{"escaping partials", func(c *Config) { c.Paths.Partials = "../partials" }},
		{"bad schedule", func(c *Config) { c.Watch.Schedule = "not a cron" }},
		{"empty base path", func(c *Config) { c.Targets.Prefixed.BasePath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation), "got %v", err)
		})
	}

	t.Run("valid schedule", func(t *testing.T) {
		cfg := newConfig(t)
		cfg.Watch.Schedule = "0 3 * * *"
		require.NoError(t, cfg.Validate())
	})
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SITES_DIR", filepath.Join(dir, "sites"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))
	path := filepath.Join(dir, DefaultFileName)

	require.NoError(t, Init(path, false))
	err := Init(path, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "my-site", cfg.Project.Name)
	assert.Equal(t, filepath.Join(dir, "sites", "my-site"), cfg.Targets.Prefixed.Output)
	assert.Equal(t, "https://example.com", cfg.Sitemap.SiteURL)
}

func TestNormalizeBuildMode(t *testing.T) {
	assert.Equal(t, BuildModeDevelopment, NormalizeBuildMode(" DEV "))
	assert.Equal(t, BuildModeProduction, NormalizeBuildMode("bogus"))
	_, err := ParseBuildMode("bogus")
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel("warning"))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel(""))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
}
