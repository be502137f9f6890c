package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-webbeans/framework/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "webbeans", cfg.App.Name)
	assert.Equal(t, "8000", cfg.App.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Deployment.Descriptor.Alternatives)
}

func TestLoad_EnvAndDescriptor(t *testing.T) {
	descriptor := writeFile(t, "beans.yaml", `
alternatives:
  - example.com/app.MockMailer
decorators:
  - example.com/app.Timing
  - example.com/app.Audit
`)
	t.Setenv("APP_NAME", "shop")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("BEANS_DESCRIPTOR", descriptor)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "shop", cfg.App.Name)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"example.com/app.MockMailer"}, cfg.Deployment.Descriptor.Alternatives)
	assert.Equal(t, []string{"example.com/app.Timing", "example.com/app.Audit"}, cfg.Deployment.Descriptor.Decorators)
}

func TestLoad_DotEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "APP_ENV=testing\nAPP_DEBUG=false\n")
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_DEBUG", "")
	os.Unsetenv("APP_ENV")
	os.Unsetenv("APP_DEBUG")

	cfg, err := config.Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "testing", cfg.App.Env)
	assert.False(t, cfg.App.Debug)
}

func TestLoad_InvalidValuesAreRejected(t *testing.T) {
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Log.Level must be one of")
}

func TestValidate_DuplicateDescriptorEntries(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{Name: "x", Env: "local", Port: "80"},
		Log: config.LogConfig{Level: "info", Format: "console"},
		Deployment: config.DeploymentConfig{
			Descriptor: config.Descriptor{Decorators: []string{"a.B", "a.B"}},
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contains duplicates")
}

func TestLoadDescriptor_Errors(t *testing.T) {
	_, err := config.LoadDescriptor(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = config.LoadDescriptor(writeFile(t, "bad.yaml", "alternatives: {"))
	assert.Error(t, err)
}
