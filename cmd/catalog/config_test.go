package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_WritesDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "catalog")

	v, err := loadConfig(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfigYAML, string(data))

	assert.Equal(t, "sqlite", v.GetString(cfgKeyBackend))
	assert.Equal(t, defaultServerAddr, v.GetString(cfgKeyServerAddr))
	assert.Equal(t, "warn", v.GetString(cfgKeyLogLevel))
	assert.Empty(t, v.GetString(cfgKeyServerURL))
	assert.Empty(t, v.GetString(cfgKeyDataDir))
}

func TestLoadConfig_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`backend: sqlite
data_dir: /srv/catalog
server:
  url: http://catalog.internal:8420
log:
  level: debug
`), 0o644))

	v, err := loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/catalog", v.GetString(cfgKeyDataDir))
	assert.Equal(t, "http://catalog.internal:8420", v.GetString(cfgKeyServerURL))
	assert.Equal(t, "debug", v.GetString(cfgKeyLogLevel))
	assert.Equal(t, "console", v.GetString(cfgKeyLogFormat))
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("data_dir: from-config\nlog:\n  level: info\n"), 0o644))
	t.Setenv("CATALOG_LOG_LEVEL", "error")
	t.Setenv("CATALOG_SERVER_URL", "http://env:1")
	t.Setenv("CATALOG_DATA_DIR", "from-env")

	v, err := loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "error", v.GetString(cfgKeyLogLevel))
	assert.Equal(t, "http://env:1", v.GetString(cfgKeyServerURL))
	// data_dir keeps config.yaml precedence over the environment.
	assert.Equal(t, "from-config", v.GetString(cfgKeyDataDir))
}

func TestLoadConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: [sqlite\n"), 0o644))

	_, err := loadConfig(dir)
	assert.Error(t, err)
}

func TestRun_BadLogLevel(t *testing.T) {
	c := newCLI(t)
	_, stderr, code := c.run(t, "--log-level", "chatty", "types")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "log level")
}

func TestRun_UsageErrors(t *testing.T) {
	c := newCLI(t)
	_, _, code := c.run(t, "show")
	assert.Equal(t, exitUserError, code)
	_, _, code = c.run(t, "list", "--no-such-flag")
	assert.Equal(t, exitUserError, code)
}

func TestSaveConfigValue(t *testing.T) {
	dir := t.TempDir()
	_, err := loadConfig(dir)
	require.NoError(t, err)
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, saveConfigValue(path, cfgKeyDataDir, "/srv/catalog"))
	v, err := loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/catalog", v.GetString(cfgKeyDataDir))
	assert.Equal(t, defaultServerAddr, v.GetString(cfgKeyServerAddr))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# catalog configuration", "comments survive")

	require.NoError(t, saveConfigValue(path, cfgKeyDataDir, "/srv/other"))
	v, err = loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/other", v.GetString(cfgKeyDataDir))
}

func TestInit_User(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("per-user data dir is XDG-based on linux only")
	}
	root := t.TempDir()
	xdgData := filepath.Join(root, "xdg-data")
	configDir := filepath.Join(root, "config")
	t.Setenv("XDG_DATA_HOME", xdgData)
	t.Setenv("CATALOG_DATA_DIR", "")

	runCLI := func(args ...string) (string, string, int) {
		var out, errb bytes.Buffer
		code := run(context.Background(), append([]string{"--config-dir", configDir}, args...), &out, &errb)
		return out.String(), errb.String(), code
	}

	out, stderr, code := runCLI("init", "--user", "--demo")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, out, "Recorded data_dir")
	assert.FileExists(t, filepath.Join(xdgData, "catalog", "entities.jsonl"))

	v, err := loadConfig(configDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(xdgData, "catalog"), v.GetString(cfgKeyDataDir))

	out, stderr, code = runCLI("list", "--type", "color")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, out, "Forest")

	_, _, code = runCLI("--data-dir", filepath.Join(root, "elsewhere"), "init", "--user")
	assert.Equal(t, exitUserError, code)
}
