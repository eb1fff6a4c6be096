// Package paths locates the catalog configuration and data directories.
//
// Both directories resolve from the first non-empty source in a fixed order.
// The config directory uses --config-dir, then CATALOG_CONFIG_DIR, then the
// per-user config directory. The data directory uses --data-dir, then
// data_dir in config.yaml, then CATALOG_DATA_DIR, then .catalog-db in the
// working directory. Explicit sources are made absolute.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "catalog"

// DefaultDataDirName is the data directory created in the working directory
// when nothing else is configured.
const DefaultDataDirName = ".catalog-db"

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.yaml"

// Environment variables consulted after the flags.
const (
	EnvConfigDir = "CATALOG_CONFIG_DIR"
	EnvDataDir   = "CATALOG_DATA_DIR"
)

// Kind selects a per-user directory.
type Kind int

// Per-user directory kinds.
const (
	Config Kind = iota
	Data
)

// xdgDirs maps each kind to its XDG base directory variable and the path
// under $HOME used when that variable is unset.
var xdgDirs = map[Kind]struct {
	env      string
	fallback []string
}{
	Config: {env: "XDG_CONFIG_HOME", fallback: []string{".config"}},
	Data:   {env: "XDG_DATA_HOME", fallback: []string{".local", "share"}},
}

// system is swapped in tests.
var system = struct {
	goos      string
	getenv    func(string) string
	home      func() (string, error)
	configDir func() (string, error)
	getwd     func() (string, error)
}{
	goos:      runtime.GOOS,
	getenv:    os.Getenv,
	home:      os.UserHomeDir,
	configDir: os.UserConfigDir,
	getwd:     os.Getwd,
}

// UserDir returns the per-user catalog directory of the given kind. Linux
// follows the XDG base directories; other systems keep both kinds under
// os.UserConfigDir.
func UserDir(kind Kind) (string, error) {
	if system.goos != "linux" {
		base, err := system.configDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, AppName), nil
	}
	xdg := xdgDirs[kind]
	if base := system.getenv(xdg.env); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := system.home()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, xdg.fallback...), AppName)...), nil
}

// ResolveConfigDir returns the config directory for an explicit --config-dir
// value, which may be empty.
func ResolveConfigDir(flag string) (string, error) {
	if dir, ok, err := firstAbs(flag, system.getenv(EnvConfigDir)); ok || err != nil {
		return dir, err
	}
	return UserDir(Config)
}

// ResolveDataDir returns the data directory for an explicit --data-dir value
// and the data_dir read from config.yaml. Either may be empty.
func ResolveDataDir(flag, configValue string) (string, error) {
	if dir, ok, err := firstAbs(flag, configValue, system.getenv(EnvDataDir)); ok || err != nil {
		return dir, err
	}
	cwd, err := system.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// firstAbs returns the first non-empty candidate made absolute.
func firstAbs(candidates ...string) (string, bool, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		abs, err := filepath.Abs(c)
		return abs, true, err
	}
	return "", false, nil
}

// ConfigFile returns the configuration file path inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}
