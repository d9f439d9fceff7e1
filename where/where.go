// Package where resolves the filesystem locations used by vidsan.
package where

import (
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/filesystem"
	"github.com/vidsan-cli/vidsan/key"
)

// Environment overrides.
const (
	EnvConfigPath = "VIDSAN_CONFIG_PATH"
	EnvCachePath  = "VIDSAN_CACHE_PATH"
)

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config returns the configuration directory.
// It can be overridden with the VIDSAN_CONFIG_PATH environment variable.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.Vidsan))
}

// Cache returns the cache directory.
// It can be overridden with the VIDSAN_CACHE_PATH environment variable.
func Cache() string {
	if custom, ok := os.LookupEnv(EnvCachePath); ok {
		return ensureDir(custom)
	}

	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.Vidsan))
}

// Logs returns the directory for log files.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Extractors returns the directory holding custom Lua extractors.
// extractors.custom_dir takes precedence when set.
func Extractors() string {
	if custom := viper.GetString(key.ExtractorsCustomDir); custom != "" {
		return ensureDir(custom)
	}
	return ensureDir(filepath.Join(Config(), "extractors"))
}

// Providers returns the file where discovered provider domains are stored.
func Providers() string {
	return filepath.Join(Cache(), "providers.json")
}

// Temp returns a directory for short-lived files.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.Vidsan))
}
