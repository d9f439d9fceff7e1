// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/filesystem"
	"github.com/vidsan-cli/vidsan/where"
)

// EnvKeyReplacer is a strings.Replacer used to normalize configuration keys into environment variable naming conventions.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup initializes the global configuration state, including defaults, environment bindings, and localized file resolution.
func Setup() error {
	viper.SetConfigName(constant.Vidsan)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	// .env files never override variables already set in the environment.
	loadDotEnv(".env", filepath.Join(where.Config(), ".env"))

	// Synchronize environment variable bindings.
	viper.SetEnvPrefix(constant.Vidsan)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	// Initialize factory default values.
	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return nil
}

func loadDotEnv(paths ...string) {
	existing := lo.Filter(paths, func(path string, _ int) bool {
		ok, err := filesystem.API().Exists(path)
		return err == nil && ok
	})

	for _, path := range existing {
		f, err := filesystem.API().Open(path)
		if err != nil {
			continue
		}

		vars, err := godotenv.Parse(f)
		_ = f.Close()
		if err != nil {
			continue
		}

		for k, v := range vars {
			if _, set := os.LookupEnv(k); !set {
				_ = os.Setenv(k, v)
			}
		}
	}
}

// Suggest returns the registered key closest to k, for did-you-mean hints.
// It reports false when nothing is close enough.
func Suggest(k string) (string, bool) {
	keys := lo.Keys(Default)
	sort.Strings(keys)

	best, distance := "", -1
	for _, candidate := range keys {
		d := levenshtein.Distance(k, candidate)
		if distance == -1 || d < distance {
			best, distance = candidate, d
		}
	}

	if distance == -1 || distance > len(k)/2+1 {
		return "", false
	}
	return best, true
}
