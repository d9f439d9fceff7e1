package provider

import (
	"strings"
	"sync"

	"github.com/spf13/viper"
	"github.com/vidsan-cli/vidsan/auth"
	"github.com/vidsan-cli/vidsan/domain"
	"github.com/vidsan-cli/vidsan/internal/cache"
	"github.com/vidsan-cli/vidsan/key"
	"github.com/vidsan-cli/vidsan/network"
	"github.com/vidsan-cli/vidsan/where"
)

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide Registry built from configuration.
func Default() *Registry {
	defaultOnce.Do(func() {
		client := network.Default()
		defaultRegistry = New(Options{
			Client:    client,
			Tracker:   domain.NewTracker(client, cache.Default()),
			Language:  viper.GetString(key.ExtractorsLanguage),
			Setting:   Setting,
			CustomDir: where.Extractors(),
			Workers:   viper.GetInt(key.ExtractorsWorkers),
		})
	})
	return defaultRegistry
}

// Setting resolves a configuration key. Secrets stored in the keyring win
// over the config file.
func Setting(k string) string {
	if strings.HasPrefix(k, "secrets.") {
		if v, err := auth.GetSecret(k); err == nil && v != "" {
			return v
		}
	}
	return viper.GetString(k)
}
