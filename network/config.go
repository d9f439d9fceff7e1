package network

import (
	"sync"

	"github.com/spf13/viper"
	"github.com/vidsan-cli/vidsan/key"
)

var (
	defaultOnce   sync.Once
	defaultClient *Client
)

// FromConfig builds Options from the current configuration.
func FromConfig() Options {
	opts := Options{
		UserAgent:          viper.GetString(key.NetworkUserAgent),
		Timeout:            viper.GetDuration(key.NetworkTimeout),
		ConnectTimeout:     viper.GetDuration(key.NetworkConnectTimeout),
		Denylist:           viper.GetStringSlice(key.NetworkDenylist),
		NoInsecureFallback: !viper.GetBool(key.NetworkInsecureFallback),
		Limiter:            NewLimiter(viper.GetInt(key.NetworkRate)),
	}

	if viper.GetBool(key.DoHEnabled) {
		opts.Resolver = NewResolver(
			viper.GetString(key.DoHPrimary),
			viper.GetString(key.DoHFallback),
			viper.GetInt(key.DoHCacheSize),
		)
	}

	return opts
}

// Default returns the process-wide Secure client built from configuration.
// Derived clients share its connection pools.
func Default() *Client {
	defaultOnce.Do(func() {
		defaultClient = New(FromConfig())
	})
	return defaultClient
}
