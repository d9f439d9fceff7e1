// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// Network Transport - these keys tune the outbound client shared by every extractor.
const (
	NetworkUserAgent        = "network.user_agent"
	NetworkTimeout          = "network.timeout"
	NetworkConnectTimeout   = "network.connect_timeout"
	NetworkRate             = "network.rate"
	NetworkInsecureFallback = "network.insecure_fallback"
	NetworkDenylist         = "network.denylist"
)

// DNS-over-HTTPS - these keys select the encrypted resolvers used for host lookups.
const (
	DoHEnabled   = "network.doh.enabled"
	DoHPrimary   = "network.doh.primary"
	DoHFallback  = "network.doh.fallback"
	DoHCacheSize = "network.doh.cache_size"
)

// Extractors - these keys configure host strategies and the custom Lua directory.
const (
	ExtractorsLanguage  = "extractors.default_language"
	ExtractorsCustomDir = "extractors.custom_dir"
	ExtractorsWorkers   = "extractors.workers"
)

// Rotating Providers - these keys manage domain discovery for hosts that relocate.
const (
	ProvidersAutoupdate               = "providers.autoupdate"
	ProvidersStreamingCommunityURL    = "providers.streamingcommunity.default_url"
	ProvidersFrenchStreamURL          = "providers.frenchstream.default_url"
	ProvidersFrenchStreamPortal       = "providers.frenchstream.portal_url"
	ProvidersFrenchStreamLanguage     = "providers.frenchstream.language"
	ProvidersStreamingCommunityLocale = "providers.streamingcommunity.language"
)

// Secrets - opaque values reverse-engineered from upstream sites.
const (
	SecretsVidrockPassphrase = "secrets.vidrock_passphrase"
)

// Local Server - these keys configure the optional serve command.
const (
	ServeAddress     = "serve.address"
	ServeCorsOrigins = "serve.cors_origins"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// CLI Execution Environment - these flags and settings govern terminal output.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
