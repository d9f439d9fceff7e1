package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vidsan-cli/vidsan/color"
	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/key"
	"github.com/vidsan-cli/vidsan/network"
	"github.com/vidsan-cli/vidsan/style"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Vidsan + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	// register validates and adds a new configuration field to the global registry.
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		f := Field{Key: k, Value: v, Description: desc}
		Default[k] = f
		EnvExposed = append(EnvExposed, k)
	}

	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")

	register(key.NetworkUserAgent, constant.UserAgent, "User-Agent sent to hosts that do not require a specific one")
	register(key.NetworkTimeout, network.DefaultTimeout.String(), "Timeout of a single request, redirects included")
	register(key.NetworkConnectTimeout, network.DefaultConnectTimeout.String(), "Timeout of the TCP and TLS handshake")
	register(key.NetworkRate, 8, "Maximum requests per second to a single host.\n0 disables pacing")
	register(key.NetworkInsecureFallback, true, "Retry once without certificate verification when a host's certificate is invalid")
	register(key.NetworkDenylist, []string{"streamingcommunityz.green"}, "Hosts whose redirects never update a provider's domain")

	register(key.DoHEnabled, true, "Resolve hosts over DNS-over-HTTPS")
	register(key.DoHPrimary, network.DefaultDoHPrimary, "Primary DNS-over-HTTPS endpoint")
	register(key.DoHFallback, network.DefaultDoHFallback, "Endpoint used when the primary one fails")
	register(key.DoHCacheSize, 1024*1024, "Size in bytes of the DNS answer cache")

	register(key.ExtractorsLanguage, "en", "Preferred audio language.\nAvailable options are: en, it, fr")
	register(key.ExtractorsCustomDir, "", "Directory with custom Lua extractors.\nEmpty uses the extractors directory inside the config dir")
	register(key.ExtractorsWorkers, 4, "Extractors queried at once by \"vidsan servers --all\"")

	register(key.ProvidersAutoupdate, true, "Discover the current domain of providers that relocate")
	register(key.ProvidersStreamingCommunityURL, "https://streamingunity.tv/", "StreamingCommunity address used before discovery")
	register(key.ProvidersStreamingCommunityLocale, "", "StreamingCommunity language, en or it.\nEmpty follows extractors.default_language")
	register(key.ProvidersFrenchStreamURL, "https://fs8.lol/", "FrenchStream address used before discovery")
	register(key.ProvidersFrenchStreamPortal, "http://fstream.info/", "Page listing the current FrenchStream address")
	register(key.ProvidersFrenchStreamLanguage, "VF", "FrenchStream episode language, VF or VOSTFR")

	register(key.SecretsVidrockPassphrase, "x7k9mPqT2rWvY8zA5bC3nF6hJ2lK4mN9", "Passphrase of Vidrock's AES envelopes.\nA value stored with \"vidsan secret set\" takes precedence")

	register(key.ServeAddress, "127.0.0.1:7878", "Address of \"vidsan serve\"")
	register(key.ServeCorsOrigins, []string{"*"}, "Origins allowed to call \"vidsan serve\"")

	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
