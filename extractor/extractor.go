// Package extractor holds the host strategies that turn a third-party link
// into a playable media.Video.
//
// Every strategy implements Extractor. Strategies that can list candidate
// mirrors for a movie or an episode also implement ServerLister and, when
// they can pick one directly, ServerPicker.
package extractor

import (
	"context"
	"net/url"
	"strings"

	"github.com/vidsan-cli/vidsan/domain"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/network"
)

// Identity is the static description of a strategy.
type Identity struct {
	Name      string   `json:"name"`
	MainURL   string   `json:"main_url"`
	AliasURLs []string `json:"alias_urls,omitempty"`
}

// Hosts returns the lowercased hosts of MainURL and every alias, without a
// leading "www.".
func (i Identity) Hosts() []string {
	var hosts []string
	for _, raw := range append([]string{i.MainURL}, i.AliasURLs...) {
		if host := Host(raw); host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// Matches reports whether host is one of the identity's hosts or a
// subdomain of one.
func (i Identity) Matches(host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	for _, h := range i.Hosts() {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Host returns the normalized host of rawURL, or "" when it has none.
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return normalizeHost(u.Hostname())
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	return strings.TrimPrefix(host, "www.")
}

// Extractor resolves links on the hosts named by its Identity.
type Extractor interface {
	Identity() Identity
	Extract(ctx context.Context, link string) (*media.Video, error)
}

// ServerLister enumerates candidate servers for a movie or an episode.
type ServerLister interface {
	Servers(ctx context.Context, t media.Type) ([]media.Server, error)
}

// ServerPicker returns the preferred server for a movie or an episode.
type ServerPicker interface {
	Server(ctx context.Context, t media.Type) (media.Server, error)
}

// Delegate resolves a link through whichever strategy claims it. Strategies
// that only unwrap a link to another host hand the result to it.
type Delegate interface {
	Extract(ctx context.Context, link string) (*media.Video, error)
}

// Env carries what strategies need from their surroundings.
type Env struct {
	Client   *network.Client
	Tracker  *domain.Tracker
	Delegate Delegate
	// Language is the preferred audio language: "en", "it" or "fr".
	Language string
	// Setting returns a configuration value by key (see package key),
	// such as a passphrase or a provider's default address.
	Setting func(key string) string
}

func (e Env) setting(key, fallback string) string {
	if e.Setting != nil {
		if v := e.Setting(key); v != "" {
			return v
		}
	}
	return fallback
}

func (e Env) language() string {
	if e.Language == "" {
		return "en"
	}
	return e.Language
}
