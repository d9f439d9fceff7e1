// Package domain tracks the current address of providers whose canonical
// host rotates.
//
// Each provider owns one State. A Tracker publishes states atomically so
// readers never block, and serializes discovery per provider so that any
// number of concurrent first callers cause a single discovery fetch.
package domain

import (
	"fmt"

	"github.com/vidsan-cli/vidsan/network"
)

// Phase is the lifecycle stage of a provider's State.
type Phase int

const (
	Uninitialized Phase = iota
	Resolving
	Ready
)

func (p Phase) String() string {
	switch p {
	case Resolving:
		return "resolving"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// State is an immutable snapshot of a provider's address.
type State struct {
	BaseURL string
	Logo    string
	// Version is an opaque freshness token some hosts require on requests.
	Version    string
	Mode       network.Mode
	Generation uint64
	Phase      Phase
}

func (s State) String() string {
	return fmt.Sprintf("%s (%s, %s, generation %d)", s.BaseURL, s.Phase, s.Mode, s.Generation)
}

// Cache persists discovered values across runs.
type Cache interface {
	GetProviderCache(provider, key string) string
	SetProviderCache(provider, key, value string)
}

// Keys used with Cache.
const (
	KeyURL        = "url"
	KeyLogo       = "logo"
	KeyVersion    = "version"
	KeyPortalURL  = "portal_url"
	KeyAutoupdate = "autoupdate"
)

// Provider describes a provider with a rotating address.
type Provider struct {
	Name       string
	Default    string
	Logo       string
	Discoverer Discoverer
	// Autoupdate enables discovery on first use. When false, discovery
	// only runs on Refresh.
	Autoupdate bool
}

// nopCache is used when a Tracker is built without a Cache.
type nopCache struct{}

func (nopCache) GetProviderCache(string, string) string  { return "" }
func (nopCache) SetProviderCache(string, string, string) {}
