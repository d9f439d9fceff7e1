package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vidsan-cli/vidsan/log"
	"github.com/vidsan-cli/vidsan/network"
)

// ErrUnknownProvider is returned for names that were never registered.
var ErrUnknownProvider = errors.New("unknown provider")

type entry struct {
	provider Provider
	mu       sync.Mutex
	state    atomic.Pointer[State]
}

func (e *entry) load() State {
	return *e.state.Load()
}

// Tracker owns the State of every registered provider.
type Tracker struct {
	client  *network.Client
	cache   Cache
	entries *xsync.MapOf[string, *entry]
}

// NewTracker returns a Tracker that discovers with client and persists to
// cache. A nil cache keeps everything in memory.
func NewTracker(client *network.Client, cache Cache) *Tracker {
	if cache == nil {
		cache = nopCache{}
	}
	return &Tracker{
		client:  client,
		cache:   cache,
		entries: xsync.NewMapOf[string, *entry](),
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds p, seeding its state from the cache or its default.
// Registering the same name twice keeps the first registration.
func (t *Tracker) Register(p Provider) {
	t.entries.LoadOrCompute(normalize(p.Name), func() *entry {
		e := &entry{provider: p}
		e.state.Store(&State{
			BaseURL: withSlash(t.cached(p.Name, KeyURL, p.Default)),
			Logo:    t.cached(p.Name, KeyLogo, p.Logo),
			Version: t.cache.GetProviderCache(p.Name, KeyVersion),
			Phase:   Uninitialized,
		})
		return e
	})
}

// Providers returns the registered provider names, sorted.
func (t *Tracker) Providers() []string {
	var names []string
	t.entries.Range(func(_ string, e *entry) bool {
		names = append(names, e.provider.Name)
		return true
	})
	sort.Strings(names)
	return names
}

// Peek returns the published state without triggering discovery.
func (t *Tracker) Peek(name string) (State, error) {
	e, ok := t.entries.Load(normalize(name))
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return e.load(), nil
}

// Get returns the provider's Ready state, running discovery at most once
// no matter how many callers arrive concurrently. Discovery failures are
// not returned; the last known or default address is published instead.
func (t *Tracker) Get(ctx context.Context, name string) (State, error) {
	e, ok := t.entries.Load(normalize(name))
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	if s := e.load(); s.Phase == Ready {
		return s, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if s := e.load(); s.Phase == Ready {
		return s, nil
	}

	return t.discover(ctx, e, false), nil
}

// Refresh re-runs discovery regardless of the current phase.
func (t *Tracker) Refresh(ctx context.Context, name string) (State, error) {
	e, ok := t.entries.Load(normalize(name))
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return t.discover(ctx, e, true), nil
}

// discover must be called with e.mu held.
func (t *Tracker) discover(ctx context.Context, e *entry, force bool) State {
	var current State
	for {
		old := e.state.Load()
		resolving := *old
		resolving.Phase = Resolving
		if e.state.CompareAndSwap(old, &resolving) {
			current = *old
			break
		}
	}

	next := current
	next.Phase = Ready

	name := e.provider.Name
	discovered := false
	autoupdate := e.provider.Autoupdate && t.cache.GetProviderCache(name, KeyAutoupdate) != "false"

	switch {
	case e.provider.Discoverer == nil:
	case !force && !autoupdate:
		log.Debugf("domain: autoupdate disabled for %s, using %s", name, current.BaseURL)
	default:
		found, err := e.provider.Discoverer.Discover(ctx, Probe{
			Provider: name,
			Current:  current,
			Client:   t.client.With(current.Mode),
			Cache:    t.cache,
		})
		if err != nil {
			log.Warnf("domain: discovery for %s failed, keeping %s: %v", name, current.BaseURL, err)
			break
		}

		next.BaseURL = withSlash(found.BaseURL)
		next.Mode = found.Mode
		if found.Logo != "" {
			next.Logo = found.Logo
		}
		if found.Version != "" {
			next.Version = found.Version
		}

		t.cache.SetProviderCache(name, KeyURL, next.BaseURL)
		t.cache.SetProviderCache(name, KeyLogo, next.Logo)
		t.cache.SetProviderCache(name, KeyVersion, next.Version)

		discovered = true
		log.Infof("domain: %s resolved to %s (%s)", name, next.BaseURL, next.Mode)
	}

	// Report may advance the state while discovery runs, up to the swap.
	for {
		latest := e.state.Load()
		published := next
		if !discovered {
			published.BaseURL = latest.BaseURL
		}
		published.Generation = latest.Generation + 1
		if e.state.CompareAndSwap(latest, &published) {
			return published
		}
	}
}

// Report records that a request for the provider was redirected to host.
// Hosts equal to the current one, or denylisted by the client, are ignored.
func (t *Tracker) Report(name, host string) {
	e, ok := t.entries.Load(normalize(name))
	if !ok || host == "" {
		return
	}

	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	if network.Denied(t.client.Options().Denylist, hostname) {
		log.Infof("domain: ignoring denylisted host %s for %s", host, name)
		return
	}

	for {
		old := e.state.Load()
		u, err := url.Parse(old.BaseURL)
		if err != nil || strings.EqualFold(u.Host, host) {
			return
		}

		scheme := u.Scheme
		if scheme == "" {
			scheme = "https"
		}

		next := *old
		next.BaseURL = scheme + "://" + host + "/"
		next.Generation++
		if e.state.CompareAndSwap(old, &next) {
			t.cache.SetProviderCache(e.provider.Name, KeyURL, next.BaseURL)
			log.Infof("domain: %s moved from %s to %s", name, old.BaseURL, next.BaseURL)
			return
		}
	}
}

// Invalidate marks the provider stale so the next Get rediscovers it. It
// only applies when generation is still the published one, and reports
// whether it did.
func (t *Tracker) Invalidate(name string, generation uint64) bool {
	e, ok := t.entries.Load(normalize(name))
	if !ok {
		return false
	}

	for {
		old := e.state.Load()
		if old.Generation != generation || old.Phase != Ready {
			return false
		}

		next := *old
		next.Phase = Uninitialized
		if e.state.CompareAndSwap(old, &next) {
			return true
		}
	}
}

// Client returns a client in the provider's transport mode whose redirects
// feed Report.
func (t *Tracker) Client(name string) *network.Client {
	mode := network.Secure
	if e, ok := t.entries.Load(normalize(name)); ok {
		mode = e.load().Mode
	}

	return t.client.With(mode).WithHostChange(func(_, to string) {
		t.Report(name, to)
	})
}

// SetAutoupdate persists the autoupdate switch for a provider.
func (t *Tracker) SetAutoupdate(name string, enabled bool) {
	t.cache.SetProviderCache(name, KeyAutoupdate, fmt.Sprint(enabled))
}

// SetPortal persists a portal URL override used by Directory discovery.
func (t *Tracker) SetPortal(name, portal string) {
	t.cache.SetProviderCache(name, KeyPortalURL, portal)
}

func (t *Tracker) cached(provider, key, fallback string) string {
	if v := t.cache.GetProviderCache(provider, key); v != "" {
		return v
	}
	return fallback
}

func withSlash(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
