// Package cache persists per-provider values such as discovered domains,
// logos and version tokens across runs.
package cache

import (
	"sort"
	"sync"

	"github.com/metafates/gache"
	"github.com/samber/mo"
	"github.com/vidsan-cli/vidsan/filesystem"
	"github.com/vidsan-cli/vidsan/log"
	"github.com/vidsan-cli/vidsan/where"
)

type cacheData struct {
	Providers map[string]map[string]string `json:"providers"`
}

// Store is a file-backed provider key-value store.
type Store struct {
	internal *gache.Cache[*cacheData]
	mu       sync.RWMutex
}

// New returns a Store persisted at path.
func New(path string) *Store {
	return &Store{
		internal: gache.New[*cacheData](&gache.Options{
			Path:       path,
			FileSystem: filesystem.Gache(),
		}),
	}
}

var (
	defaultStore *Store
	defaultOnce  sync.Once
)

// Default returns the store at where.Providers().
func Default() *Store {
	defaultOnce.Do(func() {
		defaultStore = New(where.Providers())
	})
	return defaultStore
}

func (s *Store) load() *cacheData {
	data, expired, err := s.internal.Get()
	if err != nil || expired || data == nil || data.Providers == nil {
		return &cacheData{Providers: make(map[string]map[string]string)}
	}
	return data
}

// Get returns the value stored for provider and key.
func (s *Store) Get(provider, key string) mo.Option[string] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.load().Providers[provider][key]
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(value)
}

// Set stores value for provider and key.
func (s *Store) Set(provider, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	values, ok := data.Providers[provider]
	if !ok {
		values = make(map[string]string)
		data.Providers[provider] = values
	}
	values[key] = value
	return s.internal.Set(data)
}

// GetProviderCache returns the stored value or an empty string.
func (s *Store) GetProviderCache(provider, key string) string {
	return s.Get(provider, key).OrEmpty()
}

// SetProviderCache stores a value, logging persistence failures.
func (s *Store) SetProviderCache(provider, key, value string) {
	if err := s.Set(provider, key, value); err != nil {
		log.Warnf("cache: could not persist %s/%s: %v", provider, key, err)
	}
}

// Provider returns a copy of everything stored for provider.
func (s *Store) Provider(provider string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[string]string)
	for k, v := range s.load().Providers[provider] {
		values[k] = v
	}
	return values
}

// Providers returns the names of providers with stored values, sorted.
func (s *Store) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name := range s.load().Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes everything stored for provider.
func (s *Store) Clear(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	if _, ok := data.Providers[provider]; !ok {
		return nil
	}
	delete(data.Providers, provider)
	return s.internal.Set(data)
}
