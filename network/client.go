// Package network is the resilient transport beneath every extractor.
//
// A Client is an immutable value: changing its transport mode produces a new
// Client and never mutates one that other goroutines may be using. Clients
// resolve hosts over DNS-over-HTTPS, present a browser TLS fingerprint,
// follow redirects by hand so host changes can be observed, and retry once
// without certificate verification when a mirror presents a certificate
// for a different hostname.
package network

import (
	"net/http"
	"sync"
	"time"

	"github.com/vidsan-cli/vidsan/constant"
)

// Mode selects certificate verification.
type Mode int

const (
	Secure Mode = iota
	Insecure
)

func (m Mode) String() string {
	if m == Insecure {
		return "insecure"
	}
	return "secure"
}

// Default timeouts.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 15 * time.Second
	DefaultMaxRedirects   = 10
)

// HostChangeFunc is called when a redirect lands on a host other than the
// one originally requested.
type HostChangeFunc func(from, to string)

// Options configure a Client.
type Options struct {
	Mode           Mode
	UserAgent      string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	MaxRedirects   int

	// Resolver is used for host lookups; nil uses the system resolver.
	Resolver *Resolver
	// Limiter paces requests per host; nil disables pacing.
	Limiter *Limiter

	// Denylist holds host patterns whose redirects are never reported.
	Denylist     []string
	OnHostChange HostChangeFunc

	// NoInsecureFallback disables the one-shot retry without verification.
	NoInsecureFallback bool

	// Transport builds the round tripper for a mode. Nil uses the
	// fingerprinted transport.
	Transport func(Mode) http.RoundTripper

	shared *transports
}

// transports lazily builds one round tripper per mode and is shared by all
// clients derived from the same New call, so connection pools survive With.
type transports struct {
	build func(Mode) http.RoundTripper
	once  [2]sync.Once
	rt    [2]http.RoundTripper
}

func (t *transports) get(mode Mode) http.RoundTripper {
	t.once[mode].Do(func() {
		t.rt[mode] = t.build(mode)
	})
	return t.rt[mode]
}

// Client is an immutable HTTP client value.
type Client struct {
	opts Options
	http *http.Client
}

// New builds a Client from opts.
func New(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = constant.UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	opts.Denylist = append([]string(nil), opts.Denylist...)

	if opts.shared == nil {
		build := opts.Transport
		if build == nil {
			connectTimeout, resolver := opts.ConnectTimeout, opts.Resolver
			build = func(mode Mode) http.RoundTripper {
				return newFingerprintTransport(mode, connectTimeout, resolver)
			}
		}
		opts.shared = &transports{build: build}
	}

	return &Client{
		opts: opts,
		http: &http.Client{
			Transport: opts.shared.get(opts.Mode),
			Timeout:   opts.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Mode returns the client's transport mode.
func (c *Client) Mode() Mode {
	return c.opts.Mode
}

// Options returns a copy of the options the client was built with.
func (c *Client) Options() Options {
	opts := c.opts
	opts.Denylist = append([]string(nil), c.opts.Denylist...)
	return opts
}

// With returns a new Client using mode. The receiver is unchanged.
func (c *Client) With(mode Mode) *Client {
	if mode == c.opts.Mode {
		return c
	}
	opts := c.Options()
	opts.Mode = mode
	return New(opts)
}

// WithHostChange returns a new Client reporting redirect host changes to fn.
func (c *Client) WithHostChange(fn HostChangeFunc) *Client {
	opts := c.Options()
	opts.OnHostChange = fn
	return New(opts)
}
