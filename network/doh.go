package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coocood/freecache"
	"github.com/miekg/dns"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/log"
)

// Default DNS-over-HTTPS endpoints.
const (
	DefaultDoHPrimary  = "https://1.1.1.1/dns-query"
	DefaultDoHFallback = "https://dns.google/dns-query"
)

const (
	dohContentType  = "application/dns-message"
	minCacheSize    = 512 * 1024
	defaultCacheTTL = 60
)

// Resolver looks up hosts over DNS-over-HTTPS (RFC 8484). A failed lookup
// on the primary endpoint is retried once against the fallback.
type Resolver struct {
	primary  string
	fallback string
	client   *http.Client
	cache    *freecache.Cache
}

// NewResolver returns a resolver for the given endpoints. cacheSize is the
// answer cache size in bytes.
func NewResolver(primary, fallback string, cacheSize int) *Resolver {
	if cacheSize < minCacheSize {
		cacheSize = minCacheSize
	}

	return &Resolver{
		primary:  primary,
		fallback: fallback,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				ForceAttemptHTTP2:   true,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cache: freecache.NewCache(cacheSize),
	}
}

// LookupHost returns the addresses of host. IP literals are returned as is.
func (r *Resolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{host}, nil
	}
	if host == "localhost" {
		return []string{"127.0.0.1"}, nil
	}

	if cached, err := r.cache.Get([]byte(host)); err == nil {
		return strings.Split(string(cached), ","), nil
	}

	ips, ttl, err := r.query(ctx, r.primary, host)
	if err != nil && r.fallback != "" {
		log.Warnf("doh: primary resolver failed for %s: %v", host, err)
		ips, ttl, err = r.query(ctx, r.fallback, host)
	}
	if err != nil {
		return nil, &errs.NetworkError{Op: "dns", URL: host, Err: err}
	}

	_ = r.cache.Set([]byte(host), []byte(strings.Join(ips, ",")), ttl)
	return ips, nil
}

func (r *Resolver) query(ctx context.Context, endpoint, host string) ([]string, int, error) {
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		ips, ttl, err := r.exchange(ctx, endpoint, host, qtype)
		if err != nil {
			return nil, 0, err
		}
		if len(ips) > 0 {
			return ips, ttl, nil
		}
		lastErr = fmt.Errorf("no %s records for %s", dns.TypeToString[qtype], host)
	}
	return nil, 0, lastErr
}

func (r *Resolver) exchange(ctx context.Context, endpoint, host string, qtype uint16) ([]string, int, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.Id = 0
	msg.RecursionDesired = true

	wire, err := msg.Pack()
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(wire))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", dohContentType)
	req.Header.Set("Accept", dohContentType)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("%s: status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, 0, err
	}

	reply := new(dns.Msg)
	if err := reply.Unpack(body); err != nil {
		return nil, 0, err
	}
	if reply.Rcode != dns.RcodeSuccess {
		return nil, 0, errors.New("dns: " + dns.RcodeToString[reply.Rcode])
	}

	var (
		ips []string
		ttl = -1
	)
	for _, rr := range reply.Answer {
		var ip string
		switch rec := rr.(type) {
		case *dns.A:
			ip = rec.A.String()
		case *dns.AAAA:
			ip = rec.AAAA.String()
		default:
			continue
		}
		ips = append(ips, ip)
		if t := int(rr.Header().Ttl); ttl < 0 || t < ttl {
			ttl = t
		}
	}

	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return ips, ttl, nil
}
