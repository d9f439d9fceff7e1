package network

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"github.com/vidsan-cli/vidsan/errs"
	"golang.org/x/net/http2"
)

// dialer opens TCP and TLS connections mimicking Chrome's Client Hello.
// Host lookups go through the DoH resolver when one is configured.
type dialer struct {
	mode     Mode
	timeout  time.Duration
	resolver *Resolver
}

func (d *dialer) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	nd := &net.Dialer{Timeout: d.timeout}
	if d.resolver == nil {
		return nd.DialContext(ctx, network, addr)
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ips, err := d.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, ip := range ips {
		conn, err := nd.DialContext(ctx, network, net.JoinHostPort(ip, port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// dialTLS performs a fingerprinted handshake. nextProtos overrides the
// advertised ALPN list when set.
func (d *dialer) dialTLS(ctx context.Context, network, addr string, nextProtos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := d.dial(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName:         host,
		InsecureSkipVerify: d.mode == Insecure,
		MinVersion:         tls.VersionTLS12,
		NextProtos:         nextProtos,
	}, utls.HelloChrome_120)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		if errs.IsTLSValidation(err) {
			return nil, &errs.TLSValidationError{Host: host, Err: err}
		}
		return nil, err
	}

	return tlsConn, nil
}

// fingerprintTransport tries HTTP/2 first and falls back to HTTP/1.1 for
// servers that refuse h2 or for plain http URLs.
type fingerprintTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

func newFingerprintTransport(mode Mode, connectTimeout time.Duration, resolver *Resolver) *fingerprintTransport {
	d := &dialer{mode: mode, timeout: connectTimeout, resolver: resolver}

	return &fingerprintTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return d.dialTLS(ctx, network, addr, nil)
			},
			ReadIdleTimeout: 30 * time.Second,
		},
		h1: &http.Transport{
			DialContext: d.dial,
			DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return d.dialTLS(ctx, network, addr, []string{"http/1.1"})
			},
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   100,
			IdleConnTimeout:       30 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
	}
}

func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	var tlsErr *errs.TLSValidationError
	if errors.As(err, &tlsErr) || req.Context().Err() != nil {
		return nil, err
	}

	retry := req.Clone(req.Context())
	if req.Body != nil && req.GetBody != nil {
		body, berr := req.GetBody()
		if berr != nil {
			return nil, err
		}
		retry.Body = body
	}
	return t.h1.RoundTrip(retry)
}
