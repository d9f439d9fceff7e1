package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/log"
	"github.com/vidsan-cli/vidsan/media"
)

// Request describes one outbound call.
type Request struct {
	Method  string
	URL     string
	Referer string
	Headers media.Headers
	Body    []byte
}

// RequestOption customizes a Request built by the helper methods.
type RequestOption func(*Request)

// WithReferer sets the Referer header.
func WithReferer(referer string) RequestOption {
	return func(r *Request) { r.Referer = referer }
}

// WithHeader sets one header.
func WithHeader(name, value string) RequestOption {
	return func(r *Request) { r.Headers = r.Headers.Set(name, value) }
}

// WithHeaders sets several headers, keeping their order.
func WithHeaders(h media.Headers) RequestOption {
	return func(r *Request) {
		for _, header := range h {
			r.Headers = r.Headers.Set(header.Name, header.Value)
		}
	}
}

// WithForm turns the request into a urlencoded POST.
func WithForm(form url.Values) RequestOption {
	return func(r *Request) {
		r.Method = http.MethodPost
		r.Body = []byte(form.Encode())
		r.Headers = r.Headers.Set("Content-Type", "application/x-www-form-urlencoded")
	}
}

// Response is a fully buffered, decoded response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	// FinalURL is the URL that produced Body after redirects.
	FinalURL string
	// Hops lists every redirect target, in order.
	Hops []string
	// Mode is the transport mode that served the response.
	Mode Mode
}

// String returns the body as text.
func (r *Response) String() string {
	return string(r.Body)
}

// Do sends req. In Secure mode a certificate validation failure is retried
// exactly once through an Insecure client; a second failure is returned as
// a NetworkError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.walk(ctx, req)
	if err == nil || c.opts.Mode != Secure || c.opts.NoInsecureFallback || !errs.IsTLSValidation(err) {
		return resp, err
	}

	log.Warnf("network: tls validation failed for %s, retrying without verification: %v", req.URL, err)
	resp, retryErr := c.With(Insecure).walk(ctx, req)
	if retryErr != nil {
		return nil, &errs.NetworkError{Op: "insecure retry", URL: req.URL, Err: fmt.Errorf("%w; then %w", err, retryErr)}
	}
	return resp, nil
}

// Get fetches rawURL.
func (c *Client) Get(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	req := &Request{Method: http.MethodGet, URL: rawURL}
	for _, opt := range opts {
		opt(req)
	}
	return c.Do(ctx, req)
}

// GetString fetches rawURL and returns the body as text.
func (c *Client) GetString(ctx context.Context, rawURL string, opts ...RequestOption) (string, error) {
	resp, err := c.Get(ctx, rawURL, opts...)
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}

// GetJSON fetches rawURL and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any, opts ...RequestOption) error {
	opts = append([]RequestOption{WithHeader("Accept", "application/json, text/plain, */*")}, opts...)
	resp, err := c.Get(ctx, rawURL, opts...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &errs.NetworkError{Op: "decode json", URL: rawURL, Err: err}
	}
	return nil
}

// GetDocument fetches rawURL and parses it as HTML.
func (c *Client) GetDocument(ctx context.Context, rawURL string, opts ...RequestOption) (*goquery.Document, error) {
	resp, err := c.Get(ctx, rawURL, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Document()
}

// Document parses the body as HTML. Relative links resolve against FinalURL.
func (r *Response) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, &errs.NetworkError{Op: "parse html", URL: r.FinalURL, Err: err}
	}
	if u, err := url.Parse(r.FinalURL); err == nil {
		doc.Url = u
	}
	return doc, nil
}

// walk follows the redirect chain by hand, reporting the first host change.
func (c *Client) walk(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	body := req.Body

	origin, err := url.Parse(req.URL)
	if err != nil {
		return nil, &errs.NetworkError{Op: "parse url", URL: req.URL, Err: err}
	}

	var (
		current  = origin
		hops     []string
		visited  = map[string]bool{origin.String(): true}
		reported bool
	)

	for {
		httpResp, err := c.send(ctx, method, current, req, body)
		if err != nil {
			return nil, classify(current.String(), err)
		}

		if !isRedirect(httpResp.StatusCode) || httpResp.Header.Get("Location") == "" {
			return c.finish(httpResp, current.String(), hops)
		}

		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 64*1024))
		_ = httpResp.Body.Close()

		next, err := current.Parse(httpResp.Header.Get("Location"))
		if err != nil {
			return nil, &errs.NetworkError{Op: "redirect", URL: current.String(), Err: err}
		}
		if visited[next.String()] {
			return nil, &errs.NetworkError{Op: "redirect", URL: next.String(), Err: errors.New("redirect loop")}
		}
		if len(hops) >= c.opts.MaxRedirects {
			return nil, &errs.NetworkError{Op: "redirect", URL: next.String(), Err: fmt.Errorf("stopped after %d redirects", len(hops))}
		}

		visited[next.String()] = true
		hops = append(hops, next.String())
		log.Debugf("network: %d %s -> %s", httpResp.StatusCode, current, next)

		if !reported && next.Host != origin.Host && c.opts.OnHostChange != nil {
			if Denied(c.opts.Denylist, next.Hostname()) {
				log.Infof("network: ignoring redirect to denylisted host %s", next.Hostname())
			} else {
				reported = true
				c.opts.OnHostChange(origin.Host, next.Host)
			}
		}

		if httpResp.StatusCode == http.StatusSeeOther ||
			(method == http.MethodPost && (httpResp.StatusCode == http.StatusMovedPermanently || httpResp.StatusCode == http.StatusFound)) {
			method = http.MethodGet
			body = nil
		}
		current = next
	}
}

func (c *Client) send(ctx context.Context, method string, target *url.URL, req *Request, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("User-Agent", c.opts.UserAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if req.Referer != "" {
		httpReq.Header.Set("Referer", req.Referer)
	}
	req.Headers.Apply(httpReq)

	if err := c.opts.Limiter.Take(ctx, target.Host); err != nil {
		return nil, err
	}
	return c.http.Do(httpReq)
}

func (c *Client) finish(httpResp *http.Response, finalURL string, hops []string) (*Response, error) {
	defer httpResp.Body.Close()

	body, err := readBody(httpResp.Header.Get("Content-Encoding"), httpResp.Body)
	if err != nil {
		return nil, &errs.NetworkError{Op: "read body", URL: finalURL, Err: err}
	}

	if httpResp.StatusCode >= http.StatusBadRequest {
		return nil, &errs.NetworkError{Op: "get", URL: finalURL, Status: httpResp.StatusCode}
	}

	return &Response{
		Status:   httpResp.StatusCode,
		Header:   httpResp.Header,
		Body:     body,
		FinalURL: finalURL,
		Hops:     hops,
		Mode:     c.opts.Mode,
	}, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func classify(rawURL string, err error) error {
	if errs.IsTLSValidation(err) {
		var tlsErr *errs.TLSValidationError
		if !errors.As(err, &tlsErr) {
			host := rawURL
			if u, perr := url.Parse(rawURL); perr == nil {
				host = u.Hostname()
			}
			err = &errs.TLSValidationError{Host: host, Err: err}
		}
	}
	return &errs.NetworkError{Op: "request", URL: rawURL, Err: err}
}

// Denied reports whether host matches one of the denylist patterns. A
// pattern matches the host itself, any of its subdomains, or the host as a
// glob such as "*.example.*".
func Denied(denylist []string, host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, pattern := range denylist {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if host == pattern || strings.HasSuffix(host, "."+pattern) {
			return true
		}
		if ok, _ := path.Match(pattern, host); ok {
			return true
		}
	}
	return false
}
