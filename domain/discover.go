package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/vidsan-cli/vidsan/network"
)

// Probe is what a Discoverer gets to work with.
type Probe struct {
	Provider string
	Current  State
	Client   *network.Client
	Cache    Cache
}

// Discovery is the outcome of a successful discovery.
type Discovery struct {
	BaseURL string
	Logo    string
	Version string
	Mode    network.Mode
}

// Discoverer finds a provider's current address.
type Discoverer interface {
	Discover(ctx context.Context, p Probe) (Discovery, error)
}

// DiscovererFunc adapts a function to Discoverer.
type DiscovererFunc func(ctx context.Context, p Probe) (Discovery, error)

func (f DiscovererFunc) Discover(ctx context.Context, p Probe) (Discovery, error) {
	return f(ctx, p)
}

// Directory reads the address from a portal page that lists the current
// domain, such as a "current address" page.
type Directory struct {
	PortalURL string
	// Selector matches the element holding the address in its href.
	Selector string
	// LogoPath is appended to the discovered address to form the logo URL.
	LogoPath string
}

func (d Directory) Discover(ctx context.Context, p Probe) (Discovery, error) {
	portal := d.PortalURL
	if override := p.Cache.GetProviderCache(p.Provider, KeyPortalURL); override != "" {
		portal = override
	}
	if portal == "" {
		return Discovery{}, errors.New("no portal url")
	}

	resp, err := p.Client.Get(ctx, portal)
	if err != nil {
		return Discovery{}, err
	}

	doc, err := resp.Document()
	if err != nil {
		return Discovery{}, err
	}

	href, ok := doc.Find(d.Selector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return Discovery{}, fmt.Errorf("portal %s: nothing matches %q", portal, d.Selector)
	}

	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return Discovery{}, fmt.Errorf("portal %s: invalid address %q", portal, href)
	}

	base := withSlash(href)
	found := Discovery{BaseURL: base, Mode: resp.Mode}
	if d.LogoPath != "" {
		found.Logo = base + d.LogoPath
	}
	return found, nil
}

// Redirect probes the current address and adopts whatever host the redirect
// chain ends on. When VersionPath is set, the Inertia version token is read
// from the page at that path.
type Redirect struct {
	// Fallback is probed when the provider has no address yet.
	Fallback    string
	VersionPath string
	LogoPath    string
}

func (r Redirect) Discover(ctx context.Context, p Probe) (Discovery, error) {
	probe := p.Current.BaseURL
	if probe == "" {
		probe = r.Fallback
	}
	if probe == "" {
		return Discovery{}, errors.New("nothing to probe")
	}

	resp, err := p.Client.Get(ctx, probe)
	if err != nil {
		return Discovery{}, err
	}

	final, err := url.Parse(resp.FinalURL)
	if err != nil || final.Host == "" {
		return Discovery{}, fmt.Errorf("probe %s: invalid final url %q", probe, resp.FinalURL)
	}
	if network.Denied(p.Client.Options().Denylist, final.Hostname()) {
		return Discovery{}, fmt.Errorf("probe %s: landed on denylisted host %s", probe, final.Host)
	}

	base := final.Scheme + "://" + final.Host + "/"
	found := Discovery{BaseURL: base, Mode: resp.Mode}
	if r.LogoPath != "" {
		found.Logo = base + r.LogoPath
	}

	if r.VersionPath != "" {
		// A missing version is not fatal; requests simply go out without it.
		if version, err := InertiaVersion(ctx, p.Client.With(resp.Mode), base+strings.TrimPrefix(r.VersionPath, "/")); err == nil {
			found.Version = version
		}
	}

	return found, nil
}

// InertiaVersion reads the version token from the data-page attribute of an
// Inertia app root.
func InertiaVersion(ctx context.Context, client *network.Client, pageURL string) (string, error) {
	doc, err := client.GetDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}

	page, ok := doc.Find("#app").Attr("data-page")
	if !ok || page == "" {
		return "", errors.New("no inertia data-page")
	}

	var data struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal([]byte(page), &data); err != nil {
		return "", err
	}
	if data.Version == "" {
		return "", errors.New("empty inertia version")
	}
	return data.Version, nil
}

// Chain tries each discoverer in order and returns the first success.
type Chain []Discoverer

func (c Chain) Discover(ctx context.Context, p Probe) (Discovery, error) {
	var errList []error
	for _, d := range c {
		found, err := d.Discover(ctx, p)
		if err == nil {
			return found, nil
		}
		errList = append(errList, err)
	}
	if len(errList) == 0 {
		return Discovery{}, errors.New("no discoverers")
	}
	return Discovery{}, errors.Join(errList...)
}
