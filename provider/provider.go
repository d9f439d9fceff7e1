// Package provider resolves links through the builtin and custom
// extractors.
//
// A Registry holds the extractors in a fixed order: builtins first, then
// Lua scripts. Resolution picks the first extractor whose hosts claim the
// link, so order only matters when two extractors claim the same host.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vidsan-cli/vidsan/domain"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/extractor"
	"github.com/vidsan-cli/vidsan/log"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/network"
	"github.com/vidsan-cli/vidsan/provider/custom"
)

// Options configure a Registry.
type Options struct {
	Client  *network.Client
	Tracker *domain.Tracker
	// Language is the preferred audio language.
	Language string
	// Setting looks up configuration values by key.
	Setting func(key string) string
	// CustomDir holds Lua extractors. Empty skips them.
	CustomDir string
	// Workers bounds ServersAll concurrency.
	Workers int
}

// Registry is an ordered, immutable list of extractors.
type Registry struct {
	extractors []extractor.Extractor
	tracker    *domain.Tracker
	workers    int
}

// New builds a Registry. Scripts in CustomDir that fail to load are
// logged and skipped.
func New(opts Options) *Registry {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	r := &Registry{tracker: opts.Tracker, workers: opts.Workers}
	r.extractors = Builtins(extractor.Env{
		Client:   opts.Client,
		Tracker:  opts.Tracker,
		Delegate: r,
		Language: opts.Language,
		Setting:  opts.Setting,
	})

	if opts.Tracker != nil {
		for _, e := range r.extractors {
			if rotating, ok := e.(extractor.Rotating); ok {
				opts.Tracker.Register(rotating.Provider())
			}
		}
	}

	if opts.CustomDir != "" {
		customs, err := custom.LoadAll(opts.CustomDir, opts.Client)
		if err != nil {
			log.Warnf("provider: some custom extractors were skipped: %v", err)
		}
		for _, c := range customs {
			r.extractors = append(r.extractors, c)
		}
	}

	return r
}

// Builtins returns the builtin extractors in resolution order.
func Builtins(env extractor.Env) []extractor.Extractor {
	return []extractor.Extractor{
		extractor.NewVixcloud(env),
		extractor.NewFilemoon(env),
		extractor.NewVidrock(env),
		extractor.NewVOE(env),
		extractor.NewMoviesapi(env),
		extractor.NewVidora(env),
		extractor.NewFsvid(env),
		extractor.NewGupload(env),
		extractor.NewSaveFiles(env),
		extractor.NewStreamUp(env),
		extractor.NewPrimeSrc(env),
		extractor.NewFrembed(env),
		extractor.NewStreamingCommunity(env),
		extractor.NewFrenchStream(env),
	}
}

// Extractors returns the registered extractors in order.
func (r *Registry) Extractors() []extractor.Extractor {
	return append([]extractor.Extractor(nil), r.extractors...)
}

// Tracker returns the tracker shared by rotating providers, or nil.
func (r *Registry) Tracker() *domain.Tracker {
	return r.tracker
}

// Resolve returns the first extractor whose hosts claim link.
func (r *Registry) Resolve(link string) (extractor.Extractor, error) {
	host := extractor.Host(link)
	if host == "" {
		return nil, fmt.Errorf("%w: invalid link %q", errs.ErrNoExtractorFound, link)
	}

	e, ok := lo.Find(r.extractors, func(e extractor.Extractor) bool {
		return e.Identity().Matches(host)
	})
	if !ok {
		return nil, fmt.Errorf("%w for host %s", errs.ErrNoExtractorFound, host)
	}
	return e, nil
}

// Get returns the extractor named name, ignoring case.
func (r *Registry) Get(name string) (extractor.Extractor, error) {
	e, ok := lo.Find(r.extractors, func(e extractor.Extractor) bool {
		return strings.EqualFold(e.Identity().Name, strings.TrimSpace(name))
	})
	if !ok {
		return nil, fmt.Errorf("%w named %q", errs.ErrNoExtractorFound, name)
	}
	return e, nil
}

// Extract resolves link with the extractor that claims it.
func (r *Registry) Extract(ctx context.Context, link string) (*media.Video, error) {
	entry := log.WithFields(log.Fields{"resolution": uuid.NewString(), "link": link})

	e, err := r.Resolve(link)
	if err != nil {
		entry.Debugf("no extractor: %v", err)
		return nil, err
	}

	entry = entry.WithField("extractor", e.Identity().Name)
	entry.Debugf("extracting")

	video, err := e.Extract(ctx, link)
	if err != nil {
		entry.Warnf("extraction failed: %v", err)
		return nil, err
	}

	entry.Infof("resolved %s", video.MimeType)
	return video, nil
}

// Servers lists the candidate servers of the extractor named name.
func (r *Registry) Servers(ctx context.Context, name string, t media.Type) ([]media.Server, error) {
	e, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	lister, ok := e.(extractor.ServerLister)
	if !ok {
		return nil, fmt.Errorf("%s cannot list servers: %w", e.Identity().Name, errs.ErrUnsupported)
	}
	return lister.Servers(ctx, t)
}

// Server returns the preferred server of the extractor named name, or the
// first listed one when it has no preference.
func (r *Registry) Server(ctx context.Context, name string, t media.Type) (media.Server, error) {
	e, err := r.Get(name)
	if err != nil {
		return media.Server{}, err
	}

	if picker, ok := e.(extractor.ServerPicker); ok {
		return picker.Server(ctx, t)
	}

	lister, ok := e.(extractor.ServerLister)
	if !ok {
		return media.Server{}, fmt.Errorf("%s cannot pick a server: %w", e.Identity().Name, errs.ErrUnsupported)
	}

	servers, err := lister.Servers(ctx, t)
	if err != nil {
		return media.Server{}, err
	}
	if len(servers) == 0 {
		return media.Server{}, errs.Extraction(e.Identity().Name, "servers", errs.ErrNoPlayableSource)
	}
	return servers[0], nil
}

// ExtractAny tries servers in order and returns the first that resolves.
// Recoverable failures move on to the next server; anything else, such as
// a cancelled context, stops the walk.
func (r *Registry) ExtractAny(ctx context.Context, servers []media.Server) (*media.Video, media.Server, error) {
	for _, server := range servers {
		if server.Video != nil {
			return server.Video, server, nil
		}

		video, err := r.Extract(ctx, server.Src)
		if err == nil {
			return video, server, nil
		}
		if ctx.Err() != nil {
			return nil, media.Server{}, ctx.Err()
		}
		if !errs.Recoverable(err) {
			return nil, media.Server{}, err
		}
		log.Debugf("provider: server %s failed, trying the next one: %v", server, err)
	}

	return nil, media.Server{}, fmt.Errorf("%w: %d servers tried", errs.ErrNoPlayableSource, len(servers))
}
