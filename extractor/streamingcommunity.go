package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/domain"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/key"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/network"
)

const streamingCommunityLogo = "apple-touch-icon.png"

// StreamingCommunity lists the Vixcloud player for a title. The site moves
// between domains; the current one is found by following redirects from the
// last known address.
type StreamingCommunity struct {
	env Env
}

func NewStreamingCommunity(env Env) *StreamingCommunity {
	return &StreamingCommunity{env: env}
}

func (s *StreamingCommunity) Provider() domain.Provider {
	def := slash(s.env.setting(key.ProvidersStreamingCommunityURL, "https://streamingunity.tv/"))
	return domain.Provider{
		Name:    "StreamingCommunity",
		Default: def,
		Logo:    def + streamingCommunityLogo,
		Discoverer: domain.Redirect{
			Fallback:    def,
			VersionPath: s.lang() + "/",
			LogoPath:    streamingCommunityLogo,
		},
		Autoupdate: autoupdate(s.env),
	}
}

func (s *StreamingCommunity) Identity() Identity {
	return rotatingIdentity(s.env, s.Provider())
}

// lang is the site section: only English and Italian exist.
func (s *StreamingCommunity) lang() string {
	if s.env.setting(key.ProvidersStreamingCommunityLocale, s.env.language()) == "en" {
		return "en"
	}
	return "it"
}

func (s *StreamingCommunity) Servers(ctx context.Context, t media.Type) ([]media.Server, error) {
	const name = "StreamingCommunity"

	provider := s.Provider()
	state, client, err := site(ctx, s.env, provider)
	if err != nil {
		return nil, errs.Extraction(name, "domain", err)
	}

	lang := s.lang()
	iframe := state.BaseURL + lang + "/iframe/"

	var id string
	switch t := t.(type) {
	case media.Movie:
		id = t.ID
		iframe += beforeDash(t.ID) + "?" + url.Values{"language": {lang}}.Encode()
	case media.Episode:
		if t.EpisodeID == "" {
			return nil, errs.Extraction(name, "iframe", errors.New("episode has no site episode id"))
		}
		id = t.String()
		iframe += beforeDash(t.TvShowID) + "?episode_id=" + url.QueryEscape(t.EpisodeID) + "&next_episode=1&language=" + lang
	default:
		return nil, errs.Extraction(name, "iframe", fmt.Errorf("unsupported type %T", t))
	}

	opts := []network.RequestOption{
		network.WithReferer(state.BaseURL),
		network.WithHeader("User-Agent", constant.UserAgent),
		network.WithHeader("Accept-Language", acceptLanguage(lang)),
		network.WithHeader("Cookie", "language="+lang),
	}
	if state.Version != "" {
		opts = append(opts, network.WithHeader("x-inertia-version", state.Version))
	}

	doc, err := client.GetDocument(ctx, iframe, opts...)
	if err != nil {
		stale(s.env, state, provider.Name, err)
		return nil, errs.Extraction(name, "iframe page", err)
	}

	src, err := FirstIframe(name, doc)
	if err != nil {
		return nil, err
	}

	return []media.Server{{ID: id, Name: "Vixcloud", Src: withLanguage(src, lang)}}, nil
}

func (s *StreamingCommunity) Server(ctx context.Context, t media.Type) (media.Server, error) {
	servers, err := s.Servers(ctx, t)
	if err != nil {
		return media.Server{}, err
	}
	return servers[0], nil
}

func (s *StreamingCommunity) Extract(ctx context.Context, link string) (*media.Video, error) {
	if s.env.Delegate == nil {
		return NewVixcloud(s.env).Extract(ctx, withLanguage(link, s.lang()))
	}
	return s.env.Delegate.Extract(ctx, withLanguage(link, s.lang()))
}

func beforeDash(id string) string {
	before, _, _ := strings.Cut(id, "-")
	return before
}

// withLanguage adds a language hint to link unless it already has one.
func withLanguage(link, lang string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	q := u.Query()
	if q.Get("language") != "" {
		return link
	}
	q.Set("language", lang)
	u.RawQuery = q.Encode()
	return u.String()
}
