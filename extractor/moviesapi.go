package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/network"
)

// Moviesapi wraps another host's player in an iframe.
type Moviesapi struct {
	env  Env
	base string
}

func NewMoviesapi(env Env) *Moviesapi {
	return &Moviesapi{env: env, base: "https://moviesapi.club"}
}

func (m *Moviesapi) Identity() Identity {
	return Identity{Name: "Moviesapi", MainURL: "https://moviesapi.club/"}
}

func (m *Moviesapi) Server(_ context.Context, t media.Type) (media.Server, error) {
	var src string
	switch t := t.(type) {
	case media.Movie:
		src = m.base + "/movie/" + t.ID
	case media.Episode:
		src = fmt.Sprintf("%s/tv/%s-%d-%d", m.base, t.TvShowID, t.Season, t.Number)
	default:
		return media.Server{}, errs.Extraction("Moviesapi", "server", fmt.Errorf("unsupported type %T", t))
	}
	return media.Server{ID: "Moviesapi", Name: "Moviesapi", Src: src}, nil
}

func (m *Moviesapi) Servers(ctx context.Context, t media.Type) ([]media.Server, error) {
	server, err := m.Server(ctx, t)
	if err != nil {
		return nil, err
	}
	return []media.Server{server}, nil
}

func (m *Moviesapi) Extract(ctx context.Context, link string) (*media.Video, error) {
	const name = "Moviesapi"

	doc, err := m.env.Client.GetDocument(ctx, link, network.WithReferer("https://pressplay.top/"))
	if err != nil {
		return nil, errs.Extraction(name, "page", err)
	}

	iframe, err := FirstIframe(name, doc)
	if err != nil {
		return nil, err
	}

	if m.env.Delegate == nil {
		return nil, errs.Extraction(name, "delegate", errors.New("no registry to hand the iframe to"))
	}
	return m.env.Delegate.Extract(ctx, iframe)
}
