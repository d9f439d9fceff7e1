package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/log"
	"github.com/vidsan-cli/vidsan/media"
)

// PrimeSrc lists mirrors hosted elsewhere and hands each one back to the
// registry.
type PrimeSrc struct {
	env  Env
	base string
}

func NewPrimeSrc(env Env) *PrimeSrc {
	return &PrimeSrc{env: env, base: "https://primesrc.me"}
}

func (p *PrimeSrc) Identity() Identity {
	return Identity{Name: "PrimeSrc", MainURL: "https://primesrc.me"}
}

type primeSrcServer struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

func (p *PrimeSrc) Servers(ctx context.Context, t media.Type) ([]media.Server, error) {
	const name = "PrimeSrc"

	query := url.Values{}
	switch t := t.(type) {
	case media.Movie:
		query.Set("tmdb", t.ID)
		query.Set("type", "movie")
	case media.Episode:
		query.Set("tmdb", t.TvShowID)
		query.Set("season", strconv.Itoa(t.Season))
		query.Set("episode", strconv.Itoa(t.Number))
		query.Set("type", "tv")
	default:
		return nil, errs.Extraction(name, "servers", fmt.Errorf("unsupported type %T", t))
	}

	var list struct {
		Servers []primeSrcServer `json:"servers"`
	}
	if err := p.env.Client.GetJSON(ctx, p.base+"/api/v1/s?"+query.Encode(), &list); err != nil {
		log.Warnf("primesrc: no servers for %s: %v", t, err)
		return nil, nil
	}

	return p.number(list.Servers), nil
}

// number suffixes names that occur more than once with " 1", " 2", ...
// in order of appearance.
func (p *PrimeSrc) number(list []primeSrcServer) []media.Server {
	total := make(map[string]int, len(list))
	for _, s := range list {
		total[s.Name]++
	}

	seen := make(map[string]int, len(list))
	servers := make([]media.Server, 0, len(list))
	for _, s := range list {
		if s.Name == "" || s.Key == "" {
			continue
		}
		seen[s.Name]++
		suffix := ""
		if total[s.Name] > 1 {
			suffix = " " + strconv.Itoa(seen[s.Name])
		}
		servers = append(servers, media.Server{
			ID:   s.Name + "-" + s.Key + " (PrimeSrc)",
			Name: s.Name + suffix + " (PrimeSrc)",
			Src:  p.base + "/api/v1/l?key=" + url.QueryEscape(s.Key),
		})
	}
	return servers
}

func (p *PrimeSrc) Server(ctx context.Context, t media.Type) (media.Server, error) {
	servers, err := p.Servers(ctx, t)
	if err != nil {
		return media.Server{}, err
	}
	if len(servers) == 0 {
		return media.Server{}, errs.Extraction("PrimeSrc", "servers", errors.New("no servers listed"))
	}
	return servers[0], nil
}

func (p *PrimeSrc) Extract(ctx context.Context, link string) (*media.Video, error) {
	const name = "PrimeSrc"

	var target struct {
		Link string `json:"link"`
	}
	if err := p.env.Client.GetJSON(ctx, link, &target); err != nil {
		return nil, errs.Extraction(name, "link", err)
	}
	if target.Link == "" {
		return nil, errs.Extraction(name, "link", errors.New("empty link"))
	}
	if p.env.Delegate == nil {
		return nil, errs.Extraction(name, "delegate", errors.New("no registry to hand the link to"))
	}
	return p.env.Delegate.Extract(ctx, target.Link)
}
