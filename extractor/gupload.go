package extractor

import (
	"context"
	"regexp"

	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
)

var guploadVideoURLRe = regexp.MustCompile(`const\s+videoUrl\s*=\s*['"]([^'"]+)['"]`)

type Gupload struct {
	env Env
}

func NewGupload(env Env) *Gupload {
	return &Gupload{env: env}
}

func (g *Gupload) Identity() Identity {
	return Identity{Name: "Gupload", MainURL: "https://gupload.xyz"}
}

func (g *Gupload) Extract(ctx context.Context, link string) (*media.Video, error) {
	const name = "Gupload"

	html, err := g.env.Client.GetString(ctx, link)
	if err != nil {
		return nil, errs.Extraction(name, "page", err)
	}

	source, err := MatchGroup(name, guploadVideoURLRe, html, "videoUrl")
	if err != nil {
		return nil, err
	}
	return newVideo(name, source)
}
