package extractor

import (
	"context"

	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/network"
	"github.com/vidsan-cli/vidsan/packer"
)

// Vidora hides its jwplayer setup in a packed script.
type Vidora struct {
	env Env
}

func NewVidora(env Env) *Vidora {
	return &Vidora{env: env}
}

func (v *Vidora) Identity() Identity {
	return Identity{Name: "Vidora", MainURL: "https://vidora.stream"}
}

func (v *Vidora) Extract(ctx context.Context, link string) (*media.Video, error) {
	const name = "Vidora"

	mainURL := v.Identity().MainURL
	html, err := v.env.Client.GetString(ctx, link,
		network.WithReferer(mainURL),
		network.WithHeader("User-Agent", constant.UserAgent),
	)
	if err != nil {
		return nil, errs.Extraction(name, "page", err)
	}

	// Some mirrors serve the setup unpacked.
	text := html
	if packer.Detect(html) {
		if text, err = PackedFragment(name, html); err != nil {
			return nil, err
		}
	}

	source, err := FileSource(name, text)
	if err != nil {
		return nil, err
	}

	return newVideo(name, source, media.WithHeaders(media.NewHeaders(
		"Referer", mainURL,
		"User-Agent", constant.UserAgent,
	)))
}
