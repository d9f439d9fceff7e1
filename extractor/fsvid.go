package extractor

import (
	"context"

	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/network"
)

type Fsvid struct {
	env Env
}

func NewFsvid(env Env) *Fsvid {
	return &Fsvid{env: env}
}

func (f *Fsvid) Identity() Identity {
	return Identity{Name: "FSVid", MainURL: "https://fsvid.lol"}
}

func (f *Fsvid) Extract(ctx context.Context, link string) (*media.Video, error) {
	const name = "FSVid"

	html, err := f.env.Client.GetString(ctx, link, network.WithHeader("User-Agent", constant.UserAgent))
	if err != nil {
		return nil, errs.Extraction(name, "page", err)
	}

	unpacked, err := PackedFragment(name, html)
	if err != nil {
		return nil, err
	}

	source, err := FileSource(name, unpacked)
	if err != nil {
		return nil, err
	}
	return newVideo(name, source)
}
