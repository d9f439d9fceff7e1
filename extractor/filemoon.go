package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"

	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/crypt"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/network"
)

var filemoonIDRe = regexp.MustCompile(`/(e|d)/([a-zA-Z0-9]+)`)

// Filemoon resolves /e/ (embed) and /d/ (download) links. The playback API
// answers with an AES-GCM envelope whose key is split in two parts.
type Filemoon struct {
	env Env
}

func NewFilemoon(env Env) *Filemoon {
	return &Filemoon{env: env}
}

func (f *Filemoon) Identity() Identity {
	return Identity{
		Name:      "Filemoon",
		MainURL:   "https://filemoon.site",
		AliasURLs: []string{"https://bf0skv.org", "https://bysejikuar.com"},
	}
}

func (f *Filemoon) Extract(ctx context.Context, link string) (*media.Video, error) {
	const name = "Filemoon"

	m := filemoonIDRe.FindStringSubmatch(link)
	if m == nil {
		return nil, errs.Extraction(name, "video id", errors.New("link has no /e/ or /d/ id"))
	}
	kind, id := m[1], m[2]

	origin, err := Origin(name, link)
	if err != nil {
		return nil, err
	}

	var details struct {
		EmbedFrameURL string `json:"embed_frame_url"`
	}
	if err := f.env.Client.GetJSON(ctx, origin+"/api/videos/"+id+"/embed/details", &details); err != nil {
		return nil, errs.Extraction(name, "details", err)
	}
	if details.EmbedFrameURL == "" {
		return nil, errs.Extraction(name, "details", errors.New("embed_frame_url missing"))
	}

	playbackDomain := origin
	opts := []network.RequestOption{
		network.WithHeader("User-Agent", constant.UserAgent),
		network.WithHeader("Accept", "application/json"),
	}
	if kind == "d" {
		opts = append(opts, network.WithReferer(link))
	} else {
		if playbackDomain, err = Origin(name, details.EmbedFrameURL); err != nil {
			return nil, err
		}
		opts = append(opts,
			network.WithReferer(details.EmbedFrameURL),
			network.WithHeader("X-Embed-Parent", link),
		)
	}

	var playback struct {
		Playback *crypt.Envelope `json:"playback"`
	}
	if err := f.env.Client.GetJSON(ctx, playbackDomain+"/api/videos/"+id+"/embed/playback", &playback, opts...); err != nil {
		return nil, errs.Extraction(name, "playback", err)
	}
	if playback.Playback == nil {
		return nil, errs.Extraction(name, "playback", errors.New("no playback data"))
	}

	km, err := playback.Playback.KeyMaterial()
	if err != nil {
		return nil, errs.Extraction(name, "playback envelope", err)
	}
	plain, err := crypt.Decrypt(km, crypt.GCM)
	if err != nil {
		return nil, errs.Extraction(name, "decrypt", err)
	}

	var decrypted struct {
		Sources []struct {
			URL string `json:"url"`
		} `json:"sources"`
	}
	if err := json.Unmarshal(plain, &decrypted); err != nil {
		return nil, errs.Extraction(name, "decrypted json", err)
	}
	if len(decrypted.Sources) == 0 {
		return nil, errs.Extraction(name, "sources", errors.New("empty sources list"))
	}

	return newVideo(name, decrypted.Sources[0].URL, media.WithHeaders(media.NewHeaders(
		"Referer", playbackDomain+"/",
		"User-Agent", constant.UserAgent,
		"Origin", playbackDomain,
	)))
}
