package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/log"
	"github.com/vidsan-cli/vidsan/manifest"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/network"
)

// Vixcloud serves the player behind StreamingCommunity. Its master playlist
// carries every audio rendition; the preferred one is kept and the
// rewritten playlist is inlined as a data URI.
type Vixcloud struct {
	env  Env
	base string
}

func NewVixcloud(env Env) *Vixcloud {
	return &Vixcloud{env: env, base: "https://vixcloud.co"}
}

func (v *Vixcloud) Identity() Identity {
	return Identity{Name: "Vixcloud", MainURL: "https://vixcloud.co/"}
}

type vixcloudVideo struct {
	ID       json.Number `json:"id"`
	Filename string      `json:"filename"`
}

type vixcloudParams struct {
	Token   string `json:"token"`
	Expires string `json:"expires"`
}

func (v *Vixcloud) Extract(ctx context.Context, link string) (*media.Video, error) {
	const name = "Vixcloud"

	lang := v.env.language()
	if u, err := url.Parse(link); err == nil {
		if l := u.Query().Get("language"); l != "" {
			lang = l
		}
	}

	headers := media.NewHeaders(
		"Referer", v.base+"/",
		"User-Agent", constant.UserAgent,
		"Accept-Language", acceptLanguage(lang),
		"Cookie", "language="+lang,
	)

	doc, err := v.env.Client.GetDocument(ctx, link, network.WithHeaders(headers))
	if err != nil {
		return nil, errs.Extraction(name, "embed page", err)
	}

	script, err := FindScript(name, doc, "window.video")
	if err != nil {
		return nil, err
	}

	var video vixcloudVideo
	if err := decodeLiteral(between(script, "window.video = ", ";"), &video); err != nil || video.ID == "" {
		return nil, errs.Extraction(name, "window.video", errors.Join(errors.New("no video id"), err))
	}

	var params vixcloudParams
	raw := between(after(script, "window.masterPlaylist"), "params: {", "},")
	if raw != "" {
		if err := decodeLiteral("{"+raw+"}", &params); err != nil {
			return nil, errs.Extraction(name, "master playlist params", err)
		}
	}

	query := url.Values{}
	if params.Token != "" {
		query.Set("token", params.Token)
	}
	if params.Expires != "" {
		query.Set("expires", params.Expires)
	}
	if strings.Contains(between(after(script, "window.masterPlaylist"), "url:", ","), "b=1") {
		query.Set("b", "1")
	}
	if strings.Contains(link, "canPlayFHD") {
		query.Set("h", "1")
	}
	query.Set("language", lang)

	playlist := v.base + "/playlist/" + video.ID.String() + "?" + query.Encode()
	source := playlist

	resp, err := v.env.Client.Get(ctx, playlist, network.WithHeaders(headers))
	if err != nil {
		log.Warnf("vixcloud: playlist %s unavailable, returning it unpatched: %v", playlist, err)
	} else if base, perr := url.Parse(resp.FinalURL); perr == nil {
		if rewritten, found := manifest.Rewrite(resp.String(), base, lang); found {
			source = manifest.DataURI(rewritten)
		} else {
			log.Infof("vixcloud: no %s audio rendition in %s", lang, playlist)
		}
	}

	return newVideo(name, source, media.WithHeaders(headers), media.WithMime(media.HLS))
}

// literalTimeout bounds the evaluation of a page literal.
const literalTimeout = 250 * time.Millisecond

// literalJSON evaluates a JavaScript object literal in a fresh VM and
// returns it serialized as JSON. The VM has no I/O and is interrupted after
// literalTimeout.
func literalJSON(literal string) ([]byte, error) {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return nil, errors.New("empty literal")
	}

	vm := goja.New()
	timer := time.AfterFunc(literalTimeout, func() { vm.Interrupt("timeout") })
	defer timer.Stop()

	v, err := vm.RunString("JSON.stringify((" + literal + "))")
	if err != nil {
		return nil, err
	}
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, errors.New("literal has no JSON form")
	}
	return []byte(v.String()), nil
}

// decodeLiteral unmarshals a JavaScript object literal into v.
func decodeLiteral(literal string, v any) error {
	data, err := literalJSON(literal)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// after returns the part of s after the first sep, or "" if sep is absent.
func after(s, sep string) string {
	_, rest, found := strings.Cut(s, sep)
	if !found {
		return ""
	}
	return rest
}

// between returns the part of s after start and before the next end.
func between(s, start, end string) string {
	rest := after(s, start)
	if i := strings.Index(rest, end); i >= 0 {
		return strings.TrimSpace(rest[:i])
	}
	return ""
}
