package extractor

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
)

type StreamUp struct {
	env  Env
	base string
}

func NewStreamUp(env Env) *StreamUp {
	return &StreamUp{env: env, base: "https://strmup.to"}
}

func (s *StreamUp) Identity() Identity {
	return Identity{Name: "StreamUp", MainURL: "https://strmup.to"}
}

func (s *StreamUp) Extract(ctx context.Context, link string) (*media.Video, error) {
	const name = "StreamUp"

	u, err := url.Parse(link)
	if err != nil {
		return nil, errs.Extraction(name, "file code", err)
	}
	code := strings.Trim(u.Path, "/")
	if code == "" {
		return nil, errs.Extraction(name, "file code", errors.New("no file code in link"))
	}

	var stream struct {
		StreamingURL string `json:"streaming_url"`
	}
	if err := s.env.Client.GetJSON(ctx, s.base+"/ajax/stream?filecode="+url.QueryEscape(code), &stream); err != nil {
		return nil, errs.Extraction(name, "stream api", err)
	}
	if stream.StreamingURL == "" {
		return nil, errs.Extraction(name, "stream api", errors.New("streaming_url missing"))
	}

	return newVideo(name, stream.StreamingURL)
}
