package extractor

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
)

type SaveFiles struct {
	env Env
}

func NewSaveFiles(env Env) *SaveFiles {
	return &SaveFiles{env: env}
}

func (s *SaveFiles) Identity() Identity {
	return Identity{
		Name:      "Savefiles",
		MainURL:   "https://savefiles.com/",
		AliasURLs: []string{"https://streamhls.to"},
	}
}

func (s *SaveFiles) Extract(ctx context.Context, link string) (*media.Video, error) {
	const name = "Savefiles"

	u, err := url.Parse(link)
	if err != nil {
		return nil, errs.Extraction(name, "file code", err)
	}
	code := strings.TrimSpace(path.Base(strings.TrimRight(u.Path, "/")))
	if code == "" || code == "." || code == "/" {
		return nil, errs.Extraction(name, "file code", errors.New("no file code in link"))
	}

	query := url.Values{
		"op":        {"embed"},
		"file_code": {code},
		"auto":      {"0"},
		"referer":   {""},
	}
	doc, err := s.env.Client.GetDocument(ctx, u.Scheme+"://"+u.Host+"/dl?"+query.Encode())
	if err != nil {
		return nil, errs.Extraction(name, "embed page", err)
	}

	var source string
	doc.Find(`script[type="text/javascript"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if !strings.Contains(text, "jwplayer") || !strings.Contains(text, "sources") || !strings.Contains(text, "file") {
			return true
		}
		if m := fileRe.FindStringSubmatch(text); m != nil {
			source = m[1]
			return false
		}
		return true
	})
	if source == "" {
		return nil, errs.Extraction(name, "jwplayer script", errors.New("no file in any player script"))
	}

	return newVideo(name, source)
}
