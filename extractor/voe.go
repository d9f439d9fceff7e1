package extractor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
)

var (
	voeRedirectRe = regexp.MustCompile(`window\.location\.href\s*=\s*['"](https?://[^'"]+)['"]`)
	voeAnyURLRe   = regexp.MustCompile(`https://([a-zA-Z0-9.-]+)(?:/[^'"]*)?`)
	voeHLSRe      = regexp.MustCompile(`['"]hls['"]\s*:\s*['"]([^'"]+)['"]`)
	voeMarkers    = []string{"@$", "^^", "~@", "%?", "*~", "!!", "#&"}
)

// VOE lands on a redirect page first and then serves its source in an
// obfuscated JSON blob.
type VOE struct {
	env Env
}

func NewVOE(env Env) *VOE {
	return &VOE{env: env}
}

func (v *VOE) Identity() Identity {
	return Identity{
		Name:    "VOE",
		MainURL: "https://voe.sx/",
		AliasURLs: []string{
			"https://jilliandescribecompany.com",
			"https://mikaylaarealike.com",
			"https://christopheruntilpoint.com",
			"https://walterprettytheir.com",
			"https://crystaltreatmenteast.com",
		},
	}
}

func (v *VOE) Extract(ctx context.Context, link string) (*media.Video, error) {
	const name = "VOE"

	resp, err := v.env.Client.Get(ctx, link)
	if err != nil {
		return nil, errs.Extraction(name, "landing page", err)
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, errs.Extraction(name, "landing page", err)
	}

	if doc.Find(`script[type="application/json"]`).Length() == 0 {
		target, err := v.redirectTarget(resp.String(), link)
		if err != nil {
			return nil, err
		}
		if doc, err = v.env.Client.GetDocument(ctx, target); err != nil {
			return nil, errs.Extraction(name, "player page", err)
		}
	}

	source, err := voeSource(doc)
	if err != nil {
		return nil, err
	}
	return newVideo(name, source)
}

// redirectTarget keeps the path of link and swaps in the host the landing
// page redirects to.
func (v *VOE) redirectTarget(html, link string) (string, error) {
	const name = "VOE"

	raw := ""
	if m := voeRedirectRe.FindStringSubmatch(html); m != nil {
		raw = m[1]
	} else if m := voeAnyURLRe.FindString(html); m != "" {
		raw = m
	}
	if raw == "" {
		return "", errs.Extraction(name, "redirect", errors.New("no redirect host"))
	}

	redirect, err := url.Parse(raw)
	if err != nil {
		return "", errs.Extraction(name, "redirect", err)
	}
	original, err := url.Parse(link)
	if err != nil {
		return "", errs.Extraction(name, "redirect", err)
	}

	original.Scheme = redirect.Scheme
	original.Host = redirect.Host
	return original.String(), nil
}

func voeSource(doc *goquery.Document) (string, error) {
	const name = "VOE"

	blob := strings.TrimSpace(doc.Find(`script[type="application/json"]`).First().Text())
	if blob != "" {
		var wrapped []string
		if json.Unmarshal([]byte(blob), &wrapped) == nil && len(wrapped) > 0 {
			blob = wrapped[0]
		}
		if source, err := voeDecode(blob); err == nil {
			return source, nil
		}
	}

	html, _ := doc.Html()
	hls, err := MatchGroup(name, voeHLSRe, html, "hls fallback")
	if err != nil {
		return "", err
	}
	if decoded, err := base64.StdEncoding.DecodeString(hls); err == nil && strings.HasPrefix(string(decoded), "http") {
		return string(decoded), nil
	}
	return hls, nil
}

// voeDecode reverses the player's obfuscation: rot13, marker removal,
// base64, a character shift of -3, reversal and a final base64.
func voeDecode(encoded string) (string, error) {
	const name = "VOE"

	s := rot13(encoded)
	for _, marker := range voeMarkers {
		s = strings.ReplaceAll(s, marker, "")
	}

	step, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", errs.Extraction(name, "decode base64", err)
	}

	shifted := lo.Map([]rune(string(step)), func(r rune, _ int) rune { return r - 3 })
	slices.Reverse(shifted)

	plain, err := base64.StdEncoding.DecodeString(string(shifted))
	if err != nil {
		return "", errs.Extraction(name, "decode base64", err)
	}

	var payload struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(plain, &payload); err != nil {
		return "", errs.Extraction(name, "decoded json", err)
	}
	if payload.Source == "" {
		return "", errs.Extraction(name, "decoded json", errors.New("no source"))
	}
	return payload.Source, nil
}

func rot13(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return 'a' + (r-'a'+13)%26
		case r >= 'A' && r <= 'Z':
			return 'A' + (r-'A'+13)%26
		}
		return r
	}, s)
}
