package extractor

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/packer"
)

var (
	// fileRe matches a jwplayer style `file: "..."` source.
	fileRe = regexp.MustCompile(`file\s*:\s*["']([^"']+)["']`)
	// originRe captures scheme and host of a URL.
	originRe = regexp.MustCompile(`^(https?://[^/?#]+)`)
)

// FindScript returns the text of the first script containing every marker.
func FindScript(name string, doc *goquery.Document, markers ...string) (string, error) {
	var found string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if lo.EveryBy(markers, func(m string) bool { return strings.Contains(text, m) }) {
			found = text
			return false
		}
		return true
	})

	if found == "" {
		return "", errs.Extraction(name, "script scrape", fmt.Errorf("no script contains %q", markers))
	}
	return found, nil
}

// Scripts concatenates the text of every script on the page.
func Scripts(doc *goquery.Document) string {
	return strings.Join(doc.Find("script").Map(func(_ int, s *goquery.Selection) string {
		return s.Text()
	}), "\n")
}

// MatchGroup returns the first capture group of re in text.
func MatchGroup(name string, re *regexp.Regexp, text, step string) (string, error) {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
		return "", errs.Extraction(name, step, fmt.Errorf("pattern %s did not match", re))
	}
	return strings.TrimSpace(m[1]), nil
}

// FirstIframe returns the absolute src of the first iframe on the page.
func FirstIframe(name string, doc *goquery.Document) (string, error) {
	src, ok := doc.Find("iframe[src]").First().Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return "", errs.Extraction(name, "iframe", errors.New("no iframe with a src"))
	}
	return absolute(doc.Url, src), nil
}

// PackedFragment unpacks every packed script in html and joins the results.
func PackedFragment(name, html string) (string, error) {
	blocks, err := packer.UnpackAll(html)
	if err != nil {
		return "", errs.Extraction(name, "unpack", err)
	}
	return strings.Join(blocks, "\n"), nil
}

// FileSource returns the `file:` value of a jwplayer setup.
func FileSource(name, text string) (string, error) {
	return MatchGroup(name, fileRe, text, "file field")
}

// Origin returns scheme://host of rawURL.
func Origin(name, rawURL string) (string, error) {
	return MatchGroup(name, originRe, strings.TrimSpace(rawURL), "origin")
}

func absolute(base *url.URL, ref string) string {
	if strings.HasPrefix(ref, "//") {
		scheme := "https"
		if base != nil && base.Scheme != "" {
			scheme = base.Scheme
		}
		return scheme + ":" + ref
	}
	if base == nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}
