package extractor

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/vidsan-cli/vidsan/domain"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/key"
	"github.com/vidsan-cli/vidsan/media"
)

var playerURLsRe = regexp.MustCompile(`(?s)var\s+playerUrls\s*=\s*(\{.*?\});`)

// frenchStreamPriority orders the language variants of a movie source.
var frenchStreamPriority = []string{"Default", "VFF", "VFQ", "VOSTFR"}

// FrenchStream publishes its current domain on a portal page.
type FrenchStream struct {
	env Env
}

func NewFrenchStream(env Env) *FrenchStream {
	return &FrenchStream{env: env}
}

func (f *FrenchStream) Provider() domain.Provider {
	const logo = "favicon-96x96.png"

	def := slash(f.env.setting(key.ProvidersFrenchStreamURL, "https://fs8.lol/"))
	return domain.Provider{
		Name:    "FrenchStream",
		Default: def,
		Logo:    def + logo,
		Discoverer: domain.Directory{
			PortalURL: f.env.setting(key.ProvidersFrenchStreamPortal, "http://fstream.info/"),
			Selector:  "div.current-url-container a[href]",
			LogoPath:  logo,
		},
		Autoupdate: autoupdate(f.env),
	}
}

func (f *FrenchStream) Identity() Identity {
	return rotatingIdentity(f.env, f.Provider())
}

func (f *FrenchStream) Servers(ctx context.Context, t media.Type) ([]media.Server, error) {
	const name = "FrenchStream"

	provider := f.Provider()
	state, client, err := site(ctx, f.env, provider)
	if err != nil {
		return nil, errs.Extraction(name, "domain", err)
	}

	var page string
	switch t := t.(type) {
	case media.Movie:
		page = state.BaseURL + "films/" + url.PathEscape(t.ID)
	case media.Episode:
		page = state.BaseURL + "s-tv/" + url.PathEscape(t.TvShowID)
	default:
		return nil, errs.Extraction(name, "page", fmt.Errorf("unsupported type %T", t))
	}

	doc, err := client.GetDocument(ctx, page)
	if err != nil {
		stale(f.env, state, provider.Name, err)
		return nil, errs.Extraction(name, "page", err)
	}

	if episode, ok := t.(media.Episode); ok {
		return f.episodeServers(doc, episode)
	}
	return movieServers(doc)
}

func movieServers(doc *goquery.Document) ([]media.Server, error) {
	const name = "FrenchStream"

	raw, err := MatchGroup(name, playerURLsRe, Scripts(doc), "playerUrls")
	if err != nil {
		return nil, err
	}

	sources, values, err := orderedObject([]byte(raw))
	if err != nil {
		return nil, errs.Extraction(name, "playerUrls", err)
	}

	var servers []media.Server
	for _, source := range sources {
		langs, hrefs, err := orderedObject(values[source])
		if err != nil {
			continue
		}

		links := make(map[string]string, len(langs))
		for _, lang := range langs {
			var href string
			if json.Unmarshal(hrefs[lang], &href) == nil && strings.TrimSpace(href) != "" {
				links[lang] = href
			}
		}

		defaultHref, hasDefault := links["Default"]
		if hasDefault {
			for lang, href := range links {
				if lang != "Default" && href == defaultHref {
					delete(links, "Default")
					break
				}
			}
		}

		ordered := make([]string, 0, len(links))
		for lang, href := range links {
			if !ignoreSource(source, href) {
				ordered = append(ordered, lang)
			}
		}
		slices.SortFunc(ordered, func(a, b string) int {
			return cmp.Or(cmp.Compare(priority(a), priority(b)), cmp.Compare(a, b))
		})

		for _, lang := range ordered {
			server := media.Server{ID: "SRV" + source + lang, Name: source + " (" + lang + ")", Src: links[lang]}
			if lang == "Default" {
				server.Name = source
			}
			servers = append(servers, server)
		}
	}
	return servers, nil
}

func (f *FrenchStream) episodeServers(doc *goquery.Document, episode media.Episode) ([]media.Server, error) {
	const name = "FrenchStream"

	if episode.Number < 1 {
		return nil, errs.Extraction(name, "episode", fmt.Errorf("invalid episode number %d", episode.Number))
	}

	lang := f.env.setting(key.ProvidersFrenchStreamLanguage, "VF")
	selector := "div.fullsfeature > div.selink:has(span:contains(" + strconv.Quote(lang) + "))"

	block := doc.Find(selector).Eq(episode.Number - 1)
	if block.Length() == 0 {
		return nil, errs.Extraction(name, "episode", fmt.Errorf("no %s block for episode %d", lang, episode.Number))
	}

	var servers []media.Server
	block.Find("li > a").Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		href, _ := a.Attr("href")
		if text == "" || ignoreSource(text, href) {
			return
		}
		servers = append(servers, media.Server{
			ID:   strconv.Itoa(len(servers)),
			Name: text,
			Src:  absolute(doc.Url, strings.TrimSpace(href)),
		})
	})
	return servers, nil
}

func (f *FrenchStream) Server(ctx context.Context, t media.Type) (media.Server, error) {
	servers, err := f.Servers(ctx, t)
	if err != nil {
		return media.Server{}, err
	}
	if len(servers) == 0 {
		return media.Server{}, errs.Extraction("FrenchStream", "servers", errors.New("no servers listed"))
	}
	return servers[0], nil
}

func (f *FrenchStream) Extract(ctx context.Context, link string) (*media.Video, error) {
	const name = "FrenchStream"

	if strings.Contains(strings.ToLower(link), "newplayer") {
		resp, err := f.env.Client.Get(ctx, link)
		if err != nil {
			return nil, errs.Extraction(name, "player redirect", err)
		}
		link = resp.FinalURL
	}

	if f.env.Delegate == nil {
		return nil, errs.Extraction(name, "delegate", errors.New("no registry to hand the link to"))
	}
	return f.env.Delegate.Extract(ctx, link)
}

// ignoreSource drops hosts that never play.
func ignoreSource(source, href string) bool {
	source = strings.TrimSpace(source)
	if strings.EqualFold(source, "VIDZY") || strings.EqualFold(source, "Netu") {
		return true
	}
	return source == "Dood.Stream" && strings.Contains(href, "/bigwar5/")
}

func priority(lang string) int {
	if i := slices.Index(frenchStreamPriority, lang); i >= 0 {
		return i
	}
	return len(frenchStreamPriority)
}
