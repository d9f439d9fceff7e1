package extractor

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/network"
	"github.com/vidsan-cli/vidsan/util"
)

// frembedSlots is the number of link fields per language.
const frembedSlots = 7

var frembedLanguages = []struct {
	suffix string
	label  string
}{
	{"", "French"},
	{"vostfr", "VOSTFR"},
	{"vo", "VO"},
}

// frembedAliases maps obfuscated hosts to the name users know them by.
var frembedAliases = map[string]string{
	"crystaltreatmenteast": "voe",
	"myvidplay":            "dood",
}

// Frembed only enumerates. Each listed server lives on another host.
type Frembed struct {
	env  Env
	base string
}

func NewFrembed(env Env) *Frembed {
	return &Frembed{env: env, base: "https://frembed.life"}
}

func (f *Frembed) Identity() Identity {
	return Identity{Name: "Frembed", MainURL: "https://frembed.life"}
}

func (f *Frembed) Servers(ctx context.Context, t media.Type) ([]media.Server, error) {
	const name = "Frembed"

	var endpoint string
	switch t := t.(type) {
	case media.Movie:
		endpoint = f.base + "/api/films?" + url.Values{"id": {t.ID}, "idType": {"tmdb"}}.Encode()
	case media.Episode:
		endpoint = f.base + "/api/series?" + url.Values{
			"id":     {t.TvShowID},
			"sa":     {strconv.Itoa(t.Season)},
			"epi":    {strconv.Itoa(t.Number)},
			"idType": {"tmdb"},
		}.Encode()
	default:
		return nil, errs.Extraction(name, "servers", fmt.Errorf("unsupported type %T", t))
	}

	var links map[string]any
	err := f.env.Client.GetJSON(ctx, endpoint, &links,
		network.WithReferer(f.base),
		network.WithHeader("User-Agent", constant.UserAgent),
		network.WithHeader("Content-Type", "application/json"),
	)
	if err != nil {
		return nil, errs.Extraction(name, "servers", err)
	}

	return frembedServers(links), nil
}

func frembedServers(links map[string]any) []media.Server {
	var (
		servers []media.Server
		index   int
	)
	for _, lang := range frembedLanguages {
		for slot := 1; slot <= frembedSlots; slot, index = slot+1, index+1 {
			raw, _ := links["link"+strconv.Itoa(slot)+lang.suffix].(string)
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			servers = append(servers, media.Server{
				ID:   "link" + strconv.Itoa(index),
				Name: frembedName(raw) + " (" + lang.label + ")",
				Src:  raw,
			})
		}
	}
	return servers
}

// frembedName turns "https://www.host.tld/..." into "Host".
func frembedName(link string) string {
	label := Host(link)
	if label == "" {
		label = normalizeHost(link)
	}
	label, _, _ = strings.Cut(label, ".")
	if alias, ok := frembedAliases[label]; ok {
		label = alias
	}
	return util.Capitalize(label)
}

func (f *Frembed) Extract(context.Context, string) (*media.Video, error) {
	return nil, errs.Extraction("Frembed", "extract", errs.ErrUnsupported)
}
