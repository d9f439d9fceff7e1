package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/vidsan-cli/vidsan/crypt"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/key"
	"github.com/vidsan-cli/vidsan/log"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/network"
)

// Vidrock addresses content by an AES-CBC sealed id. Its API lists named
// servers, either as plain JSON or wrapped in an AES-GCM envelope.
type Vidrock struct {
	env  Env
	base string
}

func NewVidrock(env Env) *Vidrock {
	return &Vidrock{env: env, base: "https://vidrock.net"}
}

func (v *Vidrock) Identity() Identity {
	return Identity{Name: "Vidrock", MainURL: "https://vidrock.net"}
}

type atlasQuality struct {
	Resolution int    `json:"resolution"`
	URL        string `json:"url"`
}

type vidrockStream struct {
	name string
	url  string
}

func (v *Vidrock) apiURL(t media.Type) (string, error) {
	passphrase := v.env.setting(key.SecretsVidrockPassphrase, "")
	if passphrase == "" {
		return "", errs.Extraction("Vidrock", "token", errors.New("no passphrase configured"))
	}

	var id, kind string
	switch t := t.(type) {
	case media.Movie:
		id, kind = t.ID, "movie"
	case media.Episode:
		id, kind = fmt.Sprintf("%s_%d_%d", t.TvShowID, t.Season, t.Number), "tv"
	default:
		return "", errs.Extraction("Vidrock", "token", fmt.Errorf("unsupported type %T", t))
	}

	token, err := crypt.EncryptToken(id, passphrase)
	if err != nil {
		return "", errs.Extraction("Vidrock", "token", err)
	}
	return v.base + "/api/" + kind + "/" + token, nil
}

func (v *Vidrock) headers() []network.RequestOption {
	return []network.RequestOption{
		network.WithReferer(v.base + "/"),
		network.WithHeader("Origin", v.base),
	}
}

// streams fetches the server map, preserving the order the API used.
func (v *Vidrock) streams(ctx context.Context, apiURL string) ([]vidrockStream, error) {
	resp, err := v.env.Client.Get(ctx, apiURL, v.headers()...)
	if err != nil {
		return nil, err
	}

	body := resp.Body
	var envelope crypt.Envelope
	if json.Unmarshal(body, &envelope) == nil && envelope.Payload != "" && len(envelope.KeyParts) > 0 {
		km, err := envelope.KeyMaterial()
		if err != nil {
			return nil, err
		}
		if body, err = crypt.Decrypt(km, crypt.GCM); err != nil {
			return nil, err
		}
	}

	keys, values, err := orderedObject(body)
	if err != nil {
		return nil, err
	}

	var streams []vidrockStream
	for _, k := range keys {
		var entry struct {
			URL string `json:"url"`
		}
		if json.Unmarshal(values[k], &entry) != nil || entry.URL == "" {
			continue
		}
		streams = append(streams, vidrockStream{name: k, url: entry.URL})
	}
	return streams, nil
}

func (v *Vidrock) Servers(ctx context.Context, t media.Type) ([]media.Server, error) {
	apiURL, err := v.apiURL(t)
	if err != nil {
		return nil, err
	}

	streams, err := v.streams(ctx, apiURL)
	if err != nil {
		log.Warnf("vidrock: no servers for %s: %v", t, err)
		return nil, nil
	}

	return lo.Map(streams, func(s vidrockStream, _ int) media.Server {
		return media.Server{
			ID:   s.name + "-" + s.url + " (Vidrock)",
			Name: s.name + " (Vidrock)",
			Src:  apiURL + "#" + s.name,
		}
	}), nil
}

func (v *Vidrock) Server(ctx context.Context, t media.Type) (media.Server, error) {
	servers, err := v.Servers(ctx, t)
	if err != nil {
		return media.Server{}, err
	}
	if len(servers) == 0 {
		return media.Server{}, errs.Extraction("Vidrock", "servers", errors.New("no servers"))
	}
	return servers[0], nil
}

func (v *Vidrock) Extract(ctx context.Context, link string) (*media.Video, error) {
	const name = "Vidrock"

	apiURL, serverName, _ := strings.Cut(link, "#")

	streams, err := v.streams(ctx, apiURL)
	if err != nil {
		return nil, errs.Extraction(name, "streams", err)
	}

	stream, ok := lo.Find(streams, func(s vidrockStream) bool {
		return serverName == "" || strings.EqualFold(s.name, serverName)
	})
	if !ok {
		return nil, errs.Extraction(name, "streams", fmt.Errorf("no source named %q", serverName))
	}

	source, mime := stream.url, media.HLS
	if strings.EqualFold(stream.name, "Atlas") {
		var qualities []atlasQuality
		if err := v.env.Client.GetJSON(ctx, stream.url, &qualities, v.headers()...); err == nil && len(qualities) > 0 {
			best := lo.MaxBy(qualities, func(a, b atlasQuality) bool {
				return a.Resolution > b.Resolution
			})
			source, mime = best.URL, media.MP4
		}
	}

	return newVideo(name, source,
		media.WithMime(mime),
		media.WithHeaders(media.NewHeaders("Referer", v.base+"/", "Origin", v.base)),
	)
}

// orderedObject decodes a JSON object into its keys, in document order,
// and their raw values.
func orderedObject(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, errors.New("expected a JSON object")
	}

	var (
		keys   []string
		values = make(map[string]json.RawMessage)
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		k, ok := tok.(string)
		if !ok {
			return nil, nil, errors.New("expected an object key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		if _, seen := values[k]; !seen {
			keys = append(keys, k)
		}
		values[k] = raw
	}
	return keys, values, nil
}
