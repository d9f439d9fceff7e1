// Package manifest rewrites HLS master playlists so they can be handed to a
// player inline.
package manifest

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// DataURIPrefix is the prefix of an inline HLS manifest.
const DataURIPrefix = "data:application/vnd.apple.mpegurl;base64,"

const mediaAudioTag = "#EXT-X-MEDIA:"

type language struct {
	codes []string
	name  string
}

var languages = map[string]language{
	"en": {codes: []string{"en", "eng"}, name: "english"},
	"it": {codes: []string{"it", "ita"}, name: "italian"},
	"fr": {codes: []string{"fr", "fra", "fre"}, name: "french"},
	"es": {codes: []string{"es", "spa"}, name: "spanish"},
	"de": {codes: []string{"de", "deu", "ger"}, name: "german"},
}

func lookupLanguage(lang string) language {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if l, ok := languages[lang]; ok {
		return l
	}
	return language{codes: []string{lang}}
}

// Rewrite makes every URI in the playlist absolute against base and keeps
// only the audio rendition in lang, marked DEFAULT and AUTOSELECT. It
// reports whether such a rendition was found; when it was not, the audio
// renditions are left untouched.
func Rewrite(playlist string, base *url.URL, lang string) (string, bool) {
	target := lookupLanguage(lang)
	lines := strings.Split(strings.ReplaceAll(playlist, "\r\n", "\n"), "\n")

	var (
		out   = make([]string, 0, len(lines))
		found bool
	)

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			out = append(out, line)
		case !strings.HasPrefix(trimmed, "#"):
			out = append(out, resolve(base, trimmed))
		case strings.HasPrefix(trimmed, mediaAudioTag) && isAudio(trimmed):
			attrs := parseAttributes(strings.TrimPrefix(trimmed, mediaAudioTag))
			attrs.resolveURI(base)
			if !target.matches(attrs) {
				out = append(out, "\x00"+mediaAudioTag+attrs.String())
				continue
			}
			attrs.set("DEFAULT", "YES")
			attrs.set("AUTOSELECT", "YES")
			out = append(out, mediaAudioTag+attrs.String())
			found = true
		case strings.Contains(trimmed, `URI="`):
			tag, rest, _ := strings.Cut(trimmed, ":")
			attrs := parseAttributes(rest)
			attrs.resolveURI(base)
			out = append(out, tag+":"+attrs.String())
		default:
			out = append(out, line)
		}
	}

	// Non-matching audio lines were marked; drop them only when a match exists.
	kept := out[:0]
	for _, line := range out {
		if strings.HasPrefix(line, "\x00") {
			if found {
				continue
			}
			line = line[1:]
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n"), found
}

// DataURI encodes playlist as an inline data URI.
func DataURI(playlist string) string {
	return DataURIPrefix + base64.StdEncoding.EncodeToString([]byte(playlist))
}

// Decode returns the playlist inside a data URI produced by DataURI.
func Decode(dataURI string) (string, bool) {
	payload, ok := strings.CutPrefix(dataURI, DataURIPrefix)
	if !ok {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

func isAudio(line string) bool {
	attrs := parseAttributes(strings.TrimPrefix(line, mediaAudioTag))
	return strings.EqualFold(attrs.get("TYPE"), "AUDIO")
}

func (l language) matches(attrs attributes) bool {
	lang := strings.ToLower(attrs.get("LANGUAGE"))
	name := strings.ToLower(attrs.get("NAME"))

	for _, code := range l.codes {
		if lang == code || name == code {
			return true
		}
	}
	return l.name != "" && strings.Contains(name, l.name)
}

type attribute struct {
	key, value string
	quoted     bool
}

// attributes is an ordered HLS attribute list.
type attributes []attribute

func parseAttributes(s string) attributes {
	var (
		attrs attributes
		i     int
	)

	for i < len(s) {
		eq := strings.IndexByte(s[i:], '=')
		if eq < 0 {
			break
		}
		k := strings.TrimSpace(s[i : i+eq])
		i += eq + 1

		var (
			value  string
			quoted bool
		)
		if i < len(s) && s[i] == '"' {
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				value = s[i+1:]
				i = len(s)
			} else {
				value = s[i+1 : i+1+end]
				i += end + 2
			}
			quoted = true
		} else {
			end := strings.IndexByte(s[i:], ',')
			if end < 0 {
				end = len(s) - i
			}
			value = s[i : i+end]
			i += end
		}

		attrs = append(attrs, attribute{key: k, value: value, quoted: quoted})

		if i < len(s) && s[i] == ',' {
			i++
		}
	}

	return attrs
}

func (a attributes) get(key string) string {
	for _, attr := range a {
		if strings.EqualFold(attr.key, key) {
			return attr.value
		}
	}
	return ""
}

func (a *attributes) set(key, value string) {
	for i, attr := range *a {
		if strings.EqualFold(attr.key, key) {
			(*a)[i].value = value
			(*a)[i].quoted = false
			return
		}
	}
	*a = append(*a, attribute{key: key, value: value})
}

func (a attributes) resolveURI(base *url.URL) {
	for i, attr := range a {
		if strings.EqualFold(attr.key, "URI") {
			a[i].value = resolve(base, attr.value)
		}
	}
}

func (a attributes) String() string {
	var b strings.Builder
	for i, attr := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(attr.key)
		b.WriteByte('=')
		if attr.quoted {
			b.WriteByte('"')
			b.WriteString(attr.value)
			b.WriteByte('"')
		} else {
			b.WriteString(attr.value)
		}
	}
	return b.String()
}
