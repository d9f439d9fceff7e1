// Package packer reverses the p,a,c,k,e,d script packing scheme.
//
// A packed script looks like
//
//	eval(function(p,a,c,k,e,d){...}('0.1.2',3,3,'jwplayer|sources|file'.split('|'),0,{}))
//
// where the first argument is a template whose words are base-N indexes
// into the '|'-separated dictionary. Unpack rebuilds the original source
// without evaluating any JavaScript.
package packer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vidsan-cli/vidsan/errs"
)

// Signature marks the start of a packed script.
const Signature = "eval(function(p,a,c,k,e,"

const (
	defaultRadix = 36
	maxRadix     = 62
	alphabet     = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	maxIndex     = 1 << 24
)

var (
	signatureRe = regexp.MustCompile(`eval\s*\(\s*function\s*\(\s*p\s*,\s*a\s*,\s*c\s*,\s*k\s*,\s*e\s*,\s*(?:d|r)\s*\)`)

	// argsRe captures (payload, radix, count, dictionary); each string may be
	// single or double quoted independently.
	argsRe = regexp.MustCompile(`(?s)\}\s*\)?\s*\(\s*` +
		`(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")` +
		`\s*,\s*(\d+|\[\])\s*,\s*(\d+)\s*,\s*` +
		`(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")` +
		`\s*\.split\(\s*['"]\|['"]\s*\)`)

	wordRe = regexp.MustCompile(`\w+`)
)

// Detect reports whether text contains a packed script.
func Detect(text string) bool {
	return signatureRe.MatchString(text)
}

// Unpack reverses the first packed script found in text.
func Unpack(text string) (string, error) {
	loc := signatureRe.FindStringIndex(text)
	if loc == nil {
		return "", &errs.UnpackError{Reason: "packer signature not found"}
	}

	args, err := parseArgs(text[loc[1]:])
	if err != nil {
		return "", err
	}

	return args.expand(), nil
}

// UnpackAll reverses every packed script in text, in document order.
// Blocks that fail to parse are skipped; an error is returned only when
// the signature is present but nothing could be unpacked.
func UnpackAll(text string) ([]string, error) {
	locs := signatureRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil, &errs.UnpackError{Reason: "packer signature not found"}
	}

	var (
		out     []string
		lastErr error
	)
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}

		args, err := parseArgs(text[loc[1]:end])
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, args.expand())
	}

	if len(out) == 0 {
		return nil, lastErr
	}
	return out, nil
}

type packed struct {
	payload string
	radix   int
	count   int
	dict    []string
}

func parseArgs(body string) (*packed, error) {
	m := argsRe.FindStringSubmatch(body)
	if m == nil {
		return nil, &errs.UnpackError{Reason: "argument tuple not found"}
	}

	payload := m[1]
	if payload == "" {
		payload = m[2]
	}

	radix := defaultRadix
	if m[3] == "[]" {
		radix = maxRadix
	} else if n, err := strconv.Atoi(m[3]); err != nil {
		return nil, &errs.UnpackError{Reason: "invalid radix " + m[3]}
	} else if n != 0 {
		radix = n
	}
	if radix < 2 || radix > maxRadix {
		return nil, &errs.UnpackError{Reason: "unsupported radix " + strconv.Itoa(radix)}
	}

	count, err := strconv.Atoi(m[4])
	if err != nil {
		return nil, &errs.UnpackError{Reason: "invalid count " + m[4]}
	}

	dict := m[5]
	if dict == "" {
		dict = m[6]
	}

	return &packed{
		payload: unescape(payload),
		radix:   radix,
		count:   count,
		dict:    strings.Split(unescape(dict), "|"),
	}, nil
}

// expand substitutes dictionary words into the template. Indexes are walked
// from the highest to the lowest and only whole words are replaced, so a
// token never clobbers a longer token it prefixes. A substituted word is not
// matched again by lower indexes.
func (p *packed) expand() string {
	locs := wordRe.FindAllStringIndex(p.payload, -1)
	if len(locs) == 0 {
		return p.payload
	}

	words := make([]string, len(locs))
	byIndex := make(map[int][]int)
	for i, loc := range locs {
		w := p.payload[loc[0]:loc[1]]
		words[i] = w
		if idx, ok := decode(w, p.radix); ok && idx < p.count {
			byIndex[idx] = append(byIndex[idx], i)
		}
	}

	for idx := p.count - 1; idx >= 0; idx-- {
		if idx >= len(p.dict) || p.dict[idx] == "" {
			continue
		}
		for _, at := range byIndex[idx] {
			words[at] = p.dict[idx]
		}
	}

	var b strings.Builder
	b.Grow(len(p.payload))
	prev := 0
	for i, loc := range locs {
		b.WriteString(p.payload[prev:loc[0]])
		b.WriteString(words[i])
		prev = loc[1]
	}
	b.WriteString(p.payload[prev:])
	return b.String()
}

// decode maps a template word back to its dictionary index, using the same
// digit alphabet as the packer's e(c) helper. It reports false for words that
// are not canonical tokens in the radix.
func decode(token string, radix int) (int, bool) {
	if len(token) > 1 && token[0] == '0' {
		return 0, false
	}

	n := 0
	for i := 0; i < len(token); i++ {
		d := strings.IndexByte(alphabet, token[i])
		if d < 0 || d >= radix {
			return 0, false
		}
		n = n*radix + d
		if n > maxIndex {
			return 0, false
		}
	}
	return n, true
}

// unescape applies JavaScript string literal escapes.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}

		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'x':
			if i+2 < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					b.WriteByte(byte(v))
					i += 2
					continue
				}
			}
			b.WriteByte('x')
		case 'u':
			if i+4 < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+5], 16, 16); err == nil {
					b.WriteRune(rune(v))
					i += 4
					continue
				}
			}
			b.WriteByte('u')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
