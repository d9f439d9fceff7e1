package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
)

// Header is a single request header required to fetch a stream.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list. Order is preserved through JSON so
// players that replay headers verbatim see them as the host expects.
type Headers []Header

// NewHeaders builds Headers from alternating name, value pairs.
func NewHeaders(pairs ...string) Headers {
	var h Headers
	for i := 0; i+1 < len(pairs); i += 2 {
		h = h.Set(pairs[i], pairs[i+1])
	}
	return h
}

// Set replaces the value of an existing header (case-insensitive) or appends it.
func (h Headers) Set(name, value string) Headers {
	for i := range h {
		if strings.EqualFold(h[i].Name, name) {
			out := make(Headers, len(h))
			copy(out, h)
			out[i].Value = value
			return out
		}
	}
	out := make(Headers, len(h), len(h)+1)
	copy(out, h)
	return append(out, Header{Name: name, Value: value})
}

// Get returns the value of the named header or an empty string.
func (h Headers) Get(name string) string {
	for _, header := range h {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// Map returns the headers as a plain map. Order is lost.
func (h Headers) Map() map[string]string {
	m := make(map[string]string, len(h))
	for _, header := range h {
		m[header.Name] = header.Value
	}
	return m
}

// Apply writes every header onto an outgoing request.
func (h Headers) Apply(req *http.Request) {
	for _, header := range h {
		req.Header.Set(header.Name, header.Value)
	}
}

// MarshalJSON encodes the headers as a JSON object in insertion order.
func (h Headers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, header := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(header.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(header.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the key order.
func (h *Headers) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*h = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("headers: expected object, got %v", tok)
	}

	var out Headers
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out = out.Set(keyTok.(string), value)
	}

	*h = out
	return nil
}

// JSONSchema describes Headers as a string map.
func (Headers) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: &jsonschema.Schema{Type: "string"},
	}
}
