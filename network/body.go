package network

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// maxBodySize caps how much of a response is buffered.
const maxBodySize = 16 << 20

func readBody(encoding string, body io.Reader) ([]byte, error) {
	var reader io.Reader = body

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(body)
		defer fl.Close()
		reader = fl
	case "br":
		reader = brotli.NewReader(body)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}

	return io.ReadAll(io.LimitReader(reader, maxBodySize))
}
