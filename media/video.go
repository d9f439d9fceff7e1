// Package media defines the values produced and consumed by the resolution engine.
package media

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

// MimeType is the container type of a resolved stream.
type MimeType string

const (
	Unspecified MimeType = ""
	HLS         MimeType = "application/x-mpegurl"
	MP4         MimeType = "video/mp4"
)

// ErrEmptySource is returned when a Video would be built without a source.
var ErrEmptySource = errors.New("video source is empty")

// Subtitle is an external subtitle track offered alongside a stream.
type Subtitle struct {
	Label   string `json:"label"`
	File    string `json:"file"`
	Default bool   `json:"default,omitempty"`
}

// Video is a resolved, playable stream descriptor.
type Video struct {
	// Source is an absolute URL or a data URI holding a manifest.
	Source string `json:"source" jsonschema:"required"`
	// Headers must be sent when fetching Source.
	Headers Headers `json:"headers,omitempty"`
	// MimeType of Source, empty when unknown.
	MimeType MimeType `json:"mime_type,omitempty" jsonschema:"enum=application/x-mpegurl,enum=video/mp4"`
	// Subtitles in the order offered by the host.
	Subtitles []Subtitle `json:"subtitles"`
}

// Option customizes a Video built with NewVideo.
type Option func(*Video)

// WithHeaders sets the request headers.
func WithHeaders(h Headers) Option {
	return func(v *Video) { v.Headers = h }
}

// WithMime sets the container type explicitly.
func WithMime(m MimeType) Option {
	return func(v *Video) { v.MimeType = m }
}

// WithSubtitles appends subtitle tracks.
func WithSubtitles(s ...Subtitle) Option {
	return func(v *Video) { v.Subtitles = append(v.Subtitles, s...) }
}

// NewVideo builds a Video. The mime type is guessed from the source unless
// an option sets it. An empty source is an error.
func NewVideo(source string, opts ...Option) (*Video, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrEmptySource
	}

	v := &Video{
		Source:    source,
		MimeType:  GuessMime(source),
		Subtitles: []Subtitle{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// GuessMime infers the container type from a URL or data URI.
func GuessMime(source string) MimeType {
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "data:application/vnd.apple.mpegurl") || strings.HasPrefix(lower, "data:application/x-mpegurl") {
		return HLS
	}

	u, err := url.Parse(source)
	if err != nil {
		return Unspecified
	}

	switch strings.ToLower(path.Ext(u.Path)) {
	case ".m3u8":
		return HLS
	case ".mp4":
		return MP4
	}

	if strings.Contains(u.Path, "/playlist/") || strings.Contains(u.Path, "/hls/") {
		return HLS
	}
	return Unspecified
}

// String returns the source for display.
func (v *Video) String() string {
	return v.Source
}
