package media

import (
	"fmt"
	"strconv"
	"strings"
)

// Type identifies the content a host-specific API builds its URLs from.
// It is either a Movie or an Episode.
type Type interface {
	fmt.Stringer
	isType()
}

// Movie identifies a film by its upstream id (usually TMDB).
type Movie struct {
	ID string `json:"id"`
}

func (Movie) isType() {}

func (m Movie) String() string { return "movie:" + m.ID }

// Episode identifies an episode of a show.
type Episode struct {
	TvShowID string `json:"tv_show_id"`
	Season   int    `json:"season"`
	Number   int    `json:"number"`
	// EpisodeID is the host's own episode key, when it has one.
	EpisodeID string `json:"episode_id,omitempty"`
}

func (Episode) isType() {}

func (e Episode) String() string {
	s := fmt.Sprintf("tv:%s:%d:%d", e.TvShowID, e.Season, e.Number)
	if e.EpisodeID != "" {
		s += ":" + e.EpisodeID
	}
	return s
}

// ParseType parses "movie:<id>" or "tv:<show>:<season>:<episode>[:<episodeId>]".
func ParseType(s string) (Type, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch strings.ToLower(parts[0]) {
	case "movie", "m":
		if len(parts) != 2 || parts[1] == "" {
			return nil, fmt.Errorf("invalid movie %q: want movie:<id>", s)
		}
		return Movie{ID: parts[1]}, nil
	case "tv", "episode", "e":
		if len(parts) != 4 && len(parts) != 5 {
			return nil, fmt.Errorf("invalid episode %q: want tv:<show>:<season>:<episode>", s)
		}
		season, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid season %q: %w", parts[2], err)
		}
		number, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid episode number %q: %w", parts[3], err)
		}
		e := Episode{TvShowID: parts[1], Season: season, Number: number}
		if len(parts) == 5 {
			e.EpisodeID = parts[4]
		}
		return e, nil
	}
	return nil, fmt.Errorf("unknown content type %q", parts[0])
}
