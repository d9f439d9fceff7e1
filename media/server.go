package media

import "fmt"

// Server is a candidate stream advertised by a host before final resolution.
type Server struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Src is a link fed back into the registry.
	Src string `json:"src"`
	// Video is set when enumeration already produced the final stream.
	Video *Video `json:"video,omitempty"`
}

func (s Server) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.ID)
}
