// Package api exposes the registry over HTTP for local players.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/samber/lo"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/extractor"
	"github.com/vidsan-cli/vidsan/log"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/provider"
)

// Engine is the part of provider.Registry the server needs.
type Engine interface {
	Extractors() []extractor.Extractor
	Extract(ctx context.Context, link string) (*media.Video, error)
	Servers(ctx context.Context, name string, t media.Type) ([]media.Server, error)
	ServersAll(ctx context.Context, t media.Type) ([]provider.Group, error)
}

// Options configure the handler.
type Options struct {
	// Origins allowed by CORS. Empty allows any origin.
	Origins []string
}

type handler struct {
	engine Engine
}

// New returns the HTTP handler serving engine.
func New(engine Engine, opts Options) http.Handler {
	h := &handler{engine: engine}

	r := mux.NewRouter()
	r.Use(logging)

	r.HandleFunc("/api/resolve", h.resolve).Methods(http.MethodGet)
	r.HandleFunc("/api/extractors", h.extractors).Methods(http.MethodGet)
	r.HandleFunc("/api/servers", h.serversAll).Methods(http.MethodGet)
	r.HandleFunc("/api/servers/{extractor}", h.servers).Methods(http.MethodGet)

	origins := opts.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}

func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("link")
	if link == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing link"))
		return
	}

	video, err := h.engine.Extract(r.Context(), link)
	if err != nil {
		writeError(w, status(err), err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

type extractorInfo struct {
	Name    string   `json:"name"`
	Hosts   []string `json:"hosts"`
	Servers bool     `json:"servers"`
}

func (h *handler) extractors(w http.ResponseWriter, _ *http.Request) {
	infos := lo.Map(h.engine.Extractors(), func(e extractor.Extractor, _ int) extractorInfo {
		_, lists := e.(extractor.ServerLister)
		return extractorInfo{
			Name:    e.Identity().Name,
			Hosts:   e.Identity().Hosts(),
			Servers: lists,
		}
	})
	writeJSON(w, http.StatusOK, infos)
}

func (h *handler) servers(w http.ResponseWriter, r *http.Request) {
	t, err := media.ParseType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	servers, err := h.engine.Servers(r.Context(), mux.Vars(r)["extractor"], t)
	if err != nil {
		writeError(w, status(err), err)
		return
	}
	writeJSON(w, http.StatusOK, servers)
}

type group struct {
	Extractor string         `json:"extractor"`
	Servers   []media.Server `json:"servers"`
	Error     string         `json:"error,omitempty"`
}

func (h *handler) serversAll(w http.ResponseWriter, r *http.Request) {
	t, err := media.ParseType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	groups, err := h.engine.ServersAll(r.Context(), t)
	if err != nil {
		writeError(w, status(err), err)
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(groups, func(g provider.Group, _ int) group {
		out := group{Extractor: g.Extractor, Servers: g.Servers}
		if g.Err != nil {
			out.Error = g.Err.Error()
		}
		return out
	}))
}

func status(err error) int {
	switch {
	case errors.Is(err, errs.ErrNoExtractorFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errs.Recoverable(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusRecorder captures the status code written by the next handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.code,
			"duration": time.Since(start).String(),
		}).Infof("served")
	})
}
