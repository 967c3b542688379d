// Package server serves the search artifacts as static assets next to a
// small JSON query API over the same index.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/time/rate"

	"github.com/oakridge-association/sitesearch/internal/log"
	"github.com/oakridge-association/sitesearch/internal/search"
)

// Searcher is the engine API the server exposes.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...search.Option) (*search.Result, error)
	Suggestions(ctx context.Context, partial string, limit int, filters search.Filters) []search.Suggestion
	FilterOptions(ctx context.Context) (*search.FilterOptions, error)
}

// Options configures a Server.
type Options struct {
	// ArtifactsDir holds search-index.json and search-documents.json.
	ArtifactsDir string
	// RateLimit is API requests per second; 0 disables limiting.
	RateLimit float64
}

type Server struct {
	engine    Searcher
	artifacts *artifactHandler
	limiter   *rate.Limiter
	log       *log.Logger
}

func New(engine Searcher, opts Options) *Server {
	s := &Server{
		engine:    engine,
		artifacts: newArtifactHandler(opts.ArtifactsDir),
		log:       log.ForService("server"),
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /search/{file}", s.artifacts)
	mux.Handle("GET /api/search", s.limit(http.HandlerFunc(s.HandleSearch)))
	mux.Handle("GET /api/suggest", s.limit(http.HandlerFunc(s.HandleSuggest)))
	mux.Handle("GET /api/filters", s.limit(http.HandlerFunc(s.HandleFilters)))
	mux.HandleFunc("GET /health", s.HandleHealth)
}

// Handler returns the full handler with response compression.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return gzhttp.GzipHandler(mux)
}

func (s *Server) limit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.writeError(w, http.StatusTooManyRequests, "Rate limited", "Too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: error, Message: message})
}

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := []search.Option{search.WithFilters(ParseFilters(q))}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid limit", err.Error())
			return
		}
		opts = append(opts, search.WithLimit(n))
	}

	res, err := s.engine.Search(r.Context(), q.Get("q"), opts...)
	if err != nil {
		s.log.Warnf("search unavailable: %v", err)
		s.writeJSON(w, http.StatusServiceUnavailable, res)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid limit", err.Error())
			return
		}
		limit = n
	}
	s.writeJSON(w, http.StatusOK, s.engine.Suggestions(r.Context(), q.Get("q"), limit, ParseFilters(q)))
}

func (s *Server) HandleFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := s.engine.FilterOptions(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "Search unavailable", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, opts)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ParseFilters reads filter dimensions from query parameters. Repeated
// and comma-separated values are both accepted: ?type=meeting&type=resource
// or ?type=meeting,resource.
func ParseFilters(q map[string][]string) search.Filters {
	f := search.Filters{
		Types:      multi(q["type"]),
		Categories: multi(q["category"]),
		Difficulty: multi(q["difficulty"]),
		Tags:       multi(q["tag"]),
		Years:      multi(q["year"]),
		Quarters:   multi(q["quarter"]),
	}
	from, to := first(q["from"]), first(q["to"])
	if from != "" || to != "" {
		f.DateRange = &search.DateRange{From: from, To: to}
	}
	return f
}

func multi(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
