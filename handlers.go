package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	scalargo "github.com/bdpiprava/scalar-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"game-hunter/pkg/api"
	"game-hunter/pkg/models"
)

// searcher is the set of search surfaces the HTTP layer exposes.
type searcher interface {
	Search(ctx context.Context, query, cc string, limit int) ([]models.PriceRecord, error)
	SearchNuuvem(ctx context.Context, query, cc string, limit int) ([]models.PriceRecord, error)
	SearchFanatical(ctx context.Context, query string, limit int) ([]models.PriceRecord, error)
	SearchGreenManGaming(ctx context.Context, query string, limit int) ([]models.PriceRecord, error)
	SearchInstantGaming(ctx context.Context, query string, limit int) ([]models.PriceRecord, error)
	RawGreenManGaming(ctx context.Context, query string, limit int) ([]models.PriceRecord, error)
	RawInstantGaming(ctx context.Context, query string, limit int) ([]models.PriceRecord, error)
	Suggest(ctx context.Context, query, cc string, limit int) ([]models.Suggestion, error)
	Preview(ctx context.Context, appID int, cc string) (*models.PriceRecord, error)
}

type server struct {
	engine        searcher
	searches      *semaphore.Weighted
	defaultRegion string
}

func newServer(engine searcher, maxConcurrent int, defaultRegion string) *server {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &server{
		engine:        engine,
		searches:      semaphore.NewWeighted(int64(maxConcurrent)),
		defaultRegion: defaultRegion,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", docsHandler)
	r.Get("/health", healthHandler)
	r.Get("/autocomplete", s.autocompleteHandler)
	r.Get("/preview", s.previewHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.limitConcurrency)
		r.Get("/search", s.searchHandler)
		r.Get("/nuuvem", s.nuuvemHandler)
		r.Get("/fanatical", s.storeHandler(s.engine.SearchFanatical))
		r.Get("/greenmangaming", s.storeHandler(s.engine.SearchGreenManGaming))
		r.Get("/greenmangaming/debug", s.debugHandler(s.engine.RawGreenManGaming))
		r.Get("/instantgaming", s.storeHandler(s.engine.SearchInstantGaming))
		r.Get("/instantgaming/debug", s.debugHandler(s.engine.RawInstantGaming))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.WriteNotFound(w, "Route not found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "Use GET.", r.URL.Path)
	})
	return r
}

// requestLogger tags every request with an id and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logrus.WithFields(logrus.Fields{
			"request_id":  id,
			"method":      r.Method,
			"path":        r.URL.Path,
			"query":       r.URL.RawQuery,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Handled request")
	})
}

// limitConcurrency bounds the number of searches hitting the stores at once.
func (s *server) limitConcurrency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.searches.Acquire(r.Context(), 1); err != nil {
			api.WriteError(w, http.StatusServiceUnavailable, "Service Unavailable", "Request cancelled while waiting for a search slot.", r.URL.Path)
			return
		}
		defer s.searches.Release(1)
		next.ServeHTTP(w, r)
	})
}

func docsHandler(w http.ResponseWriter, r *http.Request) {
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir("./"),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Game Price Hunter API"),
		),
	)
	if err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

type searchParams struct {
	query string
	limit int
	cc    string
}

// parseSearchParams validates q, limit and cc. It writes the 400 response
// itself and reports false when the request is invalid.
func (s *server) parseSearchParams(w http.ResponseWriter, r *http.Request, defaultLimit, maxLimit int) (searchParams, bool) {
	values := r.URL.Query()
	p := searchParams{
		query: strings.TrimSpace(values.Get("q")),
		limit: defaultLimit,
	}

	if p.query == "" {
		api.WriteBadRequest(w, "Query parameter 'q' is required.", r.URL.Path)
		return p, false
	}
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			api.WriteBadRequest(w, fmt.Sprintf("Invalid limit: %s. Must be an integer between 1 and %d.", raw, maxLimit), r.URL.Path)
			return p, false
		}
		p.limit = n
	}
	cc, ok := s.parseRegion(w, r)
	if !ok {
		return p, false
	}
	p.cc = cc
	return p, true
}

// parseRegion reads cc, defaulting to the server region. It writes the 400
// response itself when the code is not two letters.
func (s *server) parseRegion(w http.ResponseWriter, r *http.Request) (string, bool) {
	cc := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("cc")))
	if cc == "" {
		return s.defaultRegion, true
	}
	if len(cc) != 2 {
		api.WriteBadRequest(w, fmt.Sprintf("Invalid region: %s. Must be a two-letter country code.", cc), r.URL.Path)
		return "", false
	}
	return cc, true
}

func (s *server) autocompleteHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseSearchParams(w, r, 8, 20)
	if !ok {
		return
	}
	suggestions, err := s.engine.Suggest(r.Context(), p.query, p.cc, p.limit)
	if err != nil {
		api.WriteSearchError(w, err, r.URL.Path)
		return
	}
	writeJSON(w, r, suggestions)
}

func (s *server) previewHandler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("appid")
	appID, err := strconv.Atoi(raw)
	if err != nil || appID <= 0 {
		api.WriteBadRequest(w, fmt.Sprintf("Invalid appid: %q. Must be a positive integer.", raw), r.URL.Path)
		return
	}
	cc, ok := s.parseRegion(w, r)
	if !ok {
		return
	}

	rec, err := s.engine.Preview(r.Context(), appID, cc)
	if err != nil {
		api.WriteSearchError(w, err, r.URL.Path)
		return
	}
	writeJSON(w, r, rec)
}

func (s *server) searchHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseSearchParams(w, r, 5, 20)
	if !ok {
		return
	}
	writeResults(w, r, p.query)(s.engine.Search(r.Context(), p.query, p.cc, p.limit))
}

func (s *server) nuuvemHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseSearchParams(w, r, 3, 10)
	if !ok {
		return
	}
	writeResults(w, r, p.query)(s.engine.SearchNuuvem(r.Context(), p.query, p.cc, p.limit))
}

type storeSearch func(ctx context.Context, query string, limit int) ([]models.PriceRecord, error)

func (s *server) storeHandler(search storeSearch) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := s.parseSearchParams(w, r, 3, 10)
		if !ok {
			return
		}
		writeResults(w, r, p.query)(search(r.Context(), p.query, p.limit))
	}
}

// debugHandler serves raw adapter output, so an empty list is a 200.
func (s *server) debugHandler(search storeSearch) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := s.parseSearchParams(w, r, 3, 10)
		if !ok {
			return
		}
		recs, err := search(r.Context(), p.query, p.limit)
		if err != nil {
			api.WriteSearchError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, r, recs)
	}
}

func writeResults(w http.ResponseWriter, r *http.Request, query string) func([]models.PriceRecord, error) {
	return func(recs []models.PriceRecord, err error) {
		if err != nil {
			if errors.Is(err, models.ErrNoResults) {
				api.WriteNotFound(w, fmt.Sprintf("No results found for %q.", query), r.URL.Path)
				return
			}
			api.WriteSearchError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, r, recs)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).WithField("path", r.URL.Path).Error("Error encoding response")
	}
}
