// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the analysis pipeline over HTTP so browser
// clients never hold the AI credential.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/research-radar/internal/analyze"
	"github.com/pdiddy/research-radar/internal/history"
	"github.com/pdiddy/research-radar/internal/search"
	"github.com/pdiddy/research-radar/internal/translate"
	"github.com/pdiddy/research-radar/pkg/types"
)

const (
	defaultMaxBodyBytes = 16 << 20
	sessionTTL          = 30 * time.Minute
	clientIDHeader      = "X-Client-ID"
	historyIDHeader     = "X-History-ID"
)

// Analyzer runs analyses and trend forecasts. *analyze.Service satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, papers []types.Paper, field string, cfg types.AnalysisConfig) (*types.AnalysisResult, error)
	Forecast(ctx context.Context, field, corpus string) (*types.TrendAnalysisResult, error)
}

// Translator translates text spans. *translate.Translator satisfies it.
type Translator interface {
	Translate(ctx context.Context, text string) translate.Result
}

// Searcher runs bibliographic searches. *search.Client satisfies it.
type Searcher interface {
	SearchPapers(ctx context.Context, query string, offset, pageSize int) (search.Page, error)
}

// HistoryStore saves and reads results. *history.Store satisfies it.
type HistoryStore interface {
	Save(ctx context.Context, e history.Entry) (history.Entry, error)
	List(ctx context.Context, opts history.ListOptions) ([]history.Entry, error)
	Get(ctx context.Context, id string) (history.Entry, error)
	Delete(ctx context.Context, id string) error
}

// Dependencies are the collaborators behind the endpoints. A nil Analyzer
// or Translator means no AI credential is configured; a nil Searcher or
// History disables those endpoints.
type Dependencies struct {
	Analyzer   Analyzer
	Translator Translator
	Searcher   Searcher
	History    HistoryStore
	Gatherer   prometheus.Gatherer
	Defaults   types.AnalysisConfig

	// OnSuperseded, if set, is called when a client's stale analysis is
	// discarded.
	OnSuperseded func()
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	deps       Dependencies
	sessions   *gocache.Cache
	maxBody    int64
	logger     zerolog.Logger
}

// New builds a Server listening on cfg.Address.
func New(cfg types.ServerConfig, deps Dependencies, logger zerolog.Logger) *Server {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		deps:     deps,
		sessions: gocache.New(sessionTTL, sessionTTL/3),
		maxBody:  maxBody,
		logger:   logger.With().Str("component", "http-server").Logger(),
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.analyze)
		r.Post("/trend", s.trend)
		r.Post("/translate", s.translate)
		r.Get("/search", s.search)
		r.Post("/papers", s.papers)
		r.Get("/history", s.listHistory)
		r.Get("/history/{id}", s.getHistory)
		r.Delete("/history/{id}", s.deleteHistory)
	})
	return r
}

// Start listens and serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// session returns the per-client session named by the X-Client-ID header,
// or nil when the header is absent.
func (s *Server) session(r *http.Request) *analyze.Session {
	id := r.Header.Get(clientIDHeader)
	if id == "" {
		return nil
	}
	if v, ok := s.sessions.Get(id); ok {
		s.sessions.SetDefault(id, v)
		return v.(*analyze.Session)
	}
	sess := &analyze.Session{OnSuperseded: s.deps.OnSuperseded}
	if err := s.sessions.Add(id, sess, gocache.DefaultExpiration); err != nil {
		if v, ok := s.sessions.Get(id); ok {
			return v.(*analyze.Session)
		}
	}
	return sess
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"ai":          s.deps.Analyzer != nil,
		"search":      s.deps.Searcher != nil,
		"history":     s.deps.History != nil,
		"translation": s.deps.Translator != nil,
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
