// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/research-radar/internal/ai"
	"github.com/pdiddy/research-radar/internal/analyze"
	"github.com/pdiddy/research-radar/internal/history"
	"github.com/pdiddy/research-radar/internal/ingest"
	"github.com/pdiddy/research-radar/internal/invoke"
	"github.com/pdiddy/research-radar/internal/normalize"
	"github.com/pdiddy/research-radar/internal/search"
	"github.com/pdiddy/research-radar/pkg/types"
)

var (
	errBadRequest  = errors.New("bad request")
	errUnavailable = errors.New("not configured on this server")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type analyzeRequest struct {
	Papers []types.Paper `json:"papers" validate:"required,min=1"`
	Field  string        `json:"field" validate:"max=500"`

	// Config overrides the server defaults field by field.
	Config json.RawMessage `json:"config,omitempty"`
	Save   bool            `json:"save,omitempty"`
}

type trendRequest struct {
	Field  string `json:"field" validate:"required,max=500"`
	Corpus string `json:"corpus" validate:"required"`
	Save   bool   `json:"save,omitempty"`
}

type translateRequest struct {
	Text string `json:"text"`
}

type papersRequest struct {
	// Format is json, csv, txt, yaml, or paste. Filename may be given
	// instead to infer it from the extension.
	Format   string `json:"format,omitempty" validate:"omitempty,oneof=json csv tsv txt yaml paste"`
	Filename string `json:"filename,omitempty"`
	Content  string `json:"content" validate:"required"`
}

type papersResponse struct {
	Papers []types.Paper `json:"papers"`
	Count  int           `json:"count"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	if s.deps.Analyzer == nil {
		s.fail(w, r, ai.ErrMissingCredential)
		return
	}
	var req analyzeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	cfg := s.deps.Defaults
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			s.fail(w, r, fmt.Errorf("%w: config: %v", errBadRequest, err))
			return
		}
	}

	op := func(ctx context.Context) (*types.AnalysisResult, error) {
		return s.deps.Analyzer.Analyze(ctx, req.Papers, req.Field, cfg)
	}
	var (
		result *types.AnalysisResult
		err    error
	)
	if sess := s.session(r); sess != nil {
		result, err = analyze.Run(r.Context(), sess, op)
	} else {
		result, err = op(r.Context())
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if req.Save {
		if entry, err := history.NewAnalysisEntry(req.Field, cfg.Algorithm, result); err != nil {
			s.logger.Warn().Err(err).Str("kind", "analysis").Msg("building history entry")
		} else {
			s.save(w, r, entry)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) trend(w http.ResponseWriter, r *http.Request) {
	if s.deps.Analyzer == nil {
		s.fail(w, r, ai.ErrMissingCredential)
		return
	}
	var req trendRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.deps.Analyzer.Forecast(r.Context(), req.Field, req.Corpus)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Save {
		if entry, err := history.NewTrendEntry(req.Field, result); err != nil {
			s.logger.Warn().Err(err).Str("kind", "trend").Msg("building history entry")
		} else {
			s.save(w, r, entry)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Translator == nil {
		s.fail(w, r, ai.ErrMissingCredential)
		return
	}
	var req translateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Translator.Translate(r.Context(), req.Text))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	if s.deps.Searcher == nil {
		s.fail(w, r, fmt.Errorf("search: %w", errUnavailable))
		return
	}
	q := r.URL.Query()
	offset, err1 := intParam(q.Get("offset"))
	pageSize, err2 := intParam(q.Get("pageSize"))
	if err := errors.Join(err1, err2); err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := s.deps.Searcher.SearchPapers(r.Context(), q.Get("q"), offset, pageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) papers(w http.ResponseWriter, r *http.Request) {
	var req papersRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	format := ingest.Format(req.Format)
	if format == "" && req.Filename != "" {
		f, err := ingest.FormatFromPath(req.Filename)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		format = f
	}
	if format == "" {
		format = ingest.FormatPaste
	}
	if format == "tsv" {
		format = ingest.FormatDelimited
	}

	papers, err := ingest.Parse(format, []byte(req.Content))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, papersResponse{Papers: papers, Count: len(papers)})
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.fail(w, r, fmt.Errorf("history: %w", errUnavailable))
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.deps.History.List(r.Context(), history.ListOptions{
		Kind:  history.Kind(r.URL.Query().Get("kind")),
		Limit: limit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.fail(w, r, fmt.Errorf("history: %w", errUnavailable))
		return
	}
	entry, err := s.deps.History.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.fail(w, r, fmt.Errorf("history: %w", errUnavailable))
		return
	}
	if err := s.deps.History.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// save stores entry when history is enabled. A failure is logged but
// does not fail the request: the result is still returned.
func (s *Server) save(w http.ResponseWriter, r *http.Request, entry history.Entry) {
	if s.deps.History == nil {
		return
	}
	saved, err := s.deps.History.Save(r.Context(), entry)
	if err != nil {
		s.logger.Warn().Err(err).Msg("saving history entry")
		return
	}
	w.Header().Set(historyIDHeader, saved.ID)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body over %d bytes", invoke.ErrPayloadTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", errBadRequest, v)
	}
	return n, nil
}

// fail writes err with the status its class maps to.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	ev := s.logger.Warn()
	if status >= 500 {
		ev = s.logger.Error()
	}
	ev.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, invoke.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, invoke.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, analyze.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ai.ErrMissingCredential), errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, normalize.ErrEmptyResponse), errors.Is(err, normalize.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, errBadRequest),
		errors.Is(err, analyze.ErrInvalidInput),
		errors.Is(err, ingest.ErrNoPapers),
		errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, search.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
