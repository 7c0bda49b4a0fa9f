// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze runs the analysis pipeline end to end: shape the
// papers, build the prompt, call the AI backend with retries, and
// normalize the reply.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-radar/internal/ai"
	"github.com/pdiddy/research-radar/internal/invoke"
	"github.com/pdiddy/research-radar/internal/normalize"
	"github.com/pdiddy/research-radar/internal/prompt"
	"github.com/pdiddy/research-radar/internal/shape"
	"github.com/pdiddy/research-radar/pkg/types"
)

// ErrInvalidInput reports a request that cannot be sent at all.
var ErrInvalidInput = errors.New("invalid analysis input")

// RetryObserver is told about every backoff retry.
type RetryObserver interface {
	ObserveRetry(task string)
}

// Service holds the backend and policies shared by every request.
type Service struct {
	backend     ai.Backend
	policy      invoke.Policy
	log         zerolog.Logger
	retries     RetryObserver
	validateIDs bool
	now         func() time.Time
	newID       func() string
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy replaces the retry policy for analysis and trend calls.
func WithPolicy(p invoke.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithRetryObserver reports retries to o.
func WithRetryObserver(o RetryObserver) Option {
	return func(s *Service) { s.retries = o }
}

// WithPaperIDValidation toggles dropping paper ids the AI invented.
func WithPaperIDValidation(on bool) Option {
	return func(s *Service) { s.validateIDs = on }
}

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator sets the generator for missing topic ids.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// NewService returns a Service calling backend. Paper id validation is on
// by default.
func NewService(backend ai.Backend, opts ...Option) *Service {
	s := &Service{
		backend:     backend,
		policy:      invoke.AnalysisPolicy(),
		log:         zerolog.Nop(),
		validateIDs: true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Analyze clusters papers into topics using the mode in cfg.
func (s *Service) Analyze(ctx context.Context, papers []types.Paper, field string, cfg types.AnalysisConfig) (*types.AnalysisResult, error) {
	if len(papers) == 0 {
		return nil, fmt.Errorf("%w: no papers to analyze", ErrInvalidInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	payload := shape.Shape(papers, cfg.MaxPapers)
	req, err := prompt.BuildAnalysis(payload, field, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	log := s.log.With().Str("mode", string(cfg.Algorithm)).Int("papers", payload.Count()).Logger()
	if payload.Truncated {
		log.Warn().Int("chars", shape.MaxPayloadChars).Msg("payload truncated at size ceiling")
	}
	log.Info().Bool("title_only", payload.TitleOnly).Float64("temperature", req.Temperature).Msg("sending analysis request")

	raw, err := s.generate(ctx, req, log)
	if err != nil {
		return nil, err
	}

	result, err := normalize.Analysis(raw, normalize.Options{
		Mode:             cfg.Algorithm,
		Papers:           payload.Papers,
		ValidatePaperIDs: s.validateIDs,
		Now:              s.now,
		NewID:            s.newID,
	})
	if err != nil {
		return nil, err
	}
	if result.UnknownPaperIDs > 0 {
		log.Warn().Int("dropped", result.UnknownPaperIDs).Msg("reply referenced unknown paper ids")
	}
	log.Info().Int("topics", len(result.Topics)).Int("emerging", len(result.EmergingTopics)).Msg("analysis complete")
	return result, nil
}

// Forecast produces the three-part trend narrative for a free-text corpus.
func (s *Service) Forecast(ctx context.Context, field, corpus string) (*types.TrendAnalysisResult, error) {
	if strings.TrimSpace(corpus) == "" {
		return nil, fmt.Errorf("%w: empty trend corpus", ErrInvalidInput)
	}
	req := prompt.BuildTrend(field, corpus)
	log := s.log.With().Str("task", string(req.Task)).Logger()
	log.Info().Msg("sending trend request")

	raw, err := s.generate(ctx, req, log)
	if err != nil {
		return nil, err
	}
	return normalize.Trend(raw)
}

func (s *Service) generate(ctx context.Context, req prompt.Request, log zerolog.Logger) (string, error) {
	p := s.policy
	inner := p.OnRetry
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("AI call failed, retrying")
		if s.retries != nil {
			s.retries.ObserveRetry(string(req.Task))
		}
		if inner != nil {
			inner(attempt, delay, err)
		}
	}

	raw, err := invoke.Do(ctx, p, func(ctx context.Context) (string, error) {
		return s.backend.Generate(ctx, req)
	})
	if err != nil {
		if invoke.IsFatal(err) {
			log.Error().Err(err).Msg("AI call failed fatally")
		}
		return "", fmt.Errorf("%s request: %w", req.Task, err)
	}
	return raw, nil
}
