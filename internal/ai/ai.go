// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ai calls generative AI services. A Backend turns a prompt.Request
// into the raw reply text; parsing and retry live elsewhere.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/pdiddy/research-radar/internal/invoke"
	"github.com/pdiddy/research-radar/internal/prompt"
	"github.com/pdiddy/research-radar/pkg/types"
)

// ErrMissingCredential reports that no API key was configured for the
// selected provider. It is fatal.
var ErrMissingCredential = errors.New("missing AI API key: add it to .secrets/ or set the provider's API key environment variable")

// Backend performs one generative call and returns the reply text. A JSON
// reply is expected when req.Schema is set, plain text otherwise.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req prompt.Request) (string, error)
}

// New returns the backend selected by cfg.Provider (default gemini).
func New(ctx context.Context, cfg types.AIConfig) (Backend, error) {
	switch cfg.Provider {
	case types.ProviderGemini, "":
		return NewGemini(ctx, cfg)
	case types.ProviderOpenAI:
		return NewOpenAI(cfg)
	}
	return nil, fmt.Errorf("unknown AI provider %q (want gemini or openai)", cfg.Provider)
}

func httpClient(cfg types.AIConfig) *http.Client {
	if cfg.Timeout <= 0 {
		return http.DefaultClient
	}
	return &http.Client{Timeout: cfg.Timeout}
}

// Observer receives one event per generative call.
type Observer interface {
	ObserveAICall(provider, task string, elapsed time.Duration, err error)
}

type instrumented struct {
	Backend
	obs Observer
}

// Instrument wraps b so that every call is reported to obs.
func Instrument(b Backend, obs Observer) Backend {
	if obs == nil {
		return b
	}
	return &instrumented{Backend: b, obs: obs}
}

func (i *instrumented) Generate(ctx context.Context, req prompt.Request) (string, error) {
	start := time.Now()
	out, err := i.Backend.Generate(ctx, req)
	i.obs.ObserveAICall(i.Backend.Name(), string(req.Task), time.Since(start), err)
	return out, err
}

// classifyStatus wraps err with the matching fatal sentinel when the SDK
// reports a 429 or 413 status. Other errors pass through unchanged.
func classifyStatus(err error) error {
	switch statusCode(err) {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", invoke.ErrQuotaExceeded, err)
	case http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %w", invoke.ErrPayloadTooLarge, err)
	}
	return err
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	var gPtr *genai.APIError
	if errors.As(err, &gPtr) {
		return gPtr.Code
	}
	return 0
}
