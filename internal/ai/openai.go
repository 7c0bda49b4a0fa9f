// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"context"
	"fmt"
	"math"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/research-radar/internal/prompt"
	"github.com/pdiddy/research-radar/pkg/types"
)

// OpenAIBackend calls an OpenAI-compatible chat completions endpoint with
// a JSON-schema response format.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI backend. cfg.BaseURL, when set, points it at
// any compatible server.
func NewOpenAI(cfg types.AIConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingCredential)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = httpClient(cfg)

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIBackend{client: openai.NewClientWithConfig(oc), model: model}, nil
}

// Name returns the backend identifier.
func (b *OpenAIBackend) Name() string { return string(types.ProviderOpenAI) }

// Generate sends the prompt as a single user message.
func (b *OpenAIBackend) Generate(ctx context.Context, req prompt.Request) (string, error) {
	creq := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: temperature(req.Temperature),
	}
	if req.Schema != nil {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   string(req.Task) + "_response",
				Schema: req.Schema,
			},
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", classifyStatus(fmt.Errorf("openai %s: %w", req.Task, err))
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// temperature maps 0 to the smallest positive float32, because the client
// omits a zero temperature and the server then applies its default of 1.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
