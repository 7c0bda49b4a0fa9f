// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/pdiddy/research-radar/internal/prompt"
	"github.com/pdiddy/research-radar/pkg/types"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiBackend calls the Gemini API with a native response schema.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini backend. cfg.BaseURL, when set, replaces the
// public endpoint.
func NewGemini(ctx context.Context, cfg types.AIConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingCredential)
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient(cfg),
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiBackend{client: client, model: model}, nil
}

// Name returns the backend identifier.
func (b *GeminiBackend) Name() string { return string(types.ProviderGemini) }

// Generate sends the prompt and returns the concatenated reply text.
func (b *GeminiBackend) Generate(ctx context.Context, req prompt.Request) (string, error) {
	temp := float32(req.Temperature)
	gc := &genai.GenerateContentConfig{Temperature: &temp}
	if req.Schema != nil {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseSchema = toGenaiSchema(req.Schema)
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(req.Prompt), gc)
	if err != nil {
		return "", classifyStatus(fmt.Errorf("gemini %s: %w", req.Task, err))
	}
	return resp.Text(), nil
}

var genaiTypes = map[prompt.Type]genai.Type{
	prompt.TypeObject:  genai.TypeObject,
	prompt.TypeArray:   genai.TypeArray,
	prompt.TypeString:  genai.TypeString,
	prompt.TypeNumber:  genai.TypeNumber,
	prompt.TypeInteger: genai.TypeInteger,
}

// toGenaiSchema converts a provider-neutral schema to the Gemini form,
// keeping property order.
func toGenaiSchema(s *prompt.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:             genaiTypes[s.Type],
		Description:      s.Description,
		Enum:             s.Enum,
		Items:            toGenaiSchema(s.Items),
		Required:         s.Required,
		PropertyOrdering: s.Order,
	}
	if len(s.Enum) > 0 {
		out.Format = "enum"
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGenaiSchema(p)
		}
	}
	return out
}
