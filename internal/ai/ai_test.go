// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/pdiddy/research-radar/internal/invoke"
	"github.com/pdiddy/research-radar/internal/prompt"
	"github.com/pdiddy/research-radar/internal/shape"
	"github.com/pdiddy/research-radar/pkg/types"
)

func schemaRequest() prompt.Request {
	return prompt.BuildTrend("robotics", "soft grippers: 42\nsim2real: 17")
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), types.AIConfig{Provider: "bard", APIKey: "k"})
	assert.Error(t, err)
}

func TestNewMissingCredential(t *testing.T) {
	for _, p := range []types.AIProvider{types.ProviderGemini, types.ProviderOpenAI, ""} {
		_, err := New(context.Background(), types.AIConfig{Provider: p})
		assert.ErrorIs(t, err, ErrMissingCredential, "provider %q", p)
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: `{"trendJudgment":"up"}`},
			}},
		})
	}))
	defer ts.Close()

	b, err := New(context.Background(), types.AIConfig{Provider: types.ProviderOpenAI, APIKey: "test-key", BaseURL: ts.URL, Model: "gpt-test"})
	require.NoError(t, err)
	assert.Equal(t, "openai", b.Name())

	out, err := b.Generate(context.Background(), schemaRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"trendJudgment":"up"}`, out)

	assert.Equal(t, "gpt-test", body["model"])
	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "trend_response", schema["name"])
	props := schema["schema"].(map[string]any)["properties"].(map[string]any)
	assert.Contains(t, props, "deepDive")
}

func TestOpenAIPlainTextAndZeroTemperature(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "bonjour"}}},
		})
	}))
	defer ts.Close()

	b, err := NewOpenAI(types.AIConfig{APIKey: "k", BaseURL: ts.URL})
	require.NoError(t, err)

	out, err := b.Generate(context.Background(), prompt.Request{Task: prompt.TaskTranslation, Prompt: "hello", Temperature: 0})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", out)
	assert.NotContains(t, body, "response_format")
	assert.Contains(t, body, "temperature")
	assert.Less(t, body["temperature"].(float64), 0.001)
}

func TestOpenAIQuotaErrorIsClassified(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"Rate limit reached for requests","type":"requests"}}`)
	}))
	defer ts.Close()

	b, err := NewOpenAI(types.AIConfig{APIKey: "k", BaseURL: ts.URL})
	require.NoError(t, err)

	_, err = b.Generate(context.Background(), schemaRequest())
	require.Error(t, err)
	assert.ErrorIs(t, invoke.Classify(err), invoke.ErrQuotaExceeded)
}

func TestOpenAIStatusCodeWrapsSentinel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		io.WriteString(w, `{"error":{"message":"Request rejected","type":"invalid_request_error"}}`)
	}))
	defer ts.Close()

	b, err := NewOpenAI(types.AIConfig{APIKey: "k", BaseURL: ts.URL})
	require.NoError(t, err)

	_, err = b.Generate(context.Background(), schemaRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, invoke.ErrPayloadTooLarge)
	assert.True(t, invoke.IsFatal(invoke.Classify(err)))
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "openai api 429", err: &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}, sentinel: invoke.ErrQuotaExceeded},
		{name: "openai request 413", err: &openai.RequestError{HTTPStatusCode: http.StatusRequestEntityTooLarge, Err: errors.New("too big")}, sentinel: invoke.ErrPayloadTooLarge},
		{name: "gemini 429", err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}, sentinel: invoke.ErrQuotaExceeded},
		{name: "gemini 413", err: genai.APIError{Code: http.StatusRequestEntityTooLarge}, sentinel: invoke.ErrPayloadTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyStatus(fmt.Errorf("call: %w", tt.err))
			assert.ErrorIs(t, got, tt.sentinel)
		})
	}

	reset := errors.New("read tcp 192.168.1.7:54290->142.250.4.95:443: read: connection reset by peer")
	assert.Same(t, reset, classifyStatus(reset))
	unavailable := &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable}
	assert.False(t, invoke.IsFatal(classifyStatus(unavailable)))
}

func TestGeminiGenerate(t *testing.T) {
	var raw []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		raw, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"deepDive\":\"x\"}"}]}}]}`)
	}))
	defer ts.Close()

	b, err := New(context.Background(), types.AIConfig{Provider: types.ProviderGemini, APIKey: "test-key", BaseURL: ts.URL, Model: "gemini-test"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", b.Name())

	out, err := b.Generate(context.Background(), schemaRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"deepDive":"x"}`, out)
	assert.Contains(t, string(raw), "application/json")
	assert.Contains(t, string(raw), "abstractSection")
}

func TestGeminiQuotaErrorIsClassified(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer ts.Close()

	b, err := NewGemini(context.Background(), types.AIConfig{APIKey: "k", BaseURL: ts.URL})
	require.NoError(t, err)

	_, err = b.Generate(context.Background(), schemaRequest())
	require.Error(t, err)
	assert.ErrorIs(t, invoke.Classify(err), invoke.ErrQuotaExceeded)
}

func TestToGenaiSchema(t *testing.T) {
	req, err := prompt.BuildAnalysis(shapeless(), "x", types.AnalysisConfig{Algorithm: types.ModeStrict})
	require.NoError(t, err)
	s := toGenaiSchema(req.Schema)

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, req.Schema.Order, s.PropertyOrdering)
	topics := s.Properties["topics"]
	require.NotNil(t, topics)
	assert.Equal(t, genai.TypeArray, topics.Type)
	trend := topics.Items.Properties["trend"]
	assert.Equal(t, genai.TypeString, trend.Type)
	assert.Equal(t, "enum", trend.Format)
	assert.Equal(t, []string{"rising", "stable", "declining"}, trend.Enum)
	assert.Equal(t, genai.TypeInteger, s.Properties["noise_paper_count"].Type)
	assert.Nil(t, toGenaiSchema(nil))
}

type fakeBackend struct{ err error }

func (f fakeBackend) Name() string { return "fake" }

func (f fakeBackend) Generate(context.Context, prompt.Request) (string, error) {
	return "out", f.err
}

type callRecord struct {
	provider, task string
	err            error
}

type recordingObserver struct{ calls []callRecord }

func (r *recordingObserver) ObserveAICall(provider, task string, _ time.Duration, err error) {
	r.calls = append(r.calls, callRecord{provider: provider, task: task, err: err})
}

func TestInstrument(t *testing.T) {
	obs := &recordingObserver{}
	boom := errors.New("boom")

	ok := Instrument(fakeBackend{}, obs)
	bad := Instrument(fakeBackend{err: boom}, obs)

	_, err := ok.Generate(context.Background(), prompt.Request{Task: prompt.TaskAnalysis})
	require.NoError(t, err)
	_, err = bad.Generate(context.Background(), prompt.Request{Task: prompt.TaskTranslation})
	assert.ErrorIs(t, err, boom)

	require.Len(t, obs.calls, 2)
	assert.Equal(t, callRecord{provider: "fake", task: "analysis"}, obs.calls[0])
	assert.Equal(t, "translation", obs.calls[1].task)
	assert.ErrorIs(t, obs.calls[1].err, boom)
	assert.Equal(t, "fake", ok.Name())

	plain := fakeBackend{}
	assert.Equal(t, plain, Instrument(plain, nil))
}

func shapeless() shape.Payload {
	return shape.Shape([]types.Paper{{ID: "1", Title: "t", Year: 2020}}, 0)
}
