// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-radar/internal/analyze"
	"github.com/pdiddy/research-radar/internal/history"
	"github.com/pdiddy/research-radar/internal/invoke"
	"github.com/pdiddy/research-radar/internal/normalize"
	"github.com/pdiddy/research-radar/internal/search"
	"github.com/pdiddy/research-radar/internal/translate"
	"github.com/pdiddy/research-radar/pkg/types"
)

type fakeAnalyzer struct {
	mu      sync.Mutex
	err     error
	novelty float64
	gotCfg  types.AnalysisConfig
	block   chan struct{}
	started chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, papers []types.Paper, field string, cfg types.AnalysisConfig) (*types.AnalysisResult, error) {
	f.mu.Lock()
	f.gotCfg = cfg
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	var topics []types.TopicCluster
	if f.novelty != 0 {
		topics = []types.TopicCluster{{ID: "t1", Name: "unscored", Novelty: f.novelty}}
	}
	return &types.AnalysisResult{
		Topics:              topics,
		Summary:             "summary of " + field,
		TotalPapersAnalyzed: len(papers),
		ModeUsed:            cfg.Algorithm.Label(),
	}, nil
}

func (f *fakeAnalyzer) Forecast(_ context.Context, field, corpus string) (*types.TrendAnalysisResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.TrendAnalysisResult{TrendJudgment: field, DeepDive: corpus, AbstractSection: "abs"}, nil
}

type fakeTranslator struct{}

func (fakeTranslator) Translate(_ context.Context, text string) translate.Result {
	return translate.Result{Text: "译:" + text, Outcome: translate.Translated}
}

type fakeSearcher struct {
	query        string
	offset, size int
}

func (f *fakeSearcher) SearchPapers(_ context.Context, query string, offset, pageSize int) (search.Page, error) {
	f.query, f.offset, f.size = query, offset, pageSize
	if strings.TrimSpace(query) == "" {
		return search.Page{}, search.ErrEmptyQuery
	}
	return search.Page{Query: query, Total: 1, Offset: offset, Papers: []types.Paper{{ID: "1", Title: "T"}}}, nil
}

func newTestServer(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.NewRegistry()
	}
	if deps.Defaults == (types.AnalysisConfig{}) {
		deps.Defaults = types.DefaultAnalysisConfig()
	}
	return New(types.ServerConfig{MaxBodyBytes: 1 << 16}, deps, zerolog.Nop()).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, Dependencies{Analyzer: &fakeAnalyzer{}})
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ai":true`)
	assert.Contains(t, rec.Body.String(), `"search":false`)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := newTestServer(t, Dependencies{Gatherer: reg})
	rec := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_total 1")
}

func TestAnalyzeMergesConfig(t *testing.T) {
	fa := &fakeAnalyzer{}
	h := newTestServer(t, Dependencies{Analyzer: fa})

	rec := do(t, h, http.MethodPost, "/api/analyze", map[string]any{
		"papers": []types.Paper{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}},
		"field":  "robotics",
		"config": map[string]any{"algorithm": "strict", "maxPapers": 50},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result types.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "summary of robotics", result.Summary)
	assert.Equal(t, 2, result.TotalPapersAnalyzed)
	assert.Equal(t, types.ModeStrict, fa.gotCfg.Algorithm)
	assert.Equal(t, 50, fa.gotCfg.MaxPapers)
	assert.Equal(t, 0.7, fa.gotCfg.Depth)
}

func TestAnalyzeErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("analysis request: %w", invoke.ErrQuotaExceeded), http.StatusTooManyRequests},
		{fmt.Errorf("analysis request: %w", invoke.ErrPayloadTooLarge), http.StatusRequestEntityTooLarge},
		{normalize.ErrMalformedResponse, http.StatusBadGateway},
		{normalize.ErrEmptyResponse, http.StatusBadGateway},
		{fmt.Errorf("%w: no papers", analyze.ErrInvalidInput), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := newTestServer(t, Dependencies{Analyzer: &fakeAnalyzer{err: tt.err}})
			rec := do(t, h, http.MethodPost, "/api/analyze", map[string]any{"papers": []types.Paper{{ID: "1", Title: "A"}}})
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestAnalyzeWithoutCredential(t *testing.T) {
	h := newTestServer(t, Dependencies{})
	rec := do(t, h, http.MethodPost, "/api/analyze", map[string]any{})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/translate", map[string]any{"text": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyzeRejectsBadJSONAndLargeBodies(t *testing.T) {
	h := newTestServer(t, Dependencies{Analyzer: &fakeAnalyzer{}})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := map[string]any{"field": strings.Repeat("x", 1<<17)}
	rec = do(t, h, http.MethodPost, "/api/analyze", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyzeSupersededByNewerRequest(t *testing.T) {
	fa := &fakeAnalyzer{block: make(chan struct{}), started: make(chan struct{})}
	superseded := 0
	h := newTestServer(t, Dependencies{Analyzer: fa, OnSuperseded: func() { superseded++ }})
	body := map[string]any{"papers": []types.Paper{{ID: "1", Title: "A"}}}

	first := make(chan int, 1)
	go func() {
		rec := do(t, h, http.MethodPost, "/api/analyze", body, clientIDHeader, "tab-1")
		first <- rec.Code
	}()
	<-fa.started

	fa.mu.Lock()
	release := fa.block
	fa.block, fa.started = nil, nil
	fa.mu.Unlock()

	rec := do(t, h, http.MethodPost, "/api/analyze", body, clientIDHeader, "tab-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	close(release)
	assert.Equal(t, http.StatusConflict, <-first)
	assert.Equal(t, 1, superseded)
}

func TestTrendAndHistory(t *testing.T) {
	store, err := history.Open(types.HistoryConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := newTestServer(t, Dependencies{Analyzer: &fakeAnalyzer{}, History: store})

	rec := do(t, h, http.MethodPost, "/api/trend", map[string]any{"field": "AI", "corpus": "agents", "save": true})
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(historyIDHeader)
	require.NotEmpty(t, id)

	rec = do(t, h, http.MethodGet, "/api/history?kind=trend", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []history.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	rec = do(t, h, http.MethodGet, "/api/history/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"trendJudgment":"AI"`)

	rec = do(t, h, http.MethodDelete, "/api/history/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/history/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnencodableResultIsLoggedNotSaved(t *testing.T) {
	store, err := history.Open(types.HistoryConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var logs bytes.Buffer
	deps := Dependencies{
		Analyzer: &fakeAnalyzer{novelty: math.NaN()},
		History:  store,
		Gatherer: prometheus.NewRegistry(),
		Defaults: types.DefaultAnalysisConfig(),
	}
	h := New(types.ServerConfig{MaxBodyBytes: 1 << 16}, deps, zerolog.New(&logs)).Handler()

	rec := do(t, h, http.MethodPost, "/api/analyze", map[string]any{"papers": []types.Paper{{ID: "1", Title: "A"}}, "save": true})
	assert.Empty(t, rec.Header().Get(historyIDHeader))
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "building history entry")
	assert.Contains(t, logs.String(), `"kind":"analysis"`)

	entries, err := store.List(context.Background(), history.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRequestValidation(t *testing.T) {
	h := newTestServer(t, Dependencies{Analyzer: &fakeAnalyzer{}})

	tests := []struct {
		name string
		path string
		body map[string]any
	}{
		{"analyze without papers", "/api/analyze", map[string]any{"field": "AI"}},
		{"analyze with empty papers", "/api/analyze", map[string]any{"papers": []types.Paper{}}},
		{"trend without corpus", "/api/trend", map[string]any{"field": "AI"}},
		{"trend without field", "/api/trend", map[string]any{"corpus": "agents"}},
		{"papers without content", "/api/papers", map[string]any{"format": "csv"}},
		{"papers with unknown format", "/api/papers", map[string]any{"format": "docx", "content": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestHistoryDisabled(t *testing.T) {
	h := newTestServer(t, Dependencies{})
	rec := do(t, h, http.MethodGet, "/api/history", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTranslate(t *testing.T) {
	h := newTestServer(t, Dependencies{Translator: fakeTranslator{}})
	rec := do(t, h, http.MethodPost, "/api/translate", map[string]any{"text": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"translated"`)
	assert.Contains(t, rec.Body.String(), "译:hello")
}

func TestSearch(t *testing.T) {
	fs := &fakeSearcher{}
	h := newTestServer(t, Dependencies{Searcher: fs})

	rec := do(t, h, http.MethodGet, "/api/search?q=crispr&offset=20&pageSize=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "crispr", fs.query)
	assert.Equal(t, 20, fs.offset)
	assert.Equal(t, 10, fs.size)

	rec = do(t, h, http.MethodGet, "/api/search?q=", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/search?q=x&offset=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPapers(t *testing.T) {
	h := newTestServer(t, Dependencies{})

	rec := do(t, h, http.MethodPost, "/api/papers", map[string]any{
		"filename": "export.csv",
		"content":  "Title,Year\nA,2020\nB,2021\n",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp papersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 2021, resp.Papers[1].Year)

	rec = do(t, h, http.MethodPost, "/api/papers", map[string]any{"content": "first title\nsecond title"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.SourcePaste, resp.Papers[0].Source)

	rec = do(t, h, http.MethodPost, "/api/papers", map[string]any{"filename": "paper.pdf", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/papers", map[string]any{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
