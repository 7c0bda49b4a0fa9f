// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/research-radar/internal/invoke"
)

const namespace = "research_radar"

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	aiCalls             *prometheus.CounterVec
	aiDuration          *prometheus.HistogramVec
	retries             *prometheus.CounterVec
	translationLookups  *prometheus.CounterVec
	translationOutcomes *prometheus.CounterVec
	searchRequests      *prometheus.CounterVec
	papersFetched       prometheus.Counter
	supersededResults   prometheus.Counter
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		aiCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_calls_total",
			Help:      "Generative AI calls by provider, task, and outcome.",
		}, []string{"provider", "task", "outcome"}),
		aiDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_call_duration_seconds",
			Help:      "Latency of generative AI calls.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"provider", "task"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_retries_total",
			Help:      "Backoff retries of generative AI calls by task.",
		}, []string{"task"}),
		translationLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_cache_lookups_total",
			Help:      "Translation cache lookups by result.",
		}, []string{"result"}),
		translationOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Translation attempts by outcome.",
		}, []string{"outcome"}),
		searchRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Bibliographic search requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		papersFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_fetched_total",
			Help:      "Paper records parsed from the bibliographic service.",
		}),
		supersededResults: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "superseded_results_total",
			Help:      "Analysis results discarded because a newer request started.",
		}),
	}
}

// ObserveAICall records one generative call.
func (m *Metrics) ObserveAICall(provider, task string, elapsed time.Duration, err error) {
	m.aiCalls.WithLabelValues(provider, task, outcome(err)).Inc()
	m.aiDuration.WithLabelValues(provider, task).Observe(elapsed.Seconds())
}

// ObserveRetry records one backoff retry.
func (m *Metrics) ObserveRetry(task string) {
	m.retries.WithLabelValues(task).Inc()
}

// TranslationLookup records a translation cache hit or miss.
func (m *Metrics) TranslationLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.translationLookups.WithLabelValues(result).Inc()
}

// TranslationOutcome records how a translation attempt ended.
func (m *Metrics) TranslationOutcome(o string) {
	m.translationOutcomes.WithLabelValues(o).Inc()
}

// ObserveSearch records one bibliographic request.
func (m *Metrics) ObserveSearch(operation string, err error) {
	m.searchRequests.WithLabelValues(operation, outcome(err)).Inc()
}

// PapersFetched adds n parsed records.
func (m *Metrics) PapersFetched(n int) {
	m.papersFetched.Add(float64(n))
}

// ResultSuperseded records a discarded stale result.
func (m *Metrics) ResultSuperseded() {
	m.supersededResults.Inc()
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	fatal := invoke.Classify(err)
	switch {
	case errors.Is(fatal, invoke.ErrQuotaExceeded):
		return "quota"
	case errors.Is(fatal, invoke.ErrPayloadTooLarge):
		return "payload_too_large"
	}
	return "error"
}
