// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package translate provides best-effort translation of short text spans
// with a memoizing cache in front of the AI service.
package translate

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-radar/internal/invoke"
	"github.com/pdiddy/research-radar/internal/prompt"
)

// Outcome says why a Result has the text it has.
type Outcome int

const (
	// Translated means Text holds a translation.
	Translated Outcome = iota

	// SkippedShort means the input was too short to translate. Text is empty.
	SkippedShort

	// Failed means the AI call failed. Text is empty.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Translated:
		return "translated"
	case SkippedShort:
		return "skipped_short"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the outcome of one translation.
type Result struct {
	Text    string  `json:"text"`
	Outcome Outcome `json:"outcome"`

	// Cached reports whether the result was served from the store.
	Cached bool `json:"cached"`
}

// Generator performs one generative call. ai.Backend satisfies it.
type Generator interface {
	Generate(ctx context.Context, req prompt.Request) (string, error)
}

// Observer receives cache and call outcomes. observability.Metrics
// satisfies it.
type Observer interface {
	TranslationLookup(hit bool)
	TranslationOutcome(outcome string)
}

// Translator translates text spans, caching every attempted translation
// including failures.
type Translator struct {
	gen      Generator
	store    Store
	target   string
	policy   invoke.Policy
	logger   zerolog.Logger
	observer Observer
}

// Option configures a Translator.
type Option func(*Translator)

// WithPolicy overrides the retry policy (default: one retry).
func WithPolicy(p invoke.Policy) Option {
	return func(t *Translator) { t.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Translator) { t.logger = l }
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(t *Translator) { t.observer = o }
}

// New returns a Translator that writes into store and translates into
// target. A nil store gets a fresh MemoryStore.
func New(gen Generator, store Store, target string, opts ...Option) *Translator {
	if store == nil {
		store = NewMemoryStore()
	}
	t := &Translator{
		gen:    gen,
		store:  store,
		target: target,
		policy: invoke.TranslationPolicy(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate returns the translation of text. It never returns an error:
// short inputs yield SkippedShort without touching the cache or the AI
// service, and failures are cached and reported as Failed with empty text.
// A failure caused by ctx ending is reported but not cached.
func (t *Translator) Translate(ctx context.Context, text string) Result {
	req, ok := prompt.BuildTranslation(text, t.target)
	if !ok {
		t.outcome(SkippedShort)
		return Result{Outcome: SkippedShort}
	}

	key := Key(strings.TrimSpace(text))
	if r, ok := t.store.Get(key); ok {
		t.lookup(true)
		r.Cached = true
		return r
	}
	t.lookup(false)

	out, err := invoke.Do(ctx, t.policy, func(ctx context.Context) (string, error) {
		return t.gen.Generate(ctx, req)
	})

	r := Result{Text: strings.TrimSpace(out), Outcome: Translated}
	if err != nil {
		t.logger.Debug().Err(err).Str("key", key).Msg("translation failed")
		r = Result{Outcome: Failed}
		if ctx.Err() != nil {
			// The caller gave up; the text itself may translate fine.
			t.outcome(r.Outcome)
			return r
		}
	}
	t.store.Set(key, r)
	t.outcome(r.Outcome)
	return r
}

func (t *Translator) lookup(hit bool) {
	if t.observer != nil {
		t.observer.TranslationLookup(hit)
	}
}

func (t *Translator) outcome(o Outcome) {
	if t.observer != nil {
		t.observer.TranslationOutcome(o.String())
	}
}
