// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-radar/internal/ai"
	"github.com/pdiddy/research-radar/internal/analyze"
	"github.com/pdiddy/research-radar/internal/history"
	"github.com/pdiddy/research-radar/internal/ingest"
	"github.com/pdiddy/research-radar/internal/invoke"
	"github.com/pdiddy/research-radar/internal/observability"
	"github.com/pdiddy/research-radar/internal/search"
	"github.com/pdiddy/research-radar/internal/translate"
	"github.com/pdiddy/research-radar/pkg/types"
)

// newBackend builds the configured AI backend, reporting calls to m when
// it is non-nil.
func newBackend(ctx context.Context, m *observability.Metrics) (ai.Backend, error) {
	b, err := ai.New(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}
	if m != nil {
		b = ai.Instrument(b, m)
	}
	return b, nil
}

func analysisPolicy() invoke.Policy {
	p := invoke.AnalysisPolicy()
	if cfg.AI.MaxRetries >= 0 {
		p.MaxRetries = cfg.AI.MaxRetries
	}
	if cfg.AI.RetryDelay > 0 {
		p.Delay = cfg.AI.RetryDelay
	}
	return p
}

func newService(b ai.Backend, m *observability.Metrics) *analyze.Service {
	opts := []analyze.Option{
		analyze.WithPolicy(analysisPolicy()),
		analyze.WithLogger(logger),
		analyze.WithPaperIDValidation(cfg.Analysis.ValidatePaperIDs),
	}
	if m != nil {
		opts = append(opts, analyze.WithRetryObserver(m))
	}
	return analyze.NewService(b, opts...)
}

func newTranslator(b ai.Backend, m *observability.Metrics) *translate.Translator {
	p := invoke.TranslationPolicy()
	if cfg.Translation.RetryDelay > 0 {
		p.Delay = cfg.Translation.RetryDelay
	}
	opts := []translate.Option{
		translate.WithPolicy(p),
		translate.WithLogger(logger),
	}
	if m != nil {
		opts = append(opts, translate.WithObserver(m))
	}
	return translate.New(b, translate.NewMemoryStore(), cfg.Translation.TargetLanguage, opts...)
}

func newSearchClient(m *observability.Metrics) *search.Client {
	opts := []search.Option{search.WithLogger(logger)}
	if m != nil {
		opts = append(opts, search.WithObserver(m))
	}
	return search.NewClient(cfg.Search, opts...)
}

func openHistory() (*history.Store, error) {
	return history.Open(cfg.History)
}

// loadPapers reads papers from --input (a file, or "-" for pasted titles
// on stdin) or from a PubMed --query.
func loadPapers(cmd *cobra.Command) ([]types.Paper, error) {
	input, _ := cmd.Flags().GetString("input")
	query, _ := cmd.Flags().GetString("query")

	switch {
	case input != "" && query != "":
		return nil, fmt.Errorf("use either --input or --query, not both")
	case input == "-":
		data, err := readAllStdin()
		if err != nil {
			return nil, err
		}
		return ingest.Parse(ingest.FormatPaste, data)
	case input != "":
		return ingest.LoadFile(input)
	case query != "":
		count, _ := cmd.Flags().GetInt("count")
		page, err := newSearchClient(nil).SearchPapers(cmd.Context(), query, 0, count)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "Fetched %d of %d PubMed results for %q\n", len(page.Papers), page.Total, query)
		if len(page.Papers) == 0 {
			return nil, ingest.ErrNoPapers
		}
		return page.Papers, nil
	}
	return nil, fmt.Errorf("provide papers with --input FILE, --input - (stdin), or --query")
}

func readAllStdin() ([]byte, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return data, nil
}
