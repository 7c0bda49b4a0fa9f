// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/pdiddy/research-radar/internal/ai"
	"github.com/pdiddy/research-radar/internal/observability"
	"github.com/pdiddy/research-radar/internal/server"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Serve runs an HTTP server that proxies analysis, trend, and translation
requests to the AI service so the API key stays on the server. It also
serves PubMed search, paper-list parsing, saved history, /healthz, and
Prometheus /metrics.

Without an AI key the server still starts; the AI endpoints answer 503.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("address", "", "listen address (overrides server.address)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		cfg.Server.Address = addr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	deps := server.Dependencies{
		Searcher:     newSearchClient(metrics),
		Gatherer:     reg,
		Defaults:     cfg.Analysis.AnalysisConfig,
		OnSuperseded: metrics.ResultSuperseded,
	}

	backend, err := newBackend(ctx, metrics)
	switch {
	case errors.Is(err, ai.ErrMissingCredential):
		logger.Warn().Err(err).Msg("AI endpoints disabled")
	case err != nil:
		return err
	default:
		deps.Analyzer = newService(backend, metrics)
		deps.Translator = newTranslator(backend, metrics)
	}

	store, err := openHistory()
	if err != nil {
		logger.Warn().Err(err).Msg("history disabled")
	} else {
		defer store.Close()
		deps.History = store
	}

	srv := server.New(cfg.Server, deps, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
