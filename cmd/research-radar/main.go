// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-radar CLI.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-radar/internal/observability"
	"github.com/pdiddy/research-radar/internal/secrets"
	"github.com/pdiddy/research-radar/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the effective configuration, loaded before every command.
	cfg = types.DefaultConfig()

	logger = zerolog.Nop()

	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets = secrets.Secrets{}

	// configReadErr is the result of reading the config file, reported
	// once the logger exists.
	configReadErr error
)

// rootCmd is the base command for the research-radar CLI.
var rootCmd = &cobra.Command{
	Use:   "research-radar",
	Short: "Map research fronts in a set of papers with a generative AI",
	Long: `research-radar gathers academic papers from PubMed, files, or pasted
titles and asks a generative AI service to cluster them into topics, score
novelty and impact, and surface emerging research fronts.

Stages are subcommands: search, import, analyze, trend, translate, history.
serve exposes the same operations over HTTP so browsers never hold the AI key.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = loaded
		logger = observability.NewLogger(cfg.Logging, os.Stderr)
		reportConfigFile()

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		applyCredentials(&cfg, loadedSecrets)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./research-radar.yaml or ~/.config/research-radar/research-radar.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-radar")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-radar"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_RADAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configReadErr = viper.ReadInConfig()
}

func reportConfigFile() {
	var notFound viper.ConfigFileNotFoundError
	switch {
	case configReadErr == nil:
		logger.Debug().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	case errors.As(configReadErr, &notFound):
	default:
		logger.Warn().Err(configReadErr).Msg("config file not loaded")
	}
}

// applyCredentials fills API keys missing from the config from the
// secrets directory or environment.
func applyCredentials(c *types.Config, s secrets.Secrets) {
	if c.AI.APIKey == "" {
		switch c.AI.Provider {
		case types.ProviderOpenAI:
			c.AI.APIKey = s.Get(secrets.OpenAIAPIKey)
		default:
			c.AI.APIKey = s.Get(secrets.GeminiAPIKey)
		}
	}
	if c.Search.APIKey == "" {
		c.Search.APIKey = s.Get(secrets.NCBIAPIKey)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
