// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-radar/pkg/types"
)

const redacted = "<redacted>"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Show prints the configuration after merging defaults, the config file,
RESEARCH_RADAR_* environment variables, and flags. API keys are redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := cfg
		if shown.AI.APIKey != "" {
			shown.AI.APIKey = redacted
		}
		if shown.Search.APIKey != "" {
			shown.Search.APIKey = redacted
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(shown)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig merges defaults, the config file, and the environment into
// a types.Config. Defaults are registered key by key so that environment
// variables reach keys the config file does not mention.
func loadConfig(v *viper.Viper) (types.Config, error) {
	c := types.DefaultConfig()
	defaults, err := flattenConfig(c)
	if err != nil {
		return c, err
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding configuration: %w", err)
	}
	return c, nil
}

// flattenConfig returns c as dotted keys ("search.page_size") using the
// YAML field names, which match the mapstructure names.
func flattenConfig(c types.Config) (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding default configuration: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decoding default configuration: %w", err)
	}
	out := make(map[string]any)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, tree map[string]any, out map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}
