// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-radar/internal/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate [text...]",
	Short: "Translate a span of text",
	Long: `Translate sends text to the AI service and prints the translation into
the configured target language (translation.target_language, default
Chinese). Text is taken from the arguments, or from stdin when none are
given. Spans shorter than two characters are not translated.`,
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().String("to", "", "target language (overrides translation.target_language)")

	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := readAllStdin()
		if err != nil {
			return err
		}
		text = string(data)
	}
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		cfg.Translation.TargetLanguage = to
	}

	backend, err := newBackend(cmd.Context(), nil)
	if err != nil {
		return err
	}

	r := newTranslator(backend, nil).Translate(cmd.Context(), text)
	switch r.Outcome {
	case translate.Translated:
		fmt.Fprintln(os.Stdout, r.Text)
	case translate.SkippedShort:
		fmt.Fprintln(os.Stderr, "Text too short to translate.")
	default:
		return fmt.Errorf("translation failed; rerun with --log-level debug for the AI error")
	}
	return nil
}
