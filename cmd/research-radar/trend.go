// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-radar/internal/history"
	"github.com/pdiddy/research-radar/pkg/types"
)

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Write a trend forecast from free-form hotspot data",
	Long: `Trend sends hotspot data (keyword counts, conference notes, any text)
for a research field to the AI service and prints a three-part narrative:
a trend judgment, a deep dive, and an abstract-style summary.

The corpus is read from --corpus FILE, or from stdin when --corpus is
omitted.`,
	RunE: runTrend,
}

func init() {
	trendCmd.Flags().String("field", "", "research field (required)")
	trendCmd.Flags().String("corpus", "", "file holding the hotspot data (default: stdin)")
	trendCmd.Flags().Bool("json", false, "output the result as JSON")
	trendCmd.Flags().Bool("save", false, "save the result to history")
	_ = trendCmd.MarkFlagRequired("field")

	rootCmd.AddCommand(trendCmd)
}

func runTrend(cmd *cobra.Command, args []string) error {
	field, _ := cmd.Flags().GetString("field")
	corpusPath, _ := cmd.Flags().GetString("corpus")

	var (
		corpus []byte
		err    error
	)
	if corpusPath == "" || corpusPath == "-" {
		corpus, err = readAllStdin()
	} else {
		corpus, err = os.ReadFile(corpusPath)
	}
	if err != nil {
		return err
	}

	backend, err := newBackend(cmd.Context(), nil)
	if err != nil {
		return err
	}
	result, err := newService(backend, nil).Forecast(cmd.Context(), field, string(corpus))
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		entry, err := history.NewTrendEntry(field, result)
		if err != nil {
			return err
		}
		if err := saveEntry(cmd, entry); err != nil {
			return err
		}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeIndentedJSON(os.Stdout, result)
	}
	printTrend(os.Stdout, result)
	return nil
}

func printTrend(w io.Writer, r *types.TrendAnalysisResult) {
	fmt.Fprintf(w, "== Trend judgment ==\n%s\n\n", r.TrendJudgment)
	fmt.Fprintf(w, "== Deep dive ==\n%s\n\n", r.DeepDive)
	fmt.Fprintf(w, "== Abstract ==\n%s\n", r.AbstractSection)
}
