// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-radar/internal/history"
	"github.com/pdiddy/research-radar/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Cluster papers into topics and surface emerging research fronts",
	Long: `Analyze sends a set of papers to the AI service and prints the topic
clusters it finds, with novelty and impact scores, year-by-year trend data,
and emerging topics.

Papers come from a file (--input papers.csv), pasted titles on stdin
(--input -), or a PubMed query (--query). The analysis mode is one of
consultant, standard, or strict; strict is deterministic and filters noise.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringP("input", "i", "", "paper file (.json, .csv, .tsv, .txt, .yaml) or - for pasted titles on stdin")
	analyzeCmd.Flags().StringP("query", "q", "", "PubMed query to fetch papers from")
	analyzeCmd.Flags().Int("count", 100, "number of PubMed results to fetch with --query")
	analyzeCmd.Flags().String("field", "", "research field the papers belong to")
	analyzeCmd.Flags().String("mode", "", "analysis mode: consultant, standard, or strict")
	analyzeCmd.Flags().Float64("creativity", 0, "creativity in [0,1]")
	analyzeCmd.Flags().Float64("depth", 0, "depth in [0,1]")
	analyzeCmd.Flags().String("focus", "", "focus: broad, balanced, or specific")
	analyzeCmd.Flags().Int("max-papers", 0, "maximum papers sent to the AI (0 or less = no cap)")
	analyzeCmd.Flags().Bool("json", false, "output the result as JSON")
	analyzeCmd.Flags().Bool("save", false, "save the result to history")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	acfg := analysisConfigFromFlags(cmd)
	if err := acfg.Validate(); err != nil {
		return err
	}

	papers, err := loadPapers(cmd)
	if err != nil {
		return err
	}

	backend, err := newBackend(cmd.Context(), nil)
	if err != nil {
		return err
	}

	field, _ := cmd.Flags().GetString("field")
	result, err := newService(backend, nil).Analyze(cmd.Context(), papers, field, acfg)
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		entry, err := history.NewAnalysisEntry(field, acfg.Algorithm, result)
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
	printAnalysis(os.Stdout, result)
	return nil
}

// analysisConfigFromFlags overlays the flags the user set on the
// configured analysis defaults.
func analysisConfigFromFlags(cmd *cobra.Command) types.AnalysisConfig {
	acfg := cfg.Analysis.AnalysisConfig
	flags := cmd.Flags()
	if flags.Changed("mode") {
		mode, _ := flags.GetString("mode")
		acfg.Algorithm = types.Mode(mode)
	}
	if flags.Changed("creativity") {
		acfg.Creativity, _ = flags.GetFloat64("creativity")
	}
	if flags.Changed("depth") {
		acfg.Depth, _ = flags.GetFloat64("depth")
	}
	if flags.Changed("focus") {
		focus, _ := flags.GetString("focus")
		acfg.Focus = types.Focus(focus)
	}
	if flags.Changed("max-papers") {
		acfg.MaxPapers, _ = flags.GetInt("max-papers")
	}
	return acfg
}

func saveEntry(cmd *cobra.Command, entry history.Entry) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	saved, err := store.Save(cmd.Context(), entry)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved to history as %s\n", saved.ID)
	return nil
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAnalysis(w io.Writer, r *types.AnalysisResult) {
	fmt.Fprintf(w, "%s\n", r.ModeUsed)
	fmt.Fprintf(w, "Papers analyzed: %d\n", r.TotalPapersAnalyzed)
	if r.NoiseCount != nil {
		fmt.Fprintf(w, "Filtered as noise: %d\n", *r.NoiseCount)
	}
	if r.UnknownPaperIDs > 0 {
		fmt.Fprintf(w, "Unknown paper ids dropped: %d\n", r.UnknownPaperIDs)
	}

	if r.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", r.Summary)
	}

	fmt.Fprintf(w, "\n%-3s  %-40s  %-9s  %7s  %6s  %6s\n", "#", "Topic", "Trend", "Novelty", "Impact", "Volume")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for i, t := range r.Topics {
		fmt.Fprintf(w, "%-3d  %-40s  %-9s  %7.2f  %6.2f  %6d\n",
			i+1, clip(t.Name, 40), t.Trend, t.Novelty, t.Impact, t.Volume)
	}

	if len(r.EmergingTopics) > 0 {
		fmt.Fprintln(w, "\nEmerging topics:")
		for _, e := range r.EmergingTopics {
			fmt.Fprintf(w, "  - %s (potential %.2f): %s\n", e.Name, e.PotentialScore, e.Reason)
		}
	}

	if len(r.Stopwords) > 0 {
		fmt.Fprintf(w, "\nIgnored terms: %s\n", strings.Join(r.Stopwords, ", "))
	}
	if r.Methodology != "" {
		fmt.Fprintf(w, "\nMethodology: %s\n", r.Methodology)
	}
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
