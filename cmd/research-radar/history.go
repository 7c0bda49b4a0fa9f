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

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, show, delete, and export saved results",
	Long: `History manages the local log of analyses and trend forecasts saved with
--save. Only the newest history.max_entries results (default 20) are kept.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved results, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withHistory(func(store *history.Store) error {
			entries, err := store.List(cmd.Context(), history.ListOptions{Kind: history.Kind(kind), Limit: limit})
			if err != nil {
				return err
			}
			if asJSON {
				return writeIndentedJSON(os.Stdout, entries)
			}
			printHistory(os.Stdout, entries)
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a saved result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withHistory(func(store *history.Store) error {
			e, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeIndentedJSON(os.Stdout, e)
			}
			return printEntry(os.Stdout, e)
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a saved result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Deleted %s\n", args[0])
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved result",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Deleted %d entries\n", n)
			return nil
		})
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all saved results as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		return withHistory(func(store *history.Store) error {
			if output == "" || output == "-" {
				return store.ExportYAML(cmd.Context(), os.Stdout)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := store.ExportYAML(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Exported to %s\n", output)
			return nil
		})
	},
}

func withHistory(fn func(*history.Store) error) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func printHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No saved results.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-8s  %-30s  %-10s  %6s  %s\n", "ID", "Kind", "Field", "Mode", "Papers", "Saved")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, e := range entries {
		fmt.Fprintf(w, "%-36s  %-8s  %-30s  %-10s  %6d  %s\n",
			e.ID, e.Kind, clip(e.Field, 30), e.Mode, e.PaperCount, e.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}

// printEntry decodes the payload by kind and prints it the way the
// command that produced it would.
func printEntry(w io.Writer, e history.Entry) error {
	fmt.Fprintf(w, "%s %s, field %q, saved %s\n\n", e.Kind, e.ID, e.Field, e.CreatedAt.Local().Format("2006-01-02 15:04"))
	switch e.Kind {
	case history.KindAnalysis:
		var r types.AnalysisResult
		if err := json.Unmarshal(e.Payload, &r); err != nil {
			return fmt.Errorf("decoding %s: %w", e.ID, err)
		}
		printAnalysis(w, &r)
	case history.KindTrend:
		var r types.TrendAnalysisResult
		if err := json.Unmarshal(e.Payload, &r); err != nil {
			return fmt.Errorf("decoding %s: %w", e.ID, err)
		}
		printTrend(w, &r)
	default:
		_, err := w.Write(append(e.Payload, '\n'))
		return err
	}
	return nil
}

func init() {
	historyListCmd.Flags().String("kind", "", "filter by kind: analysis or trend")
	historyListCmd.Flags().Int("limit", 0, "maximum entries (0 = all)")
	historyListCmd.Flags().Bool("json", false, "output entries as JSON")
	historyShowCmd.Flags().Bool("json", false, "output the entry as JSON")
	historyExportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
