// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-radar/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search PubMed for candidate papers",
	Long: `Search queries PubMed through the NCBI E-utilities (esearch, then efetch)
and prints one page of results. Use --offset to page through them and
--save to write the page as a saved-search YAML file that analyze and
import can read back.

An NCBI API key in .secrets/ncbi-api-key or NCBI_API_KEY raises the
request rate limit from 3 to 10 per second.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("offset", 0, "index of the first result")
	searchCmd.Flags().Int("page-size", 0, "results per page (default search.page_size)")
	searchCmd.Flags().String("format", "table", "output format: table, json, or csl")
	searchCmd.Flags().String("save", "", "write the page to a saved-search YAML file")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	offset, _ := cmd.Flags().GetInt("offset")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	format, _ := cmd.Flags().GetString("format")

	page, err := newSearchClient(nil).SearchPapers(cmd.Context(), query, offset, pageSize)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := search.WriteSavedSearch(path, page); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d papers to %s\n", len(page.Papers), path)
	}

	switch format {
	case "table", "":
		search.FormatTable(page, os.Stdout)
		return nil
	case "json":
		return search.FormatJSON(page, os.Stdout)
	case "csl":
		return search.FormatCSL(page.Papers, os.Stdout)
	}
	return fmt.Errorf("unsupported format %q: use table, json, or csl", format)
}
