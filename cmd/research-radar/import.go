// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-radar/internal/ingest"
	"github.com/pdiddy/research-radar/internal/search"
	"github.com/pdiddy/research-radar/pkg/types"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Parse a paper list and show what would be analyzed",
	Long: `Import reads a paper list the way analyze --input does and prints the
papers it found. JSON arrays, CSV/TSV tables with tolerant headers,
saved-search YAML, and plain text with one title per line are accepted;
"-" reads pasted titles from stdin.

Use --save to convert the list into a saved-search YAML file.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().Bool("json", false, "output papers as JSON")
	importCmd.Flags().String("save", "", "write the papers to a saved-search YAML file")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	var (
		papers []types.Paper
		err    error
	)
	if args[0] == "-" {
		var data []byte
		if data, err = readAllStdin(); err == nil {
			papers, err = ingest.Parse(ingest.FormatPaste, data)
		}
	} else {
		papers, err = ingest.LoadFile(args[0])
	}
	if err != nil {
		return err
	}

	page := search.Page{Query: args[0], Total: len(papers), Papers: papers}
	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := search.WriteSavedSearch(path, page); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d papers to %s\n", len(papers), path)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeIndentedJSON(os.Stdout, papers)
	}
	search.FormatTable(page, os.Stdout)
	return nil
}
