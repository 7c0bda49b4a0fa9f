// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// FormatTable writes a page as a human-readable table to w.
func FormatTable(page Page, w io.Writer) {
	if len(page.Papers) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-10s  %-60s  %-20s  %-4s  %s\n",
		"#", "PMID", "Title", "Authors", "Year", "Journal")
	fmt.Fprintln(w, strings.Repeat("-", 130))

	for i, p := range page.Papers {
		year := ""
		if p.Year > 0 {
			year = fmt.Sprintf("%d", p.Year)
		}
		fmt.Fprintf(w, "%-4d  %-10s  %-60s  %-20s  %-4s  %s\n",
			page.Offset+i+1, p.ID, truncate(p.Title, 60), formatAuthors(p.Authors), year, truncate(p.Journal, 30))
	}

	fmt.Fprintf(w, "\nShowing %d-%d of %d results\n", page.Offset+1, page.Offset+len(page.Papers), page.Total)
}

// FormatJSON writes a page as indented JSON to w.
func FormatJSON(page Page, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(page)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}
