// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest parses paper lists from files and pasted text into
// normalized records. Column and field names are matched loosely so
// exports from common reference tools load without editing.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/research-radar/internal/search"
	"github.com/pdiddy/research-radar/pkg/types"
)

// ErrUnsupportedFormat reports a file type with no parser.
var ErrUnsupportedFormat = errors.New("unsupported file format (want .json, .csv, .tsv, .txt, or .yaml)")

// ErrNoPapers reports input that yielded no usable records.
var ErrNoPapers = errors.New("no papers found in input")

// Format names an input format.
type Format string

const (
	FormatJSON      Format = "json"
	FormatDelimited Format = "csv"
	FormatText      Format = "txt"
	FormatYAML      Format = "yaml"
	FormatPaste     Format = "paste"
)

// FormatFromPath maps a file extension to a Format.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv", ".tsv":
		return FormatDelimited, nil
	case ".txt":
		return FormatText, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// LoadFile reads and parses the paper list at path.
func LoadFile(path string) ([]types.Paper, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	papers, err := Parse(format, data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return papers, nil
}

// Parse decodes data in the given format. A text file is treated as a
// delimited table when its first line names a title column, otherwise as
// one title per line.
func Parse(format Format, data []byte) ([]types.Paper, error) {
	var (
		papers []types.Paper
		err    error
	)
	switch format {
	case FormatJSON:
		papers, err = ParseJSON(data)
	case FormatDelimited:
		papers, err = ParseDelimited(data)
	case FormatText:
		if looksDelimited(data) {
			papers, err = ParseDelimited(data)
		} else {
			papers = ParsePasted(string(data))
		}
	case FormatYAML:
		var ss *search.SavedSearch
		if ss, err = search.ParseSavedSearch(data); err == nil {
			papers = withIDs(ss.Papers, types.SourceFile)
		}
	case FormatPaste:
		papers = ParsePasted(string(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, ErrNoPapers
	}
	return papers, nil
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)

// ParsePasted treats every non-blank line as a paper title. Leading list
// markers ("- ", "3. ") are removed.
func ParsePasted(text string) []types.Paper {
	var papers []types.Paper
	for _, line := range strings.Split(text, "\n") {
		title := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if title == "" {
			continue
		}
		papers = append(papers, types.Paper{
			ID:      NewLocalID(),
			Title:   title,
			Authors: []string{},
			Source:  types.SourcePaste,
		})
	}
	return papers
}

// NewLocalID returns a collision-resistant id for a record without one.
var NewLocalID = func() string { return "local-" + uuid.NewString() }

// Field aliases, matched case-insensitively after trimming.
var aliases = map[string][]string{
	"id":       {"id", "pmid", "doi", "identifier", "accession number"},
	"title":    {"title", "article title", "document title"},
	"abstract": {"abstract", "summary"},
	"year":     {"year", "publication year", "pubyear", "date", "publication date"},
	"journal":  {"journal", "source", "venue", "source title", "journal/book"},
	"authors":  {"authors", "author", "author full names", "author names"},
}

// canonical maps a raw column or key name to its field and the alias
// rank (lower is a better match). It returns "" for unknown names.
func canonical(name string) (string, int) {
	name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	for field, names := range aliases {
		for rank, n := range names {
			if name == n {
				return field, rank
			}
		}
	}
	return "", 0
}

// fieldSet collects field values, keeping the best-ranked non-empty alias
// when several columns map to the same field.
type fieldSet struct {
	vals map[string]string
	rank map[string]int
}

func newFieldSet() *fieldSet {
	return &fieldSet{vals: map[string]string{}, rank: map[string]int{}}
}

func (f *fieldSet) set(field string, rank int, value string) {
	if field == "" || strings.TrimSpace(value) == "" {
		return
	}
	if r, ok := f.rank[field]; ok && r <= rank {
		return
	}
	f.vals[field] = value
	f.rank[field] = rank
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// parseYear returns the first four-digit run in s, or 0.
func parseYear(s string) int {
	y, err := strconv.Atoi(yearPattern.FindString(s))
	if err != nil {
		return 0
	}
	return y
}

// splitAuthors splits a delimited author string. Semicolons win over
// commas because "Family, Given" names contain commas.
func splitAuthors(s string) []string {
	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}
	var out []string
	for _, a := range strings.Split(s, sep) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
		if len(out) == search.MaxAuthors {
			break
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// record builds a paper from field values, or reports false when there is
// no title.
func record(f *fieldSet, authors []string, source types.PaperSource) (types.Paper, bool) {
	fields := f.vals
	title := strings.TrimSpace(fields["title"])
	if title == "" {
		return types.Paper{}, false
	}
	id := strings.TrimSpace(fields["id"])
	if id == "" {
		id = NewLocalID()
	}
	if authors == nil {
		authors = splitAuthors(fields["authors"])
	}
	return types.Paper{
		ID:       id,
		Title:    title,
		Abstract: strings.TrimSpace(fields["abstract"]),
		Year:     parseYear(fields["year"]),
		Journal:  strings.TrimSpace(fields["journal"]),
		Authors:  authors,
		Source:   source,
	}, true
}

func withIDs(papers []types.Paper, source types.PaperSource) []types.Paper {
	out := make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		if strings.TrimSpace(p.Title) == "" {
			continue
		}
		if p.ID == "" {
			p.ID = NewLocalID()
		}
		if p.Source == "" {
			p.Source = source
		}
		if p.Authors == nil {
			p.Authors = []string{}
		}
		out = append(out, p)
	}
	return out
}
