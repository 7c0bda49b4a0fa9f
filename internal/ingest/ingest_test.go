// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-radar/internal/search"
	"github.com/pdiddy/research-radar/pkg/types"
)

func sequentialIDs(t *testing.T) {
	t.Helper()
	saved := NewLocalID
	n := 0
	NewLocalID = func() string {
		n++
		return fmt.Sprintf("local-%d", n)
	}
	t.Cleanup(func() { NewLocalID = saved })
}

func TestParseJSONArray(t *testing.T) {
	sequentialIDs(t)
	data := []byte(`[
		{"PMID": 123, "Title": "Graph networks", "Abstract": "About graphs.", "Year": 2021,
		 "Journal": "J Graphs", "Authors": ["Ada Lovelace", {"given": "Alan", "family": "Turing"}]},
		{"title": "Second", "publication year": "Published 2019-05", "authors": "Smith, J; Lee, K"},
		{"abstract": "no title, skipped"}
	]`)

	papers, err := ParseJSON(data)
	require.NoError(t, err)
	require.Len(t, papers, 2)

	assert.Equal(t, types.Paper{
		ID:       "123",
		Title:    "Graph networks",
		Abstract: "About graphs.",
		Year:     2021,
		Journal:  "J Graphs",
		Authors:  []string{"Ada Lovelace", "Alan Turing"},
		Source:   types.SourceFile,
	}, papers[0])

	assert.Equal(t, "local-1", papers[1].ID)
	assert.Equal(t, 2019, papers[1].Year)
	assert.Equal(t, []string{"Smith, J", "Lee, K"}, papers[1].Authors)
}

func TestParseJSONPrefersExactKeys(t *testing.T) {
	data := []byte(`{"query": "q", "papers": [
		{"id": "1", "title": "T", "journal": "Nature", "source": "pubmed", "authors": []}
	]}`)
	papers, err := ParseJSON(data)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "Nature", papers[0].Journal)
	assert.Equal(t, []string{}, papers[0].Authors)
}

func TestParseJSONInvalid(t *testing.T) {
	_, err := ParseJSON([]byte(`{not json`))
	assert.Error(t, err)
}

func TestParseDelimited(t *testing.T) {
	sequentialIDs(t)
	tests := []struct {
		name string
		data string
	}{
		{"comma", "Title,Abstract,Publication Year,Source Title,Authors\n\"Deep, learning\",Abs,2020,Nature,\"Smith, J; Lee, K\"\n,orphan,2021,,\n"},
		{"tab", "Article Title\tSummary\tYear\tVenue\tAuthor\nDeep, learning\tAbs\t2020\tNature\tSmith, J; Lee, K\n"},
		{"semicolon", "\ufefftitle;abstract;date;journal;authors\nDeep, learning;Abs;2020-01-01;Nature;\"Smith, J; Lee, K\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			papers, err := ParseDelimited([]byte(tt.data))
			require.NoError(t, err)
			require.Len(t, papers, 1)
			p := papers[0]
			assert.Equal(t, "Deep, learning", p.Title)
			assert.Equal(t, "Abs", p.Abstract)
			assert.Equal(t, 2020, p.Year)
			assert.Equal(t, "Nature", p.Journal)
			assert.Equal(t, []string{"Smith, J", "Lee, K"}, p.Authors)
			assert.Equal(t, types.SourceFile, p.Source)
			assert.Contains(t, p.ID, "local-")
		})
	}
}

func TestParseDelimitedWithoutTitleColumn(t *testing.T) {
	_, err := ParseDelimited([]byte("name,year\nfoo,2020\n"))
	assert.ErrorContains(t, err, "no title column")
}

func TestParsePasted(t *testing.T) {
	sequentialIDs(t)
	papers := ParsePasted("1. First title\n\n  - Second title  \n• Third\n")
	require.Len(t, papers, 3)
	assert.Equal(t, "First title", papers[0].Title)
	assert.Equal(t, "Second title", papers[1].Title)
	assert.Equal(t, "Third", papers[2].Title)
	assert.Equal(t, "local-3", papers[2].ID)
	assert.Equal(t, types.SourcePaste, papers[0].Source)
}

func TestParseTextDetectsTables(t *testing.T) {
	papers, err := Parse(FormatText, []byte("title\tyear\nA table row\t2022\n"))
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, 2022, papers[0].Year)

	papers, err = Parse(FormatText, []byte("Just a title, with a comma\nAnother one\n"))
	require.NoError(t, err)
	assert.Len(t, papers, 2)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(FormatPaste, []byte("\n  \n"))
	assert.ErrorIs(t, err, ErrNoPapers)

	_, err = Parse("docx", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Title,Year\nA,2001\nB,2002\n"), 0o644))
	papers, err := LoadFile(csvPath)
	require.NoError(t, err)
	assert.Len(t, papers, 2)

	yamlPath := filepath.Join(dir, "saved.yaml")
	require.NoError(t, search.WriteSavedSearch(yamlPath, search.Page{
		Query:  "q",
		Papers: []types.Paper{{ID: "42", Title: "Saved", Source: types.SourcePubMed}, {Title: "No id"}},
	}))
	papers, err = LoadFile(yamlPath)
	require.NoError(t, err)
	require.Len(t, papers, 2)
	assert.Equal(t, "42", papers[0].ID)
	assert.Equal(t, types.SourcePubMed, papers[0].Source)
	assert.Contains(t, papers[1].ID, "local-")
	assert.Equal(t, types.SourceFile, papers[1].Source)

	_, err = LoadFile(filepath.Join(dir, "paper.pdf"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestSplitAuthorsCap(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, splitAuthors("A, B, C, D, E, F, G"))
	assert.Equal(t, []string{}, splitAuthors(""))
}
