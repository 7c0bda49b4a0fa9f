// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research-radar pipeline:
// papers, analysis requests and results, trend forecasts, and stage configuration.
package types

// PaperSource identifies where a paper record came from.
type PaperSource string

const (
	SourcePubMed PaperSource = "pubmed"
	SourceFile   PaperSource = "file"
	SourcePaste  PaperSource = "paste"
)

// Paper is a bibliographic record. Identity is ID: either the source
// identifier (a PMID for PubMed) or a locally synthesized "local-<uuid>".
// Papers are never mutated after they are fetched or parsed.
type Paper struct {
	// ID uniquely identifies the paper within a request.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract. Structured abstracts keep their
	// section labels as "LABEL: text" paragraphs.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Year is the publication year, or 0 when unknown.
	Year int `json:"year" yaml:"year"`

	// Journal is the journal or venue name.
	Journal string `json:"journal" yaml:"journal"`

	// Authors lists at most a handful of authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Source records which collaborator produced the record.
	Source PaperSource `json:"source,omitempty" yaml:"source,omitempty"`
}

// PaperIndex maps paper ids to papers.
type PaperIndex map[string]Paper

// IndexPapers builds a PaperIndex. When ids repeat, the first occurrence wins.
func IndexPapers(papers []Paper) PaperIndex {
	idx := make(PaperIndex, len(papers))
	for _, p := range papers {
		if _, ok := idx[p.ID]; !ok {
			idx[p.ID] = p
		}
	}
	return idx
}
