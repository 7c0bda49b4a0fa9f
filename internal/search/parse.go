// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/research-radar/pkg/types"
)

// MaxAuthors is the number of authors kept per record.
const MaxAuthors = 5

var yearPattern = regexp.MustCompile(`\d{4}`)

// toPaper converts one efetch article. It reports false when the record
// has no PMID.
func toPaper(a pubmedArticle) (types.Paper, bool) {
	id := strings.TrimSpace(a.PMID)
	if id == "" {
		return types.Paper{}, false
	}
	art := a.Article

	journal := strings.TrimSpace(art.Journal.Title)
	if journal == "" {
		journal = strings.TrimSpace(art.Journal.ISOAbbreviation)
	}

	return types.Paper{
		ID:       id,
		Title:    art.ArticleTitle.Text(),
		Abstract: abstractText(art.Abstract),
		Year:     publicationYear(art),
		Journal:  journal,
		Authors:  authorNames(art.Authors),
		Source:   types.SourcePubMed,
	}, true
}

// abstractText joins abstract sections with blank lines. Labelled
// sections keep their label as a "LABEL: text" prefix.
func abstractText(sections []markupText) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		text := plainText(s.Inner)
		if text == "" {
			continue
		}
		if s.Label != "" {
			text = s.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

// publicationYear tries the journal issue year, then the first four-digit
// run of MedlineDate, then the electronic article date. It returns 0 when
// none is usable.
func publicationYear(art article) int {
	candidates := []string{
		art.Journal.PubDate.Year,
		yearPattern.FindString(art.Journal.PubDate.MedlineDate),
	}
	for _, d := range art.ArticleDates {
		candidates = append(candidates, d.Year)
	}
	for _, c := range candidates {
		if y, err := strconv.Atoi(strings.TrimSpace(c)); err == nil && y > 0 {
			return y
		}
	}
	return 0
}

// authorNames formats at most MaxAuthors names as "ForeName LastName".
func authorNames(authors []author) []string {
	names := make([]string, 0, min(len(authors), MaxAuthors))
	for _, a := range authors {
		if len(names) == MaxAuthors {
			break
		}
		var name string
		switch {
		case a.CollectiveName != "":
			name = a.CollectiveName
		case a.ForeName != "":
			name = a.ForeName + " " + a.LastName
		case a.Initials != "":
			name = a.Initials + " " + a.LastName
		default:
			name = a.LastName
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
