// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package shape reduces a paper list to a bounded text block that is safe to
// send to the generative AI service.
package shape

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/research-radar/pkg/types"
)

const (
	// VolumeThreshold is the largest paper count that still gets the
	// extended line format. Above it, lines carry only id, year, and title.
	VolumeThreshold = 100

	// AbstractLimit is the number of abstract characters kept per paper in
	// the extended format.
	AbstractLimit = 500

	// MaxPayloadChars is the hard ceiling on the joined payload.
	MaxPayloadChars = 300000

	// TruncationMarker is appended when the payload hits MaxPayloadChars.
	TruncationMarker = "\n...[TRUNCATED DUE TO SIZE LIMIT]"
)

// Payload is the shaped representation of a paper list.
type Payload struct {
	// Text is the newline-joined per-paper lines, possibly truncated.
	Text string

	// Papers is the capped list the lines were built from.
	Papers []types.Paper

	// TitleOnly reports whether the minimal line format was used.
	TitleOnly bool

	// Truncated reports whether Text was cut at MaxPayloadChars.
	Truncated bool
}

// Count returns the number of papers sent, after capping.
func (p Payload) Count() int {
	return len(p.Papers)
}

// Shape caps papers to the first maxPapers entries (maxPapers <= 0 means no
// cap), picks the line format by volume, joins the lines, and enforces the
// payload ceiling. Characters are counted as Unicode code points. The output
// depends only on the inputs.
func Shape(papers []types.Paper, maxPapers int) Payload {
	if maxPapers > 0 && len(papers) > maxPapers {
		papers = papers[:maxPapers]
	}

	titleOnly := len(papers) > VolumeThreshold

	lines := make([]string, len(papers))
	for i, p := range papers {
		if titleOnly {
			lines[i] = minimalLine(p)
		} else {
			lines[i] = extendedLine(p)
		}
	}

	text, truncated := capText(strings.Join(lines, "\n"), MaxPayloadChars)
	if truncated {
		text += TruncationMarker
	}

	return Payload{
		Text:      text,
		Papers:    papers,
		TitleOnly: titleOnly,
		Truncated: truncated,
	}
}

func minimalLine(p types.Paper) string {
	return "ID: " + p.ID + " | Year: " + year(p) + " | Title: " + flatten(p.Title)
}

func extendedLine(p types.Paper) string {
	abstract, _ := capText(flatten(p.Abstract), AbstractLimit)
	return minimalLine(p) + " | Abstract: " + abstract
}

func year(p types.Paper) string {
	if p.Year <= 0 {
		return "N/A"
	}
	return strconv.Itoa(p.Year)
}

// flatten collapses whitespace runs, including newlines, into single
// spaces so that every paper stays on one line.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// capText cuts s to at most limit code points.
func capText(s string, limit int) (string, bool) {
	if len(s) <= limit || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}
