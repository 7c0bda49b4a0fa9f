// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/research-radar/pkg/types"
)

// ParseDelimited parses a table whose first row is a header. The
// delimiter is whichever of tab, semicolon, or comma appears most in the
// header line. Rows without a title are skipped.
func ParseDelimited(data []byte) ([]types.Paper, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(firstLine(data))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoPapers
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	columns := make([]string, len(header))
	ranks := make([]int, len(header))
	hasTitle := false
	for i, h := range header {
		columns[i], ranks[i] = canonical(h)
		hasTitle = hasTitle || columns[i] == "title"
	}
	if !hasTitle {
		return nil, fmt.Errorf("no title column in header %q", strings.Join(header, ", "))
	}

	var papers []types.Paper
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		fields := newFieldSet()
		for i, v := range row {
			if i < len(columns) {
				fields.set(columns[i], ranks[i], v)
			}
		}
		if p, ok := record(fields, nil, types.SourceFile); ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

func firstLine(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}
	return string(data)
}

func sniffDelimiter(header string) rune {
	best, bestCount := ',', strings.Count(header, ",")
	for _, d := range []rune{'\t', ';'} {
		if n := strings.Count(header, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// looksDelimited reports whether the first line is a header naming a
// title column.
func looksDelimited(data []byte) bool {
	line := firstLine(bytes.TrimPrefix(data, []byte("\ufeff")))
	d := sniffDelimiter(line)
	if !strings.ContainsRune(line, d) {
		return false
	}
	for _, h := range strings.Split(line, string(d)) {
		if field, _ := canonical(strings.Trim(h, `"`)); field == "title" {
			return true
		}
	}
	return false
}
