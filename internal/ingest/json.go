// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/research-radar/internal/search"
	"github.com/pdiddy/research-radar/pkg/types"
)

// ParseJSON parses an array of paper objects, or an object holding such
// an array under "papers" (the search JSON output). Keys are matched like
// table headers. Authors may be an array of strings or one delimited
// string, and year may be a number or a date string.
func ParseJSON(data []byte) ([]types.Paper, error) {
	data = bytes.TrimSpace(data)

	var objects []map[string]json.RawMessage
	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Papers []map[string]json.RawMessage `json:"papers"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decoding JSON: %w", err)
		}
		objects = wrapper.Papers
	} else if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	papers := make([]types.Paper, 0, len(objects))
	for _, obj := range objects {
		fields := newFieldSet()
		var authors []string
		authorRank := -1
		for k, raw := range obj {
			field, rank := canonical(k)
			if field == "authors" {
				if authorRank < 0 || rank < authorRank {
					authors, authorRank = jsonAuthors(raw), rank
				}
				continue
			}
			fields.set(field, rank, jsonScalar(raw))
		}
		if p, ok := record(fields, authors, types.SourceFile); ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// jsonScalar renders a string or number as text; anything else is "".
func jsonScalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func jsonAuthors(raw json.RawMessage) []string {
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := []string{}
		for _, a := range list {
			var name string
			switch v := a.(type) {
			case string:
				name = v
			case map[string]any:
				name = objectName(v)
			}
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
			if len(out) == search.MaxAuthors {
				break
			}
		}
		return out
	}
	return splitAuthors(jsonScalar(raw))
}

// objectName handles {"name": ...} and {"given": ..., "family": ...}.
func objectName(m map[string]any) string {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	if n := str("name"); n != "" {
		return n
	}
	return strings.TrimSpace(str("given") + " " + str("family"))
}
