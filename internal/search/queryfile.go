// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-radar/pkg/types"
)

// SavedSearch is the on-disk form of a search and its results, so a
// result set can be reloaded and analyzed later without querying again.
type SavedSearch struct {
	Query     string        `yaml:"query"`
	Total     int           `yaml:"total"`
	Offset    int           `yaml:"offset"`
	Timestamp time.Time     `yaml:"timestamp"`
	Papers    []types.Paper `yaml:"papers"`
}

// WriteSavedSearch saves page to path as YAML.
func WriteSavedSearch(path string, page Page) error {
	ss := SavedSearch{
		Query:     page.Query,
		Total:     page.Total,
		Offset:    page.Offset,
		Timestamp: time.Now().UTC(),
		Papers:    page.Papers,
	}
	data, err := yaml.Marshal(&ss)
	if err != nil {
		return fmt.Errorf("marshaling saved search: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSavedSearch loads a saved search from path.
func ReadSavedSearch(path string) (*SavedSearch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading saved search: %w", err)
	}
	return ParseSavedSearch(data)
}

// ParseSavedSearch decodes saved-search YAML.
func ParseSavedSearch(data []byte) (*SavedSearch, error) {
	var ss SavedSearch
	if err := yaml.Unmarshal(data, &ss); err != nil {
		return nil, fmt.Errorf("parsing saved search: %w", err)
	}
	return &ss, nil
}
