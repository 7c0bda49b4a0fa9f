// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is an entry with its payload decoded so the YAML export is
// readable.
type ExportEntry struct {
	Entry  `yaml:",inline"`
	Result any `yaml:"result"`
}

// ExportYAML writes every entry, newest first, as a YAML list to w.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) error {
	list, err := s.List(ctx, ListOptions{})
	if err != nil {
		return err
	}

	entries := make([]ExportEntry, 0, len(list))
	for _, summary := range list {
		e, err := s.Get(ctx, summary.ID)
		if err != nil {
			return err
		}
		var result any
		if err := json.Unmarshal(e.Payload, &result); err != nil {
			return fmt.Errorf("decoding payload of %s: %w", e.ID, err)
		}
		entries = append(entries, ExportEntry{Entry: e, Result: result})
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return nil
}
