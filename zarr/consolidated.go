package zarr

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"
)

// ConsolidatedStore answers metadata reads from a .zmetadata document and
// passes chunk reads to the inner store.
type ConsolidatedStore struct {
	inner    Store
	metadata map[string][]byte
}

type consolidatedDocument struct {
	Metadata map[string]json.RawMessage `json:"metadata"`
	Format   int                        `json:"zarr_consolidated_format"`
}

// OpenConsolidated reads the consolidated metadata at the root of inner.
func OpenConsolidated(ctx context.Context, inner Store) (*ConsolidatedStore, error) {
	data, err := inner.Get(ctx, consolidation)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", consolidation, err)
	}
	var doc consolidatedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", consolidation, err)
	}
	if doc.Format != 1 {
		return nil, fmt.Errorf("%w: zarr_consolidated_format %d", ErrUnsupported, doc.Format)
	}
	s := &ConsolidatedStore{inner: inner, metadata: make(map[string][]byte, len(doc.Metadata))}
	for k, v := range doc.Metadata {
		s.metadata[strings.TrimPrefix(k, "/")] = v
	}
	return s, nil
}

func isMetadataKey(key string) bool {
	switch path.Base(key) {
	case groupKey, arrayKey, attrsKey:
		return true
	}
	return false
}

// Get serves metadata keys from the consolidated document. Metadata keys
// absent from it do not exist.
func (s *ConsolidatedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if isMetadataKey(key) {
		v, ok := s.metadata[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return slices.Clone(v), nil
	}
	return s.inner.Get(ctx, key)
}

// ListDir lists the nodes below prefix known to the consolidated metadata.
func (s *ConsolidatedStore) ListDir(_ context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0, len(s.metadata))
	for k := range s.metadata {
		keys = append(keys, k)
	}
	return childNames(keys, prefix), nil
}
