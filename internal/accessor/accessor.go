// Package accessor provides the raw-data access boundary for source
// extraction: path-addressed lookups over a nested document. Lookups return
// nil for absent paths and never fail.
package accessor

import (
	"context"
	"fmt"

	"windfarm-finance-lab/internal/storage"
)

// Document is a nested map raw-data accessor. Values at leaf paths are
// whatever the scenario layer stored: percentile series sets, raw record
// slices, plain numbers.
type Document map[string]any

// GetValueByPath walks the nested maps along path. An absent path yields nil.
func (d Document) GetValueByPath(path []string) any {
	var current any = map[string]any(d)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[key]
		if !ok {
			return nil
		}
	}
	return current
}

// Set places value at path, creating intermediate maps as needed.
func (d Document) Set(path []string, value any) error {
	if len(path) == 0 {
		return fmt.Errorf("empty path")
	}
	current := map[string]any(d)
	for _, key := range path[:len(path)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[key] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
	return nil
}

// ResultsKey is the document key holding percentile result sets per source.
const ResultsKey = "results"

// FromStore loads every stored percentile series into a copy of base under
// [ResultsKey][sourceID]. The returned document is independent of base's top
// level; a nil base starts empty.
func FromStore(ctx context.Context, store storage.PercentileSeriesStore, base Document) (Document, error) {
	doc := make(Document, len(base)+1)
	for k, v := range base {
		doc[k] = v
	}

	ids, err := store.SourceIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list percentile sources: %w", err)
	}
	for _, id := range ids {
		byPercentile, err := store.GetBySource(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load percentile series for %s: %w", id, err)
		}
		if err := doc.Set([]string{ResultsKey, id}, byPercentile); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
