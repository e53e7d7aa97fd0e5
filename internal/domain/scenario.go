package domain

import "sort"

// ScenarioType distinguishes how percentiles are assigned to sources.
type ScenarioType string

const (
	// ScenarioUnified applies one percentile to every percentile-bearing source.
	ScenarioUnified ScenarioType = "unified"
	// ScenarioPerSource assigns an independent percentile per source.
	ScenarioPerSource ScenarioType = "perSource"
)

// IsValid checks if the scenario type is a valid value.
func (t ScenarioType) IsValid() bool {
	return t == ScenarioUnified || t == ScenarioPerSource
}

// PercentileScenario selects which percentile-indexed result series each source
// resolves to during one computation pass. Exactly one scenario is active per pass;
// a batch computes multiple scenarios, each independent.
type PercentileScenario struct {
	Type       ScenarioType
	Percentile float64 // used when Type == ScenarioUnified

	// SourcePercentiles overrides the percentile per source id.
	// Used when Type == ScenarioPerSource; sources without an entry fall back
	// to the first available percentile in the raw data.
	SourcePercentiles map[string]float64
}

// UnifiedScenario returns a scenario applying one percentile to all sources.
func UnifiedScenario(percentile float64) PercentileScenario {
	return PercentileScenario{Type: ScenarioUnified, Percentile: percentile}
}

// PerSourceScenario returns a scenario with independent per-source percentiles.
func PerSourceScenario(sourcePercentiles map[string]float64) PercentileScenario {
	return PercentileScenario{Type: ScenarioPerSource, SourcePercentiles: sourcePercentiles}
}

// PercentileFor returns the percentile assigned to the given source and whether
// one is assigned at all.
func (s PercentileScenario) PercentileFor(sourceID string) (float64, bool) {
	switch s.Type {
	case ScenarioUnified:
		return s.Percentile, true
	case ScenarioPerSource:
		p, ok := s.SourcePercentiles[sourceID]
		return p, ok
	}
	return 0, false
}

// SortedSourceIDs returns the override source ids in lexical order.
// Iteration over SourcePercentiles must go through this to stay deterministic.
func (s PercentileScenario) SortedSourceIDs() []string {
	ids := make([]string, 0, len(s.SourcePercentiles))
	for id := range s.SourcePercentiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
