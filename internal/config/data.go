package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"

	"windfarm-finance-lab/internal/accessor"
	"windfarm-finance-lab/internal/domain"
)

// DataFile is the raw input document: per-source percentile-indexed
// annual series plus the typed record sets transformers consume.
type DataFile struct {
	// Results holds percentile series per source id:
	// source id -> percentile -> year -> value.
	Results map[string]map[float64]map[int]float64 `yaml:"results"`

	// Contracts, Repairs and Drawdowns hold transformer inputs keyed by
	// the source's document path leaf.
	Contracts map[string][]domain.ContractRecord `yaml:"contracts"`
	Repairs   map[string][]domain.RepairEvent    `yaml:"repairs"`
	Drawdowns map[string]domain.DrawdownSchedule `yaml:"drawdowns"`

	// Values holds plain annual amounts for fixed sources:
	// key -> year -> value.
	Values map[string]map[int]float64 `yaml:"values"`
}

// Document path roots for the typed sections.
const (
	ContractsKey = "contracts"
	RepairsKey   = "repairs"
	DrawdownsKey = "drawdowns"
	ValuesKey    = "values"
)

// LoadData reads a raw data file.
func LoadData(path string) (*DataFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	var f DataFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse data file: %w", err)
	}
	if len(f.Results) == 0 && len(f.Contracts) == 0 && len(f.Repairs) == 0 &&
		len(f.Drawdowns) == 0 && len(f.Values) == 0 {
		return nil, fmt.Errorf("%w: data file is empty", domain.ErrValidation)
	}
	return &f, nil
}

// Series converts one source's percentile map into domain series.
func (f *DataFile) Series(sourceID string) map[float64]domain.TimeSeries {
	out := make(map[float64]domain.TimeSeries)
	for percentile, byYear := range f.Results[sourceID] {
		out[percentile] = seriesFromMap(byYear)
	}
	return out
}

// SourceIDs returns the percentile-bearing source ids in lexical order.
func (f *DataFile) SourceIDs() []string {
	ids := make([]string, 0, len(f.Results))
	for id := range f.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BaseDocument assembles the non-percentile sections into an accessor
// document: contracts, repairs, drawdowns and plain value series, each
// under its own path root.
func (f *DataFile) BaseDocument() accessor.Document {
	doc := make(accessor.Document)
	for key, records := range f.Contracts {
		doc.Set([]string{ContractsKey, key}, records)
	}
	for key, events := range f.Repairs {
		doc.Set([]string{RepairsKey, key}, events)
	}
	for key, sched := range f.Drawdowns {
		doc.Set([]string{DrawdownsKey, key}, sched)
	}
	for key, byYear := range f.Values {
		doc.Set([]string{ValuesKey, key}, seriesFromMap(byYear))
	}
	return doc
}
