// Package scenariokey derives deterministic identifiers for percentile
// scenarios. Identical scenarios always hash to the same key, so batch results
// keyed by scenario are reproducible across runs.
package scenariokey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"windfarm-finance-lab/internal/domain"
)

// Compute returns the full scenario key: SHA256 over the canonical scenario
// form, hex-encoded (64 characters).
func Compute(s domain.PercentileScenario) string {
	hash := sha256.Sum256([]byte(canonical(s)))
	return hex.EncodeToString(hash[:])
}

// Short returns a compact base58 form of the key's first 8 bytes, suitable for
// report labels and log lines.
func Short(s domain.PercentileScenario) string {
	hash := sha256.Sum256([]byte(canonical(s)))
	return base58.Encode(hash[:8])
}

// Label returns a human-readable scenario label: "P50" for unified scenarios,
// the short key for per-source scenarios.
func Label(s domain.PercentileScenario) string {
	if s.Type == domain.ScenarioUnified {
		return fmt.Sprintf("P%g", s.Percentile)
	}
	return Short(s)
}

// canonical renders the scenario as a pipe-joined string with per-source
// entries in lexical order.
func canonical(s domain.PercentileScenario) string {
	var b strings.Builder
	b.WriteString(string(s.Type))
	switch s.Type {
	case domain.ScenarioUnified:
		fmt.Fprintf(&b, "|%g", s.Percentile)
	case domain.ScenarioPerSource:
		for _, id := range s.SortedSourceIDs() {
			fmt.Fprintf(&b, "|%s=%g", id, s.SourcePercentiles[id])
		}
	}
	return b.String()
}
