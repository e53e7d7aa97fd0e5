package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the metrics engine. Configuration-time errors
// (ErrDependency, ErrUnknownMetric) are fatal at registry construction;
// computation-time errors convert to MetricResult error slots and never block
// sibling metrics.
var (
	// ErrMissingData indicates a required series is absent.
	ErrMissingData = errors.New("missing data")

	// ErrInvalidData indicates a malformed series or value shape.
	ErrInvalidData = errors.New("invalid data")

	// ErrCalculationFailed indicates a numerical failure, e.g. a
	// non-convergent IRR solve.
	ErrCalculationFailed = errors.New("calculation failed")

	// ErrUnknownMetric indicates a registry lookup miss for a metric id.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrUnknownVariable indicates a lookup miss for a sensitivity variable.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrDependency indicates a cyclic or unresolved metric dependency.
	ErrDependency = errors.New("dependency error")

	// ErrValidation indicates an input shape violating a contract.
	ErrValidation = errors.New("validation error")
)

// CalculationError wraps a cause as a calculation failure for one metric.
func CalculationError(metricID string, cause error) error {
	return fmt.Errorf("%w: metric %s: %v", ErrCalculationFailed, metricID, cause)
}

// DependencyCycleError reports the metric ids participating in a cycle.
// The resolver never silently drops a metric.
func DependencyCycleError(ids []string) error {
	return fmt.Errorf("%w: cycle among metrics %v", ErrDependency, ids)
}
