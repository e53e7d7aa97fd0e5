// Package refresh models the staged recomputation lifecycle as an explicit
// finite-state machine. Transitions are single-direction and driven by
// explicit stage-completion calls; any stage may fail into the terminal error
// state. The machine carries no computation itself.
package refresh

import (
	"fmt"
	"sync"

	"windfarm-finance-lab/internal/domain"
)

// Stage is one state of the refresh lifecycle.
type Stage string

const (
	StageIdle          Stage = "idle"
	StageDistributions Stage = "distributions"
	StageConstruction  Stage = "construction"
	StageMetrics       Stage = "metrics"
	StageTransform     Stage = "transform"
	StageSensitivity   Stage = "sensitivity"
	StageComplete      Stage = "complete"
	StageError         Stage = "error"
)

// next maps each stage to its single allowed successor.
var next = map[Stage]Stage{
	StageIdle:          StageDistributions,
	StageDistributions: StageConstruction,
	StageConstruction:  StageMetrics,
	StageMetrics:       StageTransform,
	StageTransform:     StageSensitivity,
	StageSensitivity:   StageComplete,
}

// Transition records one observed stage change.
type Transition struct {
	From Stage
	To   Stage
	Err  error // set only for transitions into StageError
}

// Listener receives transitions as they happen. Called synchronously under
// the machine's lock; keep it fast.
type Listener func(Transition)

// Machine is a single-use refresh lifecycle. A new recomputation request gets
// a new Machine; a superseded machine is simply abandoned.
type Machine struct {
	mu       sync.Mutex
	stage    Stage
	err      error
	listener Listener
}

// NewMachine creates a machine in the idle state.
func NewMachine() *Machine {
	return &Machine{stage: StageIdle}
}

// OnTransition registers the transition listener.
func (m *Machine) OnTransition(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = fn
}

// Stage returns the current stage.
func (m *Machine) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// Err returns the failure that moved the machine into StageError, if any.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Advance moves to the next stage. Advancing a terminal or unknown stage is a
// validation error; stages never move backwards or skip ahead.
func (m *Machine) Advance() (Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	to, ok := next[m.stage]
	if !ok {
		return m.stage, fmt.Errorf("%w: no transition from stage %s", domain.ErrValidation, m.stage)
	}
	from := m.stage
	m.stage = to
	m.notify(Transition{From: from, To: to})
	return to, nil
}

// Fail moves the machine into the terminal error state from any non-terminal
// stage.
func (m *Machine) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stage == StageComplete || m.stage == StageError {
		return
	}
	from := m.stage
	m.stage = StageError
	m.err = err
	m.notify(Transition{From: from, To: StageError, Err: err})
}

// Done reports whether the machine reached a terminal stage.
func (m *Machine) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage == StageComplete || m.stage == StageError
}

func (m *Machine) notify(t Transition) {
	if m.listener != nil {
		m.listener(t)
	}
}
