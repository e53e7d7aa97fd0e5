package refresh

import (
	"errors"
	"testing"

	"windfarm-finance-lab/internal/domain"
)

func TestMachine_AdvanceChain(t *testing.T) {
	m := NewMachine()
	if m.Stage() != StageIdle {
		t.Fatalf("Initial stage: got %s, want idle", m.Stage())
	}

	chain := []Stage{
		StageDistributions,
		StageConstruction,
		StageMetrics,
		StageTransform,
		StageSensitivity,
		StageComplete,
	}
	for _, want := range chain {
		got, err := m.Advance()
		if err != nil {
			t.Fatalf("Advance to %s failed: %v", want, err)
		}
		if got != want {
			t.Fatalf("Advance: got %s, want %s", got, want)
		}
	}

	if !m.Done() {
		t.Error("Machine should be done at complete")
	}
	if m.Err() != nil {
		t.Errorf("Unexpected error: %v", m.Err())
	}
}

func TestMachine_AdvancePastComplete(t *testing.T) {
	m := NewMachine()
	for i := 0; i < 6; i++ {
		if _, err := m.Advance(); err != nil {
			t.Fatalf("Advance %d failed: %v", i, err)
		}
	}

	_, err := m.Advance()
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Expected ErrValidation past complete, got %v", err)
	}
	if m.Stage() != StageComplete {
		t.Errorf("Stage should stay complete, got %s", m.Stage())
	}
}

func TestMachine_Fail(t *testing.T) {
	m := NewMachine()
	if _, err := m.Advance(); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	cause := errors.New("distribution load failed")
	m.Fail(cause)

	if m.Stage() != StageError {
		t.Errorf("Stage: got %s, want error", m.Stage())
	}
	if !m.Done() {
		t.Error("Failed machine should be done")
	}
	if m.Err() != cause {
		t.Errorf("Err: got %v, want %v", m.Err(), cause)
	}

	// Advancing a failed machine is rejected
	if _, err := m.Advance(); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Expected ErrValidation from failed machine, got %v", err)
	}
}

func TestMachine_FailFromTerminalIsNoop(t *testing.T) {
	m := NewMachine()
	for i := 0; i < 6; i++ {
		if _, err := m.Advance(); err != nil {
			t.Fatalf("Advance %d failed: %v", i, err)
		}
	}

	m.Fail(errors.New("too late"))
	if m.Stage() != StageComplete {
		t.Errorf("Fail on complete machine should be a no-op, stage %s", m.Stage())
	}
	if m.Err() != nil {
		t.Errorf("Err should stay nil, got %v", m.Err())
	}

	// Fail on an already-failed machine keeps the original cause
	m2 := NewMachine()
	first := errors.New("first")
	m2.Fail(first)
	m2.Fail(errors.New("second"))
	if m2.Err() != first {
		t.Errorf("Err: got %v, want first failure", m2.Err())
	}
}

func TestMachine_Listener(t *testing.T) {
	m := NewMachine()
	var seen []Transition
	m.OnTransition(func(tr Transition) {
		seen = append(seen, tr)
	})

	if _, err := m.Advance(); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	cause := errors.New("boom")
	m.Fail(cause)

	if len(seen) != 2 {
		t.Fatalf("Expected 2 transitions, got %d", len(seen))
	}
	if seen[0].From != StageIdle || seen[0].To != StageDistributions || seen[0].Err != nil {
		t.Errorf("Transition 0: %+v", seen[0])
	}
	if seen[1].From != StageDistributions || seen[1].To != StageError || seen[1].Err != cause {
		t.Errorf("Transition 1: %+v", seen[1])
	}
}
