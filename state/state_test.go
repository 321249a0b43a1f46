package state

import (
	"testing"
)

// MockState is a test double for the State interface.
// It helps us track which methods have been called.
type MockState struct {
	ID            string
	OnEnterCalled bool
	OnExitCalled  bool
}

func (m *MockState) OnEnter() {
	m.OnEnterCalled = true
}

func (m *MockState) OnExit() {
	m.OnExitCalled = true
}

func (m *MockState) GetID() string {
	return m.ID
}

// reset clears the call tracking flags.
func (m *MockState) reset() {
	m.OnEnterCalled = false
	m.OnExitCalled = false
}

func TestStateMachine_InitialState(t *testing.T) {
	initialState := &MockState{ID: Idle}
	sm := NewBaseStateMachine(initialState)

	if !initialState.OnEnterCalled {
		t.Error("Expected OnEnter to be called on the initial state")
	}

	if sm.GetCurrentState() != initialState {
		t.Error("GetCurrentState should return the initial state")
	}
}

func TestStateMachine_ChangeState(t *testing.T) {
	initialState := &MockState{ID: Idle}
	nextState := &MockState{ID: Playing}

	sm := NewBaseStateMachine(initialState)
	initialState.reset() // Reset after initialization

	err := sm.ChangeState(nextState)
	if err != nil {
		t.Fatalf("ChangeState should not return an error, but got: %v", err)
	}

	if !initialState.OnExitCalled {
		t.Error("Expected OnExit to be called on the old state")
	}

	if !nextState.OnEnterCalled {
		t.Error("Expected OnEnter to be called on the new state")
	}

	if sm.GetCurrentState() != nextState {
		t.Error("GetCurrentState should return the new state")
	}
}

func TestStateMachine_SamePhaseIsNoop(t *testing.T) {
	playing := &MockState{ID: Playing}
	sm := NewBaseStateMachine(playing)
	playing.reset()

	if err := sm.ChangeState(playing); err != nil {
		t.Fatalf("ChangeState to the current phase should not fail, got: %v", err)
	}
	if playing.OnExitCalled || playing.OnEnterCalled {
		t.Error("No hooks should run when the phase does not change")
	}
}

func TestStateMachine_AddAndUseTransition(t *testing.T) {
	stateA := &MockState{ID: Idle}
	stateB := &MockState{ID: Playing}
	stateC := &MockState{ID: Finished}

	sm := NewBaseStateMachine(stateA)

	// Add a valid transition from A to B
	err := sm.AddTransition(stateA, stateB, func() bool { return true })
	if err != nil {
		t.Fatalf("AddTransition failed: %v", err)
	}

	// Add a blocked transition from B to C
	err = sm.AddTransition(stateB, stateC, func() bool { return false })
	if err != nil {
		t.Fatalf("AddTransition failed: %v", err)
	}

	// --- Test valid transition ---
	stateA.reset()
	err = sm.ChangeState(stateB)
	if err != nil {
		t.Errorf("Expected transition from idle to playing to be allowed, but got error: %v", err)
	}
	if sm.GetCurrentState().GetID() != Playing {
		t.Errorf("Expected current state to be playing, but got %s", sm.GetCurrentState().GetID())
	}

	// --- Test blocked transition ---
	stateB.reset()
	err = sm.ChangeState(stateC)
	if err != ErrTransitionNotAllowed {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
	if sm.GetCurrentState().GetID() != Playing {
		t.Errorf("Expected current state to remain playing after a blocked transition, but got %s", sm.GetCurrentState().GetID())
	}
	if stateB.OnExitCalled {
		t.Error("OnExit should not be called on the current state if transition is blocked")
	}
	if stateC.OnEnterCalled {
		t.Error("OnEnter should not be called on the new state if transition is blocked")
	}
}

func TestPhase_Hooks(t *testing.T) {
	var entered, exited int
	idle := NewPhase(Idle, nil)
	playing := NewPhase(Playing, func() { entered++ })
	playing.Exit = func() { exited++ }

	sm := NewBaseStateMachine(idle)
	if err := sm.ChangeState(playing); err != nil {
		t.Fatalf("ChangeState failed: %v", err)
	}
	if err := sm.ChangeState(idle); err != nil {
		t.Fatalf("ChangeState failed: %v", err)
	}

	if entered != 1 || exited != 1 {
		t.Errorf("Expected 1 enter and 1 exit, got %d and %d", entered, exited)
	}
	if playing.Entered() != 1 {
		t.Errorf("Expected playing to be entered once, got %d", playing.Entered())
	}
	if idle.Entered() != 2 {
		t.Errorf("Expected idle to be entered twice, got %d", idle.Entered())
	}
}
