package state

import (
	"errors"
	"sync"
)

// StateMachine tracks the lifecycle phase of a game session.
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

// State is one lifecycle phase.
type State interface {
	OnEnter()
	OnExit()
	GetID() string
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// Phase ids of a game session.
const (
	Idle     = "idle"
	Playing  = "playing"
	Finished = "finished"
)

type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// ChangeState moves to newState. Moving to the current phase is a no-op and
// runs no hooks.
func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()
	if currentID == newID {
		return nil
	}

	if conditions, exists := sm.transitions[currentID]; exists {
		if condition, exists := conditions[newID]; exists {
			if condition != nil && !condition() {
				return ErrTransitionNotAllowed
			}
		}
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// Phase is a State with optional enter/exit hooks.
type Phase struct {
	ID      string
	Enter   func()
	Exit    func()
	entered int
}

// NewPhase creates a phase that calls onEnter each time it becomes current.
func NewPhase(id string, onEnter func()) *Phase {
	return &Phase{ID: id, Enter: onEnter}
}

func (p *Phase) GetID() string {
	return p.ID
}

func (p *Phase) OnEnter() {
	p.entered++
	if p.Enter != nil {
		p.Enter()
	}
}

func (p *Phase) OnExit() {
	if p.Exit != nil {
		p.Exit()
	}
}

// Entered reports how many times the phase became current.
func (p *Phase) Entered() int {
	return p.entered
}
