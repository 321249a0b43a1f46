// Core game engine for a single pebbles game.
// Responsibilities:
//   - Validate initialization parameters and create the GameState.
//   - Resolve a user turn followed by the program's counter-move.
//   - Select the program's move under the Easy and Hard policies.
//   - Handle give-up and restart.
//
// Randomness comes from an injected random.Source; the engine never seeds or
// generates it itself.
package game

import (
	"errors"
	"fmt"

	"github.com/wfunc/pebbles/random"
)

var (
	ErrInvalidParameters     = errors.New("pebbles_count must be greater than max_pebbles_per_turn")
	ErrInvalidMove           = errors.New("invalid move")
	ErrRandomnessUnavailable = errors.New("randomness unavailable")
	ErrNotInitialized        = errors.New("game is not initialized")
	ErrAlreadyInitialized    = errors.New("game is already initialized")
)

// Rules holds the overridable policy points of the engine. The zero value is
// a "corrected" game; ReferenceRules reproduces the observable behavior
// clients depend on.
type Rules struct {
	// AwardProgramOnRestart sets winner=Program on restart and replies Won(Program).
	// When false, restart clears the winner and replies Restarted.
	AwardProgramOnRestart bool
	// EchoUserMove makes CounterTurn carry the user's own count instead of
	// the number of pebbles the program removed.
	EchoUserMove bool
	// ValidateRestart applies the initialize precondition to restart.
	ValidateRestart bool
}

// ReferenceRules returns the rules every client currently expects.
func ReferenceRules() Rules {
	return Rules{AwardProgramOnRestart: true, EchoUserMove: true}
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules overrides ReferenceRules.
func WithRules(r Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// Engine owns at most one GameState. It is not safe for concurrent use;
// callers serialize access (see session.Session).
type Engine struct {
	state *GameState
	rng   random.Source
	rules Rules
}

// NewEngine returns an engine with no game. Every operation except
// Initialize fails with ErrNotInitialized until a game exists.
func NewEngine(src random.Source, opts ...Option) *Engine {
	e := &Engine{rng: src, rules: ReferenceRules()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Source returns the engine's random source.
func (e *Engine) Source() random.Source { return e.rng }

// Initialized reports whether a game has been created.
func (e *Engine) Initialized() bool { return e.state != nil }

// Initialize creates the game. No state is installed when it fails.
func (e *Engine) Initialize(pebblesCount, maxPerTurn uint32, difficulty DifficultyLevel) (GameState, error) {
	if e.state != nil {
		return GameState{}, ErrAlreadyInitialized
	}
	st, err := newState(pebblesCount, maxPerTurn, difficulty)
	if err != nil {
		return GameState{}, err
	}
	e.state = &st
	return st.clone(), nil
}

func newState(pebblesCount, maxPerTurn uint32, difficulty DifficultyLevel) (GameState, error) {
	if pebblesCount <= maxPerTurn {
		return GameState{}, fmt.Errorf("%w: got %d <= %d", ErrInvalidParameters, pebblesCount, maxPerTurn)
	}
	return GameState{
		PebblesCount:      pebblesCount,
		MaxPebblesPerTurn: maxPerTurn,
		Difficulty:        difficulty,
		PebblesRemaining:  pebblesCount,
		FirstPlayer:       User,
	}, nil
}

// State returns a copy of the current game. It never mutates the engine.
func (e *Engine) State() (GameState, error) {
	if e.state == nil {
		return GameState{}, ErrNotInitialized
	}
	return e.state.clone(), nil
}

// Restart replaces every field of the game.
func (e *Engine) Restart(pebblesCount, maxPerTurn uint32, difficulty DifficultyLevel) (GameState, Event, error) {
	if e.state == nil {
		return GameState{}, Event{}, ErrNotInitialized
	}
	if e.rules.ValidateRestart && pebblesCount <= maxPerTurn {
		return e.state.clone(), Event{}, fmt.Errorf("%w: got %d <= %d", ErrInvalidParameters, pebblesCount, maxPerTurn)
	}

	*e.state = GameState{
		PebblesCount:      pebblesCount,
		MaxPebblesPerTurn: maxPerTurn,
		Difficulty:        difficulty,
		PebblesRemaining:  pebblesCount,
		FirstPlayer:       User,
	}
	evt := Restarted()
	if e.rules.AwardProgramOnRestart {
		e.state.setWinner(Program)
		evt = Won(Program)
	}
	return e.state.clone(), evt, nil
}

// GiveUp ends the game in the program's favor, even if it already ended.
func (e *Engine) GiveUp() (GameState, Event, error) {
	if e.state == nil {
		return GameState{}, Event{}, ErrNotInitialized
	}
	e.state.setWinner(Program)
	e.state.PebblesRemaining = 0
	return e.state.clone(), Won(Program), nil
}

// TakeTurn removes requested pebbles for the user and, unless that empties
// the pile, lets the program answer.
//
// A rejected move leaves the state untouched, replies CounterTurn(requested)
// and returns an error wrapping ErrInvalidMove. The program's move is chosen
// before anything is committed, so a randomness failure also leaves the
// state untouched.
func (e *Engine) TakeTurn(requested uint32) (GameState, Event, error) {
	if e.state == nil {
		return GameState{}, Event{}, ErrNotInitialized
	}
	st := e.state
	if requested == 0 || requested > st.MaxPebblesPerTurn || requested > st.PebblesRemaining {
		return st.clone(), CounterTurn(requested), fmt.Errorf("%w: %d (max %d, remaining %d)",
			ErrInvalidMove, requested, st.MaxPebblesPerTurn, st.PebblesRemaining)
	}

	remaining := st.PebblesRemaining - requested
	if remaining == 0 {
		st.PebblesRemaining = 0
		st.setWinner(User)
		return st.clone(), Won(User), nil
	}

	take, err := SelectOpponentMove(st.MaxPebblesPerTurn, remaining, st.Difficulty, e.rng)
	if err != nil {
		return st.clone(), Event{}, err
	}
	if take > remaining {
		take = remaining
	}

	st.PebblesRemaining = remaining - take
	if st.PebblesRemaining == 0 {
		st.setWinner(Program)
		return st.clone(), Won(Program), nil
	}
	if e.rules.EchoUserMove {
		return st.clone(), CounterTurn(requested), nil
	}
	return st.clone(), CounterTurn(take), nil
}

func (s *GameState) setWinner(p Player) {
	s.Winner = &p
}

// SelectOpponentMove picks how many pebbles the program removes.
//
// Easy draws r and returns min(r, maxPerTurn); the result may be 0.
// Hard returns maxPerTurn when it covers the pile, otherwise the forcing move
// remaining mod (maxPerTurn+1) when it is non-zero, otherwise the Easy draw.
//
// The result may exceed remaining; callers clamp it.
func SelectOpponentMove(maxPerTurn, remaining uint32, difficulty DifficultyLevel, src random.Source) (uint32, error) {
	if difficulty == Hard {
		if maxPerTurn >= remaining {
			return maxPerTurn, nil
		}
		if rem := remaining % (maxPerTurn + 1); rem > 0 {
			return rem, nil
		}
	}
	return boundedDraw(maxPerTurn, src)
}

func boundedDraw(maxPerTurn uint32, src random.Source) (uint32, error) {
	if src == nil {
		return 0, ErrRandomnessUnavailable
	}
	r, err := src.Uint32()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRandomnessUnavailable, err)
	}
	return min(r, maxPerTurn), nil
}
