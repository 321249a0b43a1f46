// Core type definitions for the pebbles game engine.

package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DifficultyLevel governs the opponent's move policy.
type DifficultyLevel int

const (
	Easy DifficultyLevel = iota
	Hard
)

func (d DifficultyLevel) String() string {
	switch d {
	case Easy:
		return "Easy"
	case Hard:
		return "Hard"
	default:
		return fmt.Sprintf("DifficultyLevel(%d)", int(d))
	}
}

// ParseDifficulty accepts "easy" or "hard" in any case.
func ParseDifficulty(s string) (DifficultyLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "hard":
		return Hard, nil
	}
	return Easy, fmt.Errorf("unknown difficulty %q", s)
}

func (d DifficultyLevel) MarshalText() ([]byte, error) {
	if d != Easy && d != Hard {
		return nil, fmt.Errorf("invalid difficulty %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *DifficultyLevel) UnmarshalText(b []byte) error {
	v, err := ParseDifficulty(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Player is a move originator or a winner.
type Player int

const (
	User Player = iota
	Program
)

func (p Player) String() string {
	switch p {
	case User:
		return "User"
	case Program:
		return "Program"
	default:
		return fmt.Sprintf("Player(%d)", int(p))
	}
}

func (p Player) MarshalText() ([]byte, error) {
	if p != User && p != Program {
		return nil, fmt.Errorf("invalid player %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Player) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "user":
		*p = User
	case "program":
		*p = Program
	default:
		return fmt.Errorf("unknown player %q", string(b))
	}
	return nil
}

// GameState is the single mutable entity of a game. PebblesCount is the pile
// size at game start and stays fixed until a restart; PebblesRemaining is the
// live counter. Winner is nil while the game is in progress.
type GameState struct {
	PebblesCount      uint32          `json:"pebbles_count"`
	MaxPebblesPerTurn uint32          `json:"max_pebbles_per_turn"`
	Difficulty        DifficultyLevel `json:"difficulty"`
	PebblesRemaining  uint32          `json:"pebbles_remaining"`
	FirstPlayer       Player          `json:"first_player"`
	Winner            *Player         `json:"winner"`
}

// Finished reports whether a winner has been decided.
func (s GameState) Finished() bool { return s.Winner != nil }

// clone returns a copy that shares no memory with s.
func (s GameState) clone() GameState {
	if s.Winner != nil {
		w := *s.Winner
		s.Winner = &w
	}
	return s
}

// EventKind tells which reply an operation produced.
type EventKind int

const (
	EventWon EventKind = iota
	EventCounterTurn
	EventRestarted
)

// Event is the reply emitted by a state-changing operation.
type Event struct {
	Kind   EventKind
	Winner Player // set for EventWon
	Count  uint32 // set for EventCounterTurn
}

func Won(p Player) Event { return Event{Kind: EventWon, Winner: p} }
func CounterTurn(n uint32) Event { return Event{Kind: EventCounterTurn, Count: n} }
func Restarted() Event { return Event{Kind: EventRestarted} }

func (e Event) String() string {
	switch e.Kind {
	case EventWon:
		return fmt.Sprintf("Won(%s)", e.Winner)
	case EventCounterTurn:
		return fmt.Sprintf("CounterTurn(%d)", e.Count)
	case EventRestarted:
		return "Restarted"
	default:
		return fmt.Sprintf("Event(%d)", int(e.Kind))
	}
}

type eventJSON struct {
	Won         *Player `json:"won,omitempty"`
	CounterTurn *uint32 `json:"counter_turn,omitempty"`
	Restarted   bool    `json:"restarted,omitempty"`
}

// MarshalJSON encodes the event as a single-key object, e.g. {"won":"User"}
// or {"counter_turn":2}.
func (e Event) MarshalJSON() ([]byte, error) {
	var out eventJSON
	switch e.Kind {
	case EventWon:
		w := e.Winner
		out.Won = &w
	case EventCounterTurn:
		n := e.Count
		out.CounterTurn = &n
	case EventRestarted:
		out.Restarted = true
	default:
		return nil, fmt.Errorf("invalid event kind %d", int(e.Kind))
	}
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var in eventJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch {
	case in.Won != nil:
		*e = Won(*in.Won)
	case in.CounterTurn != nil:
		*e = CounterTurn(*in.CounterTurn)
	case in.Restarted:
		*e = Restarted()
	default:
		return errors.New("event: no known key")
	}
	return nil
}
