package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wfunc/pebbles/game"
)

var ErrMissingField = errors.New("missing field")

const (
	MsgTypeInitialize = 101
	MsgTypeTurn       = 201
	MsgTypeGiveUp     = 202
	MsgTypeRestart    = 203
	MsgTypeQueryState = 301
	MsgTypeReply      = 401
	MsgTypeError      = 500
)

// GameParams is the payload of Initialize and Restart. Every field is
// required when decoding.
type GameParams struct {
	PebblesCount      uint32               `json:"pebbles_count"`
	MaxPebblesPerTurn uint32               `json:"max_pebbles_per_turn"`
	Difficulty        game.DifficultyLevel `json:"difficulty"`
}

func (p *GameParams) UnmarshalJSON(b []byte) error {
	var raw struct {
		PebblesCount      *uint32               `json:"pebbles_count"`
		MaxPebblesPerTurn *uint32               `json:"max_pebbles_per_turn"`
		Difficulty        *game.DifficultyLevel `json:"difficulty"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	switch {
	case raw.PebblesCount == nil:
		return fmt.Errorf("%w: pebbles_count", ErrMissingField)
	case raw.MaxPebblesPerTurn == nil:
		return fmt.Errorf("%w: max_pebbles_per_turn", ErrMissingField)
	case raw.Difficulty == nil:
		return fmt.Errorf("%w: difficulty", ErrMissingField)
	}

	*p = GameParams{
		PebblesCount:      *raw.PebblesCount,
		MaxPebblesPerTurn: *raw.MaxPebblesPerTurn,
		Difficulty:        *raw.Difficulty,
	}
	return nil
}

type TurnRequest struct {
	Amount uint32 `json:"amount"`
}

// ErrorReply is sent with MsgTypeError when a request cannot be decoded or
// its message type is unknown.
type ErrorReply struct {
	MsgID uint16 `json:"msg_id"`
	Error string `json:"error"`
}

// MsgName returns a printable name for a message type.
func MsgName(msgID uint16) string {
	switch msgID {
	case MsgTypeInitialize:
		return "initialize"
	case MsgTypeTurn:
		return "turn"
	case MsgTypeGiveUp:
		return "give_up"
	case MsgTypeRestart:
		return "restart"
	case MsgTypeQueryState:
		return "query_state"
	case MsgTypeReply:
		return "reply"
	case MsgTypeError:
		return "error"
	}
	return "unknown"
}
