// session/session.go
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/wfunc/pebbles/broadcast"
	"github.com/wfunc/pebbles/game"
	"github.com/wfunc/pebbles/logger"
	"github.com/wfunc/pebbles/monitor"
	"github.com/wfunc/pebbles/random"
	"github.com/wfunc/pebbles/state"
)

// Operation names carried in broadcast notices.
const (
	OpInitialize = "initialize"
	OpTurn       = "turn"
	OpGiveUp     = "give_up"
	OpRestart    = "restart"
)

// Reply is the answer to one request. Event is set for turn, give-up and
// restart; State for initialize and state queries.
type Reply struct {
	GameID string          `json:"game_id,omitempty"`
	Event  *game.Event     `json:"event,omitempty"`
	State  *game.GameState `json:"state,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Params are the arguments of Initialize and Restart.
type Params struct {
	PebblesCount      uint32               `json:"pebbles_count"`
	MaxPebblesPerTurn uint32               `json:"max_pebbles_per_turn"`
	Difficulty        game.DifficultyLevel `json:"difficulty"`
}

// Session owns the single game of the process and everything observing it.
type Session struct {
	ID         string // regenerated by Initialize and Restart
	LastActive time.Time

	engine      *game.Engine
	machine     state.StateMachine
	idle        *state.Phase
	playing     *state.Phase
	finished    *state.Phase
	broadcaster broadcast.Broadcaster
	monitor     *monitor.Monitor
	clock       quartz.Clock
	mutex       sync.Mutex
}

type Option func(*Session)

func WithBroadcaster(b broadcast.Broadcaster) Option {
	return func(s *Session) { s.broadcaster = b }
}

// WithMonitor records metrics for every request.
func WithMonitor(m *monitor.Monitor) Option {
	return func(s *Session) { s.monitor = m }
}

func WithClock(c quartz.Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithRules(r game.Rules) Option {
	return func(s *Session) { s.engine = game.NewEngine(s.engine.Source(), game.WithRules(r)) }
}

func NewSession(src random.Source, opts ...Option) *Session {
	s := &Session{
		engine:      game.NewEngine(src),
		broadcaster: broadcast.NewEventBroadcaster(),
		clock:       quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.LastActive = s.clock.Now()

	s.idle = state.NewPhase(state.Idle, nil)
	s.playing = state.NewPhase(state.Playing, func() {
		logger.Log.Debugf("Game %s is in progress", s.ID)
	})
	s.finished = state.NewPhase(state.Finished, func() {
		logger.Log.Debugf("Game %s is finished", s.ID)
	})

	sm := state.NewBaseStateMachine(s.idle)
	never := func() bool { return false }
	blocked := []struct{ from, to state.State }{
		{s.idle, s.finished},
		{s.playing, s.idle},
		{s.finished, s.idle},
	}
	for _, tr := range blocked {
		if err := sm.AddTransition(tr.from, tr.to, never); err != nil {
			logger.Log.Errorf("Failed to block transition %s -> %s: %v", tr.from.GetID(), tr.to.GetID(), err)
		}
	}
	s.machine = sm

	return s
}

// Phase returns the lifecycle phase id: idle, playing or finished.
func (s *Session) Phase() string {
	return s.machine.GetCurrentState().GetID()
}

// Initialize starts the game. It fails with game.ErrInvalidParameters when
// PebblesCount <= MaxPebblesPerTurn and with game.ErrAlreadyInitialized when
// a game exists.
func (s *Session) Initialize(ctx context.Context, p Params) (Reply, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return Reply{Error: err.Error()}, err
	}
	defer done()

	st, err := s.engine.Initialize(p.PebblesCount, p.MaxPebblesPerTurn, p.Difficulty)
	if err != nil {
		logger.Log.Infow("Initialize rejected", "pebbles_count", p.PebblesCount,
			"max_pebbles_per_turn", p.MaxPebblesPerTurn, "error", err)
		return Reply{Error: err.Error()}, err
	}

	s.ID = uuid.New().String()
	s.syncPhase(st)
	logger.Log.Infow("Game initialized", "game_id", s.ID, "pebbles_count", st.PebblesCount,
		"max_pebbles_per_turn", st.MaxPebblesPerTurn, "difficulty", st.Difficulty.String())
	s.publish(OpInitialize, nil, st, nil)

	return Reply{GameID: s.ID, State: &st}, nil
}

// Turn removes amount pebbles for the user and lets the program answer.
// A rejected move still carries CounterTurn(amount) in the reply, together
// with an error wrapping game.ErrInvalidMove.
func (s *Session) Turn(ctx context.Context, amount uint32) (Reply, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return Reply{Error: err.Error()}, err
	}
	defer done()

	afterFinish := s.Phase() == state.Finished
	st, evt, err := s.engine.TakeTurn(amount)
	switch {
	case errors.Is(err, game.ErrNotInitialized):
		return Reply{Error: err.Error()}, err
	case errors.Is(err, game.ErrInvalidMove):
		s.incTurn(monitor.OutcomeRejected)
		logger.Log.Infow("Turn rejected", "game_id", s.ID, "requested", amount, "error", err)
		s.publish(OpTurn, &evt, st, err)
		return Reply{GameID: s.ID, Event: &evt, Error: err.Error()}, err
	case err != nil:
		logger.Log.Errorw("Turn aborted", "game_id", s.ID, "requested", amount, "error", err)
		s.publish(OpTurn, nil, st, err)
		return Reply{GameID: s.ID, Error: err.Error()}, err
	}

	if afterFinish {
		s.incTurn(monitor.OutcomeAfterFinish)
		logger.Log.Warnw("Turn played after the game was decided", "game_id", s.ID, "requested", amount)
	} else {
		s.incTurn(monitor.OutcomeAccepted)
	}

	s.syncPhase(st)
	logger.Log.Infow("Turn resolved", "game_id", s.ID, "requested", amount,
		"event", evt.String(), "pebbles_remaining", st.PebblesRemaining)
	s.publish(OpTurn, &evt, st, nil)

	return Reply{GameID: s.ID, Event: &evt}, nil
}

// GiveUp hands the win to the program.
func (s *Session) GiveUp(ctx context.Context) (Reply, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return Reply{Error: err.Error()}, err
	}
	defer done()

	st, evt, err := s.engine.GiveUp()
	if err != nil {
		return Reply{Error: err.Error()}, err
	}

	s.syncPhase(st)
	logger.Log.Infow("User gave up", "game_id", s.ID)
	s.publish(OpGiveUp, &evt, st, nil)

	return Reply{GameID: s.ID, Event: &evt}, nil
}

// Restart replaces the game and assigns a new game id.
func (s *Session) Restart(ctx context.Context, p Params) (Reply, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return Reply{Error: err.Error()}, err
	}
	defer done()

	st, evt, err := s.engine.Restart(p.PebblesCount, p.MaxPebblesPerTurn, p.Difficulty)
	if err != nil {
		return Reply{GameID: s.ID, Error: err.Error()}, err
	}

	previous := s.ID
	s.ID = uuid.New().String()
	s.syncPhase(st)
	logger.Log.Infow("Game restarted", "game_id", s.ID, "previous_game_id", previous,
		"pebbles_count", st.PebblesCount, "difficulty", st.Difficulty.String(), "event", evt.String())
	s.publish(OpRestart, &evt, st, nil)

	return Reply{GameID: s.ID, Event: &evt}, nil
}

// QueryState returns a snapshot of the game without modifying it.
func (s *Session) QueryState(ctx context.Context) (Reply, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return Reply{Error: err.Error()}, err
	}
	defer done()

	st, err := s.engine.State()
	if err != nil {
		return Reply{Error: err.Error()}, err
	}
	return Reply{GameID: s.ID, State: &st}, nil
}

// begin locks the session and starts the latency measurement. The returned
// func must be deferred.
func (s *Session) begin(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	start := s.clock.Now()
	s.LastActive = start
	if s.monitor != nil {
		s.monitor.IncMessagesReceived()
	}
	return func() {
		if s.monitor != nil {
			s.monitor.ObserveMessageLatency(s.clock.Since(start))
		}
		s.mutex.Unlock()
	}, nil
}

func (s *Session) syncPhase(st game.GameState) {
	next := s.playing
	if st.Finished() {
		next = s.finished
	}
	if err := s.machine.ChangeState(next); err != nil {
		logger.Log.Errorf("Game %s cannot move to %s: %v", s.ID, next.GetID(), err)
	}
}

func (s *Session) publish(op string, evt *game.Event, st game.GameState, err error) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Publish(broadcast.Notice{GameID: s.ID, Op: op, Event: evt, State: st, Err: err})
}

func (s *Session) incTurn(outcome string) {
	if s.monitor != nil {
		s.monitor.IncTurn(outcome)
	}
}
