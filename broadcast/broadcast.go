// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"sync"

	"github.com/wfunc/pebbles/game"
	"github.com/wfunc/pebbles/logger"
)

var (
	ErrListenerNotFound = errors.New("listener not found")
)

// Notice describes one completed session operation.
type Notice struct {
	GameID string
	Op     string
	Event  *game.Event // nil for operations without a reply event
	State  game.GameState
	Err    error
}

// Listener receives notices in subscription order.
type Listener interface {
	OnNotice(n Notice) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(n Notice) error

func (f ListenerFunc) OnNotice(n Notice) error { return f(n) }

// Broadcaster fans notices out to listeners.
type Broadcaster interface {
	Publish(n Notice)
}

type subscription struct {
	id       int64
	listener Listener
}

// EventBroadcaster delivers every notice synchronously to each subscriber.
type EventBroadcaster struct {
	mutex  sync.RWMutex
	subs   []subscription
	nextID int64
}

func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{nextID: 1}
}

// Subscribe registers l and returns an id for Unsubscribe.
func (b *EventBroadcaster) Subscribe(l Listener) int64 {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, listener: l})
	return id
}

func (b *EventBroadcaster) Unsubscribe(id int64) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrListenerNotFound
}

// Publish delivers n to every listener. A failing listener is logged and
// does not stop delivery to the rest.
func (b *EventBroadcaster) Publish(n Notice) {
	b.mutex.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mutex.RUnlock()

	for _, s := range subs {
		if err := s.listener.OnNotice(n); err != nil {
			logger.Log.Warnf("Listener %d failed on %s for game %s: %v", s.id, n.Op, n.GameID, err)
			continue
		}
	}
}

// Len returns the number of subscribers.
func (b *EventBroadcaster) Len() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.subs)
}
