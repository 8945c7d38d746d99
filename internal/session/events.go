package session

import (
	"sync"

	"github.com/park285/cheese-chess/internal/chess"
)

type EventKind string

const (
	EventState        EventKind = "state"
	EventMove         EventKind = "move"
	EventOpponentMove EventKind = "opponent_move"
	EventReset        EventKind = "reset"
	EventUndo         EventKind = "undo"
	EventClosed       EventKind = "closed"
)

// Event is delivered to subscribers. View is shared between subscribers and must not be mutated.
type Event struct {
	Kind EventKind
	View *View
	Move *chess.MoveRecord
}

const subscriberBuffer = 16

type subscribers struct {
	mu    sync.Mutex
	next  int
	chans map[int]chan Event
}

func (s *subscribers) add() (int, chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chans == nil {
		s.chans = make(map[int]chan Event)
	}
	s.next++
	ch := make(chan Event, subscriberBuffer)
	s.chans[s.next] = ch
	return s.next, ch
}

func (s *subscribers) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.chans[id]; ok {
		delete(s.chans, id)
		close(ch)
	}
}

// publish never blocks; a subscriber with a full buffer misses the event.
func (s *subscribers) publish(ev Event) (dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.chans {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	return dropped
}

func (s *subscribers) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.chans {
		delete(s.chans, id)
		close(ch)
	}
}

func (s *subscribers) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chans)
}
