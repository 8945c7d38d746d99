package session

import "github.com/park285/cheese-chess/internal/chess"

const DefaultUndoCapacity = 50

// History is a bounded undo stack. When full, the oldest snapshot is evicted.
type History struct {
	items    []*chess.GameState
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultUndoCapacity
	}
	return &History{capacity: capacity}
}

// Push stores a copy of s.
func (h *History) Push(s *chess.GameState) {
	if s == nil {
		return
	}
	if len(h.items) == h.capacity {
		copy(h.items, h.items[1:])
		h.items[len(h.items)-1] = nil
		h.items = h.items[:len(h.items)-1]
	}
	h.items = append(h.items, s.Clone())
}

// Pop removes and returns the newest snapshot.
func (h *History) Pop() (*chess.GameState, error) {
	n := len(h.items)
	if n == 0 {
		return nil, ErrNoHistory
	}
	top := h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	return top, nil
}

func (h *History) Len() int { return len(h.items) }

func (h *History) Cap() int { return h.capacity }

func (h *History) Clear() {
	clear(h.items)
	h.items = h.items[:0]
}

// Snapshots returns copies, oldest first.
func (h *History) Snapshots() []*chess.GameState {
	out := make([]*chess.GameState, len(h.items))
	for i, s := range h.items {
		out[i] = s.Clone()
	}
	return out
}

func restoreHistory(capacity int, items []*chess.GameState) *History {
	h := NewHistory(capacity)
	for _, s := range items {
		h.Push(s)
	}
	return h
}
