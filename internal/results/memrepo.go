package results

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// memrepo is the in-memory Recorder used when no database is configured.
type memrepo struct {
	mu     sync.RWMutex
	byGame map[string]*Result
}

func NewMemoryRepository() Recorder {
	return &memrepo{byGame: make(map[string]*Result)}
}

func (m *memrepo) SaveResult(ctx context.Context, r *Result) error {
	if r == nil || strings.TrimSpace(r.GameID) == "" {
		return nil
	}
	cp := *r
	cp.Moves = append([]string(nil), r.Moves...)
	m.mu.Lock()
	m.byGame[cp.GameID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *memrepo) Recent(ctx context.Context, limit int) ([]*Result, error) {
	m.mu.RLock()
	items := make([]*Result, 0, len(m.byGame))
	for _, r := range m.byGame {
		cp := *r
		items = append(items, &cp)
	}
	m.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].GameID > items[j].GameID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
