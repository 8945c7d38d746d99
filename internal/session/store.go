package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-chess/internal/chess"
)

// Snapshot is the persisted form of a session.
type Snapshot struct {
	ID        string             `json:"id"`
	Seq       uint64             `json:"seq"`
	State     *chess.GameState   `json:"state"`
	History   []*chess.GameState `json:"history"`
	White     Player             `json:"white"`
	Black     Player             `json:"black"`
	GameNo    int                `json:"game_no"`
	Room      string             `json:"room,omitempty"`
	StartedAt time.Time          `json:"started_at"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Store persists snapshots so sessions survive eviction and restarts.
// Load returns nil, nil for unknown ids.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, id string) (*Snapshot, error)
	Delete(ctx context.Context, id string) error
}

type memoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStore keeps encoded snapshots in process memory.
func NewMemoryStore() Store {
	return &memoryStore{items: make(map[string][]byte)}
}

func (m *memoryStore) Save(ctx context.Context, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[snap.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	m.mu.RLock()
	raw, ok := m.items[strings.TrimSpace(id)]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, strings.TrimSpace(id))
	m.mu.Unlock()
	return nil
}
