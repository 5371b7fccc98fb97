package conversation

import (
	"context"
	"errors"
	"net/url"
	"sync"
)

// ErrNotFound is returned by stores when no state exists for a key.
var ErrNotFound = errors.New("conversation state not found")

// Store keeps one State per conversation key.
type Store interface {
	Get(ctx context.Context, key string) (*State, error)
	Save(ctx context.Context, key string, st *State) error
	Delete(ctx context.Context, key string) error
}

// Key scopes a conversation to its user. Both parts are escaped so that a ':'
// inside an id cannot make two pairs share a key.
func Key(userID, conversationID string) string {
	return url.QueryEscape(userID) + ":" + url.QueryEscape(conversationID)
}

// MemoryStore is an in-process Store. It hands out copies, never shared pointers.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*State)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.states[key]
	if !ok {
		return nil, ErrNotFound
	}
	return st.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, key string, st *State) error {
	if st == nil {
		return errors.New("nil state")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = st.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}
