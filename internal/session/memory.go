package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"tablero/internal/model"
)

// MemoryStore keeps sessions in an expirable LRU. The least recently used
// session is evicted once capacity is reached.
type MemoryStore struct {
	cache *expirable.LRU[string, *model.Session]
}

func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: expirable.NewLRU[string, *model.Session](capacity, nil, ttl),
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*model.Session, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *MemoryStore) Save(_ context.Context, s *model.Session) error {
	m.cache.Add(s.ID, clone(s))
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Remove(id)
	return nil
}
