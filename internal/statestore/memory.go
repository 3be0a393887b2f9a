package statestore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// MemoryStore — хранилище в памяти процесса (LRU с TTL).
// Используется, когда Redis не настроен; состояние теряется при рестарте.
type MemoryStore struct {
	cache *expirable.LRU[string, []byte]
}

// NewMemoryStore создаёт хранилище ёмкостью maxEntries с временем жизни ttl.
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: expirable.NewLRU[string, []byte](maxEntries, nil, ttl),
	}
}

// Load возвращает копию сохранённого состояния.
func (s *MemoryStore) Load(_ context.Context, key string) (*model.WorkflowState, error) {
	data, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return decode(data)
}

// Save сохраняет состояние.
func (s *MemoryStore) Save(_ context.Context, key string, state *model.WorkflowState) error {
	data, err := encode(state)
	if err != nil {
		return err
	}
	s.cache.Add(key, data)
	return nil
}

// Delete удаляет состояние.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}

// Ping всегда успешен.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len возвращает количество сохранённых состояний.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
