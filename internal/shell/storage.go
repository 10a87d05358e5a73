package shell

import (
	"context"
	"sync"
)

// Keys the shell persists per visitor.
const (
	PreferredViewKey = "preferredView"
	ScrollKey        = "filterScrollPosition"
)

// Storage is the visitor's persistent key/value store. In production it is
// the cookie session; values written during a request are saved with its
// response.
type Storage interface {
	GetString(ctx context.Context, key string) string
	PutString(ctx context.Context, key, value string)
	PutInt(ctx context.Context, key string, value int)
	// PopInt returns the value and removes it. ok is false when absent.
	PopInt(ctx context.Context, key string) (value int, ok bool)
}

// MemoryStorage keeps values in a map, ignoring the context.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]any
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]any{}}
}

func (s *MemoryStorage) GetString(_ context.Context, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.values[key].(string)
	return v
}

func (s *MemoryStorage) PutString(_ context.Context, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStorage) PutInt(_ context.Context, key string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStorage) PopInt(_ context.Context, key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key].(int)
	if ok {
		delete(s.values, key)
	}
	return v, ok
}
