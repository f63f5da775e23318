package checkpoint

import (
	"context"
	"sync"
)

// Store persists envelopes by conversation id.
type Store interface {
	Save(ctx context.Context, id string, env *Envelope) error
	Load(ctx context.Context, id string) (*Envelope, bool, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps envelopes in memory, mainly for tests.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[string][]byte{}}
}

func (s *MemoryStore) Save(ctx context.Context, id string, env *Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.m[id] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*Envelope, bool, error) {
	s.mu.RLock()
	data, ok := s.m[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	env, err := Decode(data)
	if err != nil {
		return nil, false, err
	}
	return env, true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
