package agent

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is the storage primitive behind session state. Implementations must
// be safe for concurrent use.
type Cache[S any] interface {
	Set(ctx context.Context, key string, val S) error
	Get(ctx context.Context, key string) (S, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// MemoryCache is a plain map cache for tests and single-process use.
type MemoryCache[S any] struct {
	mu sync.RWMutex
	m  map[string]S
}

func NewMemoryCache[S any]() *MemoryCache[S] {
	return &MemoryCache[S]{m: map[string]S{}}
}

func (m *MemoryCache[S]) Set(ctx context.Context, key string, val S) error {
	m.mu.Lock()
	m.m[key] = val
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	m.mu.RLock()
	val, ok := m.m[key]
	m.mu.RUnlock()
	return val, ok, nil
}

func (m *MemoryCache[S]) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.m, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	_, ok := m.m[key]
	m.mu.RUnlock()
	return ok, nil
}

// LRUCache bounds resident sessions; the least recently touched ones are
// evicted first. An evicted session looks the same as one never started.
type LRUCache[S any] struct {
	cache *lru.Cache[string, S]
}

func NewLRUCache[S any](size int) (*LRUCache[S], error) {
	c, err := lru.New[string, S](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache[S]{cache: c}, nil
}

func (l *LRUCache[S]) Set(ctx context.Context, key string, val S) error {
	l.cache.Add(key, val)
	return nil
}

func (l *LRUCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	val, ok := l.cache.Get(key)
	return val, ok, nil
}

func (l *LRUCache[S]) Del(ctx context.Context, key string) error {
	l.cache.Remove(key)
	return nil
}

func (l *LRUCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	return l.cache.Contains(key), nil
}
