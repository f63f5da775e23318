package agent

import (
	"context"
)

// Store namespaces a Cache and derives the storage key from the context, so
// several stores can share one cache without colliding.
type Store[S any] struct {
	core      Cache[S]
	namespace string
	keyFn     func(ctx context.Context) string
}

func NewStore[S any](core Cache[S], namespace string, keyFn func(ctx context.Context) string) Store[S] {
	return Store[S]{
		core:      core,
		namespace: namespace,
		keyFn:     keyFn,
	}
}

func (s Store[S]) key(ctx context.Context) string {
	return s.namespace + ":" + s.keyFn(ctx)
}

func (s Store[S]) Set(ctx context.Context, val S) error {
	return s.core.Set(ctx, s.key(ctx), val)
}

func (s Store[S]) Get(ctx context.Context) (S, bool, error) {
	return s.core.Get(ctx, s.key(ctx))
}

func (s Store[S]) Del(ctx context.Context) error {
	return s.core.Del(ctx, s.key(ctx))
}

func (s Store[S]) Exists(ctx context.Context) (bool, error) {
	return s.core.Exists(ctx, s.key(ctx))
}
