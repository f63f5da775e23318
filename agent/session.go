package agent

import (
	"context"

	"github.com/tbxark/parley/interview"
)

type sessionKeyContext struct{}

const defaultSessionKey = "default"

// WithSessionKey sets the routing key that separates concurrent
// conversations sharing the same stores.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyContext{}, key)
}

// SessionKeyFromContext gets the routing key from the context.
func SessionKeyFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(sessionKeyContext{})
	if value == nil {
		return "", false
	}
	key, ok := value.(string)
	return key, ok
}

// SessionKeyOrDefault falls back to a fixed key for single-session use.
func SessionKeyOrDefault(ctx context.Context) string {
	key, ok := SessionKeyFromContext(ctx)
	if ok && key != "" {
		return key
	}
	return defaultSessionKey
}

// DocumentStore persists one session's interview document. Documents are
// cloned on the way in and out, so nothing outside the merge reducer ever
// aliases stored state.
type DocumentStore struct {
	store Store[*interview.Interview]
}

func NewDocumentStore(core Cache[*interview.Interview]) *DocumentStore {
	return &DocumentStore{
		store: NewStore(core, "parley:interview", SessionKeyOrDefault),
	}
}

func NewMemoryDocumentStore() *DocumentStore {
	return NewDocumentStore(NewMemoryCache[*interview.Interview]())
}

func (s *DocumentStore) Load(ctx context.Context) (*interview.Interview, bool, error) {
	doc, ok, err := s.store.Get(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	return doc.Clone(), true, nil
}

func (s *DocumentStore) Save(ctx context.Context, doc *interview.Interview) error {
	return s.store.Set(ctx, doc.Clone())
}

func (s *DocumentStore) Clear(ctx context.Context) error {
	return s.store.Del(ctx)
}

// Session binds an orchestrator to per-conversation document and history
// storage. Blueprint creates the document for a conversation seen for the
// first time (or pruned since).
type Session struct {
	orchestrator *Orchestrator
	documents    *DocumentStore
	history      *HistoryStore
	blueprint    func(ctx context.Context) *interview.Interview
}

func NewSession(
	orchestrator *Orchestrator,
	documents *DocumentStore,
	history *HistoryStore,
	blueprint func(ctx context.Context) *interview.Interview,
) *Session {
	return &Session{
		orchestrator: orchestrator,
		documents:    documents,
		history:      history,
		blueprint:    blueprint,
	}
}

// Chat advances the stored conversation by one turn. Storage is only written
// after the turn succeeds, so a failed turn leaves the session replayable.
func (s *Session) Chat(ctx context.Context, input string) (*Turn, error) {
	doc, ok, err := s.documents.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		if s.blueprint == nil {
			return nil, ErrNoDocument
		}
		doc = s.blueprint(ctx)
	}
	history, err := s.history.Load(ctx)
	if err != nil {
		return nil, err
	}
	turn, err := s.orchestrator.Advance(ctx, doc, history, input)
	if err != nil {
		return nil, err
	}
	if err := s.documents.Save(ctx, turn.Interview); err != nil {
		return nil, err
	}
	if err := s.history.Save(ctx, turn.History); err != nil {
		return nil, err
	}
	return turn, nil
}

// Reset forgets the stored conversation.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.documents.Clear(ctx); err != nil {
		return err
	}
	return s.history.Clear(ctx)
}
