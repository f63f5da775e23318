// Package checkpoint captures an interview mid-flight so it can be resumed
// later, on this process or another. An envelope bundles the document
// snapshot with the transcript; the journal records a run as a base envelope
// plus merge-patch deltas so long interviews stay cheap to persist.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/parley/interview"
)

// Version tags the envelope layout. Restore refuses other versions.
const Version = "1"

// ErrVersionMismatch is returned when an envelope was written by an
// incompatible layout.
var ErrVersionMismatch = errors.New("checkpoint version mismatch")

// Envelope is one resumable point of a conversation.
type Envelope struct {
	Version   string            `json:"version"`
	ID        string            `json:"id"`
	Interview json.RawMessage   `json:"interview"`
	History   []*schema.Message `json:"history,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Capture snapshots a document and its transcript.
func Capture(doc *interview.Interview, history []*schema.Message) (*Envelope, error) {
	snapshot, err := doc.Snapshot()
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Version:   Version,
		ID:        doc.ID,
		Interview: snapshot,
		History:   history,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Restore rebuilds the document and transcript. The snapshot goes through
// full revalidation, so a checkpoint from a changed schema fails here rather
// than corrupting a running interview.
func (e *Envelope) Restore() (*interview.Interview, []*schema.Message, error) {
	if e.Version != Version {
		return nil, nil, fmt.Errorf("%w: have %q, want %q", ErrVersionMismatch, e.Version, Version)
	}
	doc, err := interview.FromSnapshot(e.Interview)
	if err != nil {
		return nil, nil, fmt.Errorf("restore interview: %w", err)
	}
	return doc, e.History, nil
}

// Encode serializes the envelope for storage.
func (e *Envelope) Encode() ([]byte, error) {
	data, err := sonic.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal checkpoint: %w", err)
	}
	return data, nil
}

// Decode parses a stored envelope.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := sonic.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &e, nil
}
