package checkpoint

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Journal records the successive checkpoints of one conversation as a base
// envelope plus one merge patch per turn. Because committed interview data
// only ever grows, the per-turn patches stay small regardless of how long
// the conversation runs.
type Journal struct {
	mu     sync.Mutex
	base   json.RawMessage
	last   json.RawMessage
	deltas []json.RawMessage
}

func NewJournal() *Journal {
	return &Journal{}
}

// Record appends one checkpoint revision.
func (j *Journal) Record(env *Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.base == nil {
		j.base = data
		j.last = data
		return nil
	}
	delta, err := jsonpatch.CreateMergePatch(j.last, data)
	if err != nil {
		return fmt.Errorf("diff checkpoint: %w", err)
	}
	j.deltas = append(j.deltas, delta)
	j.last = data
	return nil
}

// Len reports the number of recorded revisions.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.base == nil {
		return 0
	}
	return 1 + len(j.deltas)
}

// Head returns the latest revision.
func (j *Journal) Head() (*Envelope, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return nil, fmt.Errorf("empty journal")
	}
	return Decode(j.last)
}

// At replays the journal up to revision rev, 0 being the base.
func (j *Journal) At(rev int) (*Envelope, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.base == nil {
		return nil, fmt.Errorf("empty journal")
	}
	if rev < 0 || rev > len(j.deltas) {
		return nil, fmt.Errorf("revision %d out of range [0,%d]", rev, len(j.deltas))
	}
	doc := j.base
	for i := 0; i < rev; i++ {
		next, err := jsonpatch.MergePatch(doc, j.deltas[i])
		if err != nil {
			return nil, fmt.Errorf("replay revision %d: %w", i+1, err)
		}
		doc = next
	}
	return Decode(doc)
}

type journalFile struct {
	Base   json.RawMessage   `json:"base"`
	Deltas []json.RawMessage `json:"deltas,omitempty"`
}

// Encode serializes the whole journal.
func (j *Journal) Encode() ([]byte, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	data, err := sonic.Marshal(journalFile{Base: j.base, Deltas: j.deltas})
	if err != nil {
		return nil, fmt.Errorf("marshal journal: %w", err)
	}
	return data, nil
}

// DecodeJournal parses a serialized journal and rebuilds its replay state.
func DecodeJournal(data []byte) (*Journal, error) {
	var file journalFile
	if err := sonic.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal journal: %w", err)
	}
	j := &Journal{base: file.Base, deltas: file.Deltas}
	if j.base == nil {
		return j, nil
	}
	last := file.Base
	for i, delta := range file.Deltas {
		next, err := jsonpatch.MergePatch(last, delta)
		if err != nil {
			return nil, fmt.Errorf("replay revision %d: %w", i+1, err)
		}
		last = next
	}
	j.last = last
	return j, nil
}
