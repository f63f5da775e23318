package agent

import (
	"errors"
	"fmt"

	"github.com/tbxark/parley/types"
)

var (
	// ErrInputRequired is returned when Advance is called on an ongoing
	// conversation without respondent input. Only the opening call may omit it.
	ErrInputRequired = errors.New("respondent input required")
	// ErrToolRounds is returned when one turn exceeds the tool round limit.
	ErrToolRounds = errors.New("tool round limit exceeded")
	// ErrNoToolCall is returned when a forced tool call comes back without one.
	ErrNoToolCall = errors.New("model returned no tool call")
	// ErrNoDocument is returned by a session that has no document and no way
	// to create one.
	ErrNoDocument = errors.New("no interview document for session")
)

// BackendError wraps a model failure with the turn stage it happened in. The
// document and history the caller holds are unchanged; the same call can be
// retried.
type BackendError struct {
	Stage types.Stage
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend failure during %s: %v", e.Stage, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
