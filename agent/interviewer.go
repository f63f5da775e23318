package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
)

var _ adk.Agent = (*Interviewer)(nil)

// Interviewer exposes a session as an adk agent so an interview can run
// inside an adk runner alongside other agents. An empty input starts the
// conversation with the collector speaking first.
type Interviewer struct {
	name        string
	description string
	session     *Session
}

func NewInterviewer(name, description string, session *Session) *Interviewer {
	return &Interviewer{
		name:        name,
		description: description,
		session:     session,
	}
}

func (a *Interviewer) Name(ctx context.Context) string {
	return a.name
}

func (a *Interviewer) Description(ctx context.Context) string {
	return a.description
}

func (a *Interviewer) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			e := recover()
			if e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		var userInput string
		if len(input.Messages) > 0 {
			userInput = input.Messages[len(input.Messages)-1].Content
		}
		turn, err := a.session.Chat(ctx, userInput)
		if err != nil {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("advance interview: %w", err),
			})
			return
		}
		gen.Send(&adk.AgentEvent{
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					IsStreaming: false,
					Message: &schema.Message{
						Role:    schema.Assistant,
						Content: turn.Message,
					},
					Role: schema.Assistant,
				},
			},
		})
	}()
	return iter
}
