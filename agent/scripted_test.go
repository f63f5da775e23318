package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/parley/interview"
)

// scriptStep is one canned backend response, or an error to return instead.
type scriptStep struct {
	reply *schema.Message
	err   error
}

// backendCall records what one Generate call saw.
type backendCall struct {
	msgs  []*schema.Message
	tools []*schema.ToolInfo
}

// scriptedModel replays a fixed response sequence and records every call, so
// a test can assert both the conversation flow and the tools offered at each
// step without a live backend.
type scriptedModel struct {
	steps []scriptStep
	calls []backendCall
}

func (m *scriptedModel) Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	o := model.GetCommonOptions(&model.Options{}, opts...)
	m.calls = append(m.calls, backendCall{msgs: msgs, tools: o.Tools})
	if len(m.steps) == 0 {
		return nil, fmt.Errorf("no scripted reply for call %d", len(m.calls))
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	if step.err != nil {
		return nil, step.err
	}
	return step.reply, nil
}

func (m *scriptedModel) Stream(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	resp, err := m.Generate(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{resp}), nil
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func (m *scriptedModel) exhausted() bool {
	return len(m.steps) == 0
}

func say(content string) scriptStep {
	return scriptStep{reply: &schema.Message{Role: schema.Assistant, Content: content}}
}

func callTool(id, name, args string) scriptStep {
	return scriptStep{reply: &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:   id,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      name,
				Arguments: args,
			},
		}},
	}}
}

func fail(err error) scriptStep {
	return scriptStep{err: err}
}

// hiringDoc covers all three lifecycles plus a conditional respondent trait.
func hiringDoc(t *testing.T) *interview.Interview {
	t.Helper()
	def := &interview.Definition{
		Title:       "Team staffing check",
		Description: "A short staffing conversation.",
		Respondent: interview.RoleDefinition{
			Label: "team lead",
			ConditionalTraits: []interview.TraitDefinition{
				{Name: "terse", Condition: "answers in fragments"},
			},
		},
		Fields: []interview.FieldDefinition{
			{
				Name:   "headcount",
				Prompt: "how many people are on the team",
				Transforms: []interview.TransformDefinition{
					{Name: "as_int", Kind: "int"},
				},
			},
			{Name: "mood", Prompt: "the respondent's overall mood", Lifecycle: "silent"},
			{Name: "summary", Prompt: "one sentence staffing summary", Lifecycle: "derived"},
		},
	}
	doc, err := def.Build()
	require.NoError(t, err)
	return doc
}

// openDoc has only openly asked fields, so no digest pass ever runs.
func openDoc(t *testing.T) *interview.Interview {
	t.Helper()
	def := &interview.Definition{
		Title: "Contact details",
		Fields: []interview.FieldDefinition{
			{Name: "name", Prompt: "the respondent's name"},
			{Name: "email", Prompt: "the respondent's email", Must: []string{"a valid address"}},
		},
	}
	doc, err := def.Build()
	require.NoError(t, err)
	return doc
}

func newTestOrchestrator(t *testing.T, backend *scriptedModel) *Orchestrator {
	t.Helper()
	o, err := New(Config{Backend: backend})
	require.NoError(t, err)
	return o
}
