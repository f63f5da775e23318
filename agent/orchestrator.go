// Package agent drives one interview conversation turn by turn. The
// orchestrator owns the think, tools, listen and digest stages; documents are
// only changed through the merge reducer and every Advance call leaves its
// inputs untouched, so a failed turn can simply be retried.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/parley/contract"
	"github.com/tbxark/parley/interview"
	"github.com/tbxark/parley/merge"
	"github.com/tbxark/parley/types"
	"github.com/tbxark/parley/update"
)

const defaultMaxToolRounds = 5

// Config wires an orchestrator. Backend is required; everything else has a
// working default.
type Config struct {
	// Backend is the tool-calling chat model driving the conversation.
	Backend model.ToolCallingChatModel
	// Renderer builds the system and digest prompts. Defaults to
	// NewTemplateRenderer().
	Renderer Renderer
	// FieldCheck optionally gates each decoded field before it reaches the
	// reducer.
	FieldCheck update.FieldCheck
	// MaxToolRounds bounds think rounds within one Advance call. Defaults to 5.
	MaxToolRounds int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Orchestrator advances interviews. It holds no per-conversation state; the
// document and history passed to Advance carry everything.
type Orchestrator struct {
	backend   model.ToolCallingChatModel
	renderer  Renderer
	check     update.FieldCheck
	maxRounds int
	logger    *slog.Logger
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Backend == nil {
		return nil, errors.New("backend chat model is required")
	}
	o := &Orchestrator{
		backend:   cfg.Backend,
		renderer:  cfg.Renderer,
		check:     cfg.FieldCheck,
		maxRounds: cfg.MaxToolRounds,
		logger:    cfg.Logger,
	}
	if o.renderer == nil {
		o.renderer = NewTemplateRenderer()
	}
	if o.maxRounds <= 0 {
		o.maxRounds = defaultMaxToolRounds
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o, nil
}

// Turn is the outcome of one Advance call.
type Turn struct {
	// Message is the collector's reply to show the respondent.
	Message string
	// Interview is the advanced document. The document passed in is unchanged.
	Interview *interview.Interview
	// History is the full transcript including this turn.
	History []*schema.Message
	// Satisfied reports that every openly asked field holds a value.
	Satisfied bool
	// Complete reports that every field of every lifecycle holds a value.
	Complete bool
}

// Advance runs one turn: bind the respondent input, let the model think and
// call tools until it speaks, run the digest passes once the open questions
// are done, and return the reply. Input may be empty only on the opening
// call, when the collector speaks first.
func (o *Orchestrator) Advance(ctx context.Context, doc *interview.Interview, history []*schema.Message, input string) (*Turn, error) {
	if doc == nil {
		return nil, errors.New("nil interview document")
	}
	cur := doc.Clone()
	msgs := make([]*schema.Message, 0, len(history)+4)
	msgs = append(msgs, history...)

	if len(msgs) == 0 {
		o.logger.Debug("interview turn", "stage", types.StageInitialize, "interview", cur.ID)
		msgs = append(msgs, schema.SystemMessage(o.renderer.System(cur)))
		if input != "" {
			msgs = append(msgs, schema.UserMessage(input))
		}
	} else {
		if input == "" {
			return nil, ErrInputRequired
		}
		msgs = append(msgs, schema.UserMessage(input))
	}

	for round := 0; round <= o.maxRounds; round++ {
		if cur.Satisfied() {
			var err error
			cur, msgs, err = o.runDigests(ctx, cur, msgs)
			if err != nil {
				return nil, err
			}
		}

		c := contract.Compile(cur)
		var opts []model.Option
		if !c.Empty() {
			opts = append(opts, model.WithTools([]*schema.ToolInfo{c.Info}))
		}
		o.logger.Debug("interview turn", "stage", types.StageThink, "interview", cur.ID, "round", round, "pending", len(c.Fields))
		resp, err := o.backend.Generate(ctx, msgs, opts...)
		if err != nil {
			return nil, &BackendError{Stage: types.StageThink, Err: err}
		}
		msgs = append(msgs, resp)

		if len(resp.ToolCalls) == 0 {
			o.logger.Debug("interview turn", "stage", types.StageListen, "interview", cur.ID, "satisfied", cur.Satisfied(), "complete", cur.Complete())
			return &Turn{
				Message:   resp.Content,
				Interview: cur,
				History:   msgs,
				Satisfied: cur.Satisfied(),
				Complete:  cur.Complete(),
			}, nil
		}

		for _, call := range resp.ToolCalls {
			var content string
			cur, content = o.execTool(ctx, cur, c, call)
			msgs = append(msgs, schema.ToolMessage(content, call.ID))
		}
	}
	return nil, fmt.Errorf("turn exceeded %d tool rounds: %w", o.maxRounds, ErrToolRounds)
}

// execTool decodes and commits one tool call, returning the advanced document
// and the result content to echo back.
func (o *Orchestrator) execTool(ctx context.Context, cur *interview.Interview, c *contract.Compiled, call schema.ToolCall) (*interview.Interview, string) {
	o.logger.Debug("interview turn", "stage", types.StageTools, "interview", cur.ID, "tool", call.Function.Name)
	if c.Empty() || c.Info == nil || call.Function.Name != c.Info.Name {
		return cur, fmt.Sprintf(`{"error":"unknown tool %q"}`, call.Function.Name)
	}
	u, rejects := update.Decode(ctx, cur, c, call.Function.Arguments, o.check)
	next, outcomes := merge.Apply(cur, u)
	for _, out := range outcomes {
		if !out.Applied {
			o.logger.Warn("field write dropped", "interview", cur.ID, "field", out.Field, "reason", out.Reason)
		}
	}
	for _, rej := range rejects {
		o.logger.Warn("field proposal rejected", "interview", cur.ID, "field", rej.Field, "reason", rej.Reason)
	}
	content, err := update.BuildResult(next, outcomes, rejects).Render()
	if err != nil {
		o.logger.Error("render tool result", "interview", cur.ID, "error", err)
		content = `{"results":[]}`
	}
	return next, content
}
