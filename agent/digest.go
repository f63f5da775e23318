package agent

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/parley/contract"
	"github.com/tbxark/parley/interview"
	"github.com/tbxark/parley/merge"
	"github.com/tbxark/parley/types"
	"github.com/tbxark/parley/update"
)

// runDigests runs the silent then the derived pass, each at most once per
// interview. A committed pass appends its tool exchange to the history so the
// transcript stays replayable; a failed derived pass commits nothing and is
// retried the next time the interview is satisfied.
func (o *Orchestrator) runDigests(ctx context.Context, cur *interview.Interview, msgs []*schema.Message) (*interview.Interview, []*schema.Message, error) {
	if !cur.Digests.Silent {
		next, out, err := o.runDigest(ctx, cur, msgs, types.LifecycleSilent)
		if err != nil {
			return nil, nil, err
		}
		cur, msgs = next, out
	}
	if !cur.Digests.Derived {
		next, out, err := o.runDigest(ctx, cur, msgs, types.LifecycleDerived)
		if err != nil {
			return nil, nil, err
		}
		cur, msgs = next, out
	}
	return cur, msgs, nil
}

func (o *Orchestrator) runDigest(ctx context.Context, cur *interview.Interview, msgs []*schema.Message, class types.Lifecycle) (*interview.Interview, []*schema.Message, error) {
	c := contract.CompileDigest(cur, class)
	if c.Empty() {
		o.logger.Debug("nothing to digest", "interview", cur.ID, "class", class)
		next, _ := merge.Apply(cur, digestDone(class))
		return next, msgs, nil
	}

	o.logger.Debug("interview turn", "stage", types.StageDigest, "interview", cur.ID, "class", class, "fields", len(c.Fields))
	prompt := append(append([]*schema.Message(nil), msgs...), schema.SystemMessage(o.renderer.Digest(cur, class)))
	resp, err := o.backend.Generate(ctx, prompt,
		model.WithTools([]*schema.ToolInfo{c.Info}),
		model.WithToolChoice(schema.ToolChoiceForced, c.Info.Name),
	)
	if err != nil {
		return nil, nil, &BackendError{Stage: types.StageDigest, Err: err}
	}
	if len(resp.ToolCalls) == 0 {
		return nil, nil, &BackendError{Stage: types.StageDigest, Err: ErrNoToolCall}
	}
	call := resp.ToolCalls[0]
	u, rejects := update.Decode(ctx, cur, c, call.Function.Arguments, nil)

	if class == types.LifecycleDerived {
		if missing := uncovered(c, u); len(rejects) > 0 || len(missing) > 0 {
			o.logger.Warn("derived digest incomplete, nothing committed",
				"interview", cur.ID, "rejected", len(rejects), "missing", missing)
			return cur, msgs, nil
		}
	}

	next, outcomes := merge.Apply(cur, u)
	for _, out := range outcomes {
		if !out.Applied {
			o.logger.Warn("digest write dropped", "interview", cur.ID, "field", out.Field, "reason", out.Reason)
		}
	}

	if class == types.LifecycleSilent {
		next = o.backstopSilent(next)
	}
	next, _ = merge.Apply(next, digestDone(class))

	content, rErr := update.BuildResult(next, outcomes, rejects).Render()
	if rErr != nil {
		o.logger.Error("render digest result", "interview", cur.ID, "error", rErr)
		content = `{"results":[]}`
	}
	msgs = append(msgs, resp, schema.ToolMessage(content, call.ID))
	return next, msgs, nil
}

// backstopSilent fills every silent field the digest left unset with the
// not-applicable marker, so the pass always settles the whole class.
func (o *Orchestrator) backstopSilent(cur *interview.Interview) *interview.Interview {
	unset := cur.UnfilledOf(types.LifecycleSilent)
	if len(unset) == 0 {
		return cur
	}
	fill := merge.Update{Fields: map[string]merge.FieldDelta{}}
	for _, f := range unset {
		marker := interview.NotApplicable
		fill.Fields[f.Name] = merge.FieldDelta{Raw: &marker}
		o.logger.Debug("silent field never mentioned", "interview", cur.ID, "field", f.Name)
	}
	next, _ := merge.Apply(cur, fill)
	return next
}

func digestDone(class types.Lifecycle) merge.Update {
	if class == types.LifecycleSilent {
		return merge.Update{Digests: merge.DigestDelta{Silent: true}}
	}
	return merge.Update{Digests: merge.DigestDelta{Derived: true}}
}

// uncovered lists contract fields the update does not set.
func uncovered(c *contract.Compiled, u merge.Update) []string {
	var missing []string
	for _, name := range c.Fields {
		if _, ok := u.Fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
