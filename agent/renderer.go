package agent

import (
	"strings"

	"github.com/tbxark/parley/interview"
	"github.com/tbxark/parley/types"
)

// Renderer turns the document into the instructions the backend sees. System
// is the standing prompt for the open conversation; Digest is the ephemeral
// instruction for one digest pass.
type Renderer interface {
	System(doc *interview.Interview) string
	Digest(doc *interview.Interview, class types.Lifecycle) string
}

// DefaultSystemTemplate is the standing instruction block of the collector.
const DefaultSystemTemplate = `You are the collector in a structured interview. Hold a natural conversation with the respondent and work the listed fields into it, one or a few at a time.

- Stay in your persona and speak to the respondent in theirs.
- Ask about fields still to collect; never re-ask what is already collected.
- When the respondent gives a value, record it with the provided tool before replying.
- If a recorded value is refused, use the returned rules to ask a better follow-up without reciting the rules verbatim.
- Once nothing is left to collect, wrap up the conversation warmly.`

// DefaultSilentDigestTemplate instructs the one-shot pass over silently
// tracked fields.
const DefaultSilentDigestTemplate = `The open questions are done. Go back over the whole conversation and record every field listed below with the provided tool. If the conversation never touched a field, record exactly "` + interview.NotApplicable + `". These fields are confidential: never mention them to the respondent.`

// DefaultDerivedDigestTemplate instructs the one-shot pass over computed
// fields.
const DefaultDerivedDigestTemplate = `The open questions are done. Compute every field listed below from the whole conversation and record them with the provided tool. Every field is required; do not skip any.`

// TemplateRenderer renders prompts from fixed instruction templates plus
// tabular context built from the document.
type TemplateRenderer struct {
	systemTemplate  string
	silentTemplate  string
	derivedTemplate string
}

type RendererOption func(*TemplateRenderer)

// WithSystemTemplate overrides the standing instruction block.
func WithSystemTemplate(tpl string) RendererOption {
	return func(r *TemplateRenderer) {
		r.systemTemplate = tpl
	}
}

// WithSilentDigestTemplate overrides the silent digest instruction block.
func WithSilentDigestTemplate(tpl string) RendererOption {
	return func(r *TemplateRenderer) {
		r.silentTemplate = tpl
	}
}

// WithDerivedDigestTemplate overrides the derived digest instruction block.
func WithDerivedDigestTemplate(tpl string) RendererOption {
	return func(r *TemplateRenderer) {
		r.derivedTemplate = tpl
	}
}

func NewTemplateRenderer(opts ...RendererOption) *TemplateRenderer {
	r := &TemplateRenderer{
		systemTemplate:  DefaultSystemTemplate,
		silentTemplate:  DefaultSilentDigestTemplate,
		derivedTemplate: DefaultDerivedDigestTemplate,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *TemplateRenderer) System(doc *interview.Interview) string {
	return r.systemTemplate + "\n\n" + types.FormatPromptContext(doc.PromptContext())
}

func (r *TemplateRenderer) Digest(doc *interview.Interview, class types.Lifecycle) string {
	var tpl string
	sections := []string{}
	switch class {
	case types.LifecycleSilent:
		tpl = r.silentTemplate
		if s := types.FormatFieldTable("Silently tracked fields", unvaluedBriefs(doc, class)); s != "" {
			sections = append(sections, s)
		}
		if s := types.FormatTraitTable("Collector traits to confirm", inactiveTraits(doc, types.RoleCollector)); s != "" {
			sections = append(sections, s)
		}
		if s := types.FormatTraitTable("Respondent traits to confirm", inactiveTraits(doc, types.RoleRespondent)); s != "" {
			sections = append(sections, s)
		}
	case types.LifecycleDerived:
		tpl = r.derivedTemplate
		if s := types.FormatFieldTable("Fields to compute", unvaluedBriefs(doc, class)); s != "" {
			sections = append(sections, s)
		}
	default:
		return ""
	}
	return strings.Join(append([]string{tpl}, sections...), "\n\n")
}

func unvaluedBriefs(doc *interview.Interview, class types.Lifecycle) []types.FieldBrief {
	var out []types.FieldBrief
	for _, b := range doc.Briefs(class) {
		if !b.Valued {
			out = append(out, b)
		}
	}
	return out
}

func inactiveTraits(doc *interview.Interview, kind types.RoleKind) []types.TraitBrief {
	var out []types.TraitBrief
	for _, t := range doc.TraitBriefs(kind) {
		if !t.Active {
			out = append(out, t)
		}
	}
	return out
}

var _ Renderer = (*TemplateRenderer)(nil)
