// Package interview defines the interview document: the field schema agreed
// up front plus every value collected so far. The document is treated as
// read-only by callers between turns; all mutation goes through the merge
// package so that committed values are never weakened or dropped.
package interview

import (
	"github.com/tbxark/parley/types"
)

// NotApplicable marks a silent field the conversation never touched. It is a
// committed value like any other and counts as set.
const NotApplicable = "N/A"

// TransformSpec declares one typed recasting of a field's raw value. The
// backend fills the slot named Name with a value of the declared kind.
type TransformSpec struct {
	Name     string              `json:"name" yaml:"name"`
	Kind     types.TransformKind `json:"kind" yaml:"kind"`
	Guidance string              `json:"guidance,omitempty" yaml:"guidance,omitempty"`
}

// FieldSpec is the immutable description of one datum to collect.
type FieldSpec struct {
	Name       string          `json:"name" yaml:"name"`
	Prompt     string          `json:"prompt" yaml:"prompt"`
	Must       []string        `json:"must,omitempty" yaml:"must,omitempty"`
	Reject     []string        `json:"reject,omitempty" yaml:"reject,omitempty"`
	Hint       string          `json:"hint,omitempty" yaml:"hint,omitempty"`
	Lifecycle  types.Lifecycle `json:"lifecycle" yaml:"lifecycle"`
	Transforms []TransformSpec `json:"transforms,omitempty" yaml:"transforms,omitempty"`
}

// Transform looks up a declared transform by name.
func (f FieldSpec) Transform(name string) (TransformSpec, bool) {
	for _, t := range f.Transforms {
		if t.Name == name {
			return t, true
		}
	}
	return TransformSpec{}, false
}

// ConditionalTrait is a persona trait that starts inactive and can be switched
// on once its condition is observed in conversation. Activation is one-way.
type ConditionalTrait struct {
	Name      string `json:"name" yaml:"name"`
	Condition string `json:"condition" yaml:"condition"`
	Active    bool   `json:"active" yaml:"active"`
}

// Role describes one conversation party.
type Role struct {
	Kind              types.RoleKind     `json:"kind" yaml:"kind"`
	Label             string             `json:"label" yaml:"label"`
	Traits            []string           `json:"traits,omitempty" yaml:"traits,omitempty"`
	ConditionalTraits []ConditionalTrait `json:"conditional_traits,omitempty" yaml:"conditional_traits,omitempty"`
}

// Trait looks up a conditional trait by name.
func (r Role) Trait(name string) (ConditionalTrait, bool) {
	for _, t := range r.ConditionalTraits {
		if t.Name == name {
			return t, true
		}
	}
	return ConditionalTrait{}, false
}

// InactiveTraits returns the conditional traits not yet switched on.
func (r Role) InactiveTraits() []ConditionalTrait {
	var out []ConditionalTrait
	for _, t := range r.ConditionalTraits {
		if !t.Active {
			out = append(out, t)
		}
	}
	return out
}

// ActiveTraitNames returns the fixed traits plus any activated conditional
// traits, in declaration order.
func (r Role) ActiveTraitNames() []string {
	out := make([]string, 0, len(r.Traits))
	out = append(out, r.Traits...)
	for _, t := range r.ConditionalTraits {
		if t.Active {
			out = append(out, t.Name)
		}
	}
	return out
}

// FieldValue is the committed capture of one field. Raw is the natural
// language answer; Quote and Context preserve where it came from; Transformed
// holds the typed recastings keyed by transform name.
type FieldValue struct {
	Raw         string         `json:"raw"`
	Quote       string         `json:"quote,omitempty"`
	Context     string         `json:"context,omitempty"`
	Transformed map[string]any `json:"transformed,omitempty"`
}

func (v *FieldValue) clone() *FieldValue {
	if v == nil {
		return nil
	}
	out := &FieldValue{Raw: v.Raw, Quote: v.Quote, Context: v.Context}
	if v.Transformed != nil {
		out.Transformed = make(map[string]any, len(v.Transformed))
		for k, tv := range v.Transformed {
			out.Transformed[k] = cloneValue(tv)
		}
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// DigestState records which digest passes have been committed. Each flag
// flips to true exactly once, together with the values the pass produced.
type DigestState struct {
	Silent  bool `json:"silent"`
	Derived bool `json:"derived"`
}

// Interview is the single document a conversation fills in: schema, roles,
// values and digest progress.
type Interview struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Collector   Role                   `json:"collector"`
	Respondent  Role                   `json:"respondent"`
	Fields      []FieldSpec            `json:"fields"`
	Values      map[string]*FieldValue `json:"values"`
	Digests     DigestState            `json:"digests"`
}

// Spec looks up a field schema by name.
func (i *Interview) Spec(name string) (FieldSpec, bool) {
	for _, f := range i.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Value returns the committed value for a field, or nil when unset.
func (i *Interview) Value(name string) *FieldValue {
	if i.Values == nil {
		return nil
	}
	return i.Values[name]
}

// Role returns the role of the given kind.
func (i *Interview) Role(kind types.RoleKind) Role {
	if kind == types.RoleRespondent {
		return i.Respondent
	}
	return i.Collector
}

// FieldsOf returns the fields of one lifecycle class in declaration order.
func (i *Interview) FieldsOf(class types.Lifecycle) []FieldSpec {
	var out []FieldSpec
	for _, f := range i.Fields {
		if f.Lifecycle == class {
			out = append(out, f)
		}
	}
	return out
}

// UnfilledOf returns the fields of one lifecycle class that hold no value yet.
func (i *Interview) UnfilledOf(class types.Lifecycle) []FieldSpec {
	var out []FieldSpec
	for _, f := range i.Fields {
		if f.Lifecycle == class && i.Value(f.Name) == nil {
			out = append(out, f)
		}
	}
	return out
}

// Satisfied reports whether every normal field holds a value. Silent and
// derived fields do not count; they are settled by the digest passes.
func (i *Interview) Satisfied() bool {
	for _, f := range i.Fields {
		if f.Lifecycle == types.LifecycleNormal && i.Value(f.Name) == nil {
			return false
		}
	}
	return true
}

// Complete reports whether every field, whatever its lifecycle, holds a value.
func (i *Interview) Complete() bool {
	for _, f := range i.Fields {
		if i.Value(f.Name) == nil {
			return false
		}
	}
	return true
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (i *Interview) Clone() *Interview {
	out := &Interview{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		Collector:   cloneRole(i.Collector),
		Respondent:  cloneRole(i.Respondent),
		Digests:     i.Digests,
	}
	out.Fields = make([]FieldSpec, len(i.Fields))
	for n, f := range i.Fields {
		out.Fields[n] = cloneFieldSpec(f)
	}
	out.Values = make(map[string]*FieldValue, len(i.Values))
	for k, v := range i.Values {
		out.Values[k] = v.clone()
	}
	return out
}

func cloneRole(r Role) Role {
	out := r
	out.Traits = append([]string(nil), r.Traits...)
	out.ConditionalTraits = append([]ConditionalTrait(nil), r.ConditionalTraits...)
	return out
}

func cloneFieldSpec(f FieldSpec) FieldSpec {
	out := f
	out.Must = append([]string(nil), f.Must...)
	out.Reject = append([]string(nil), f.Reject...)
	out.Transforms = append([]TransformSpec(nil), f.Transforms...)
	return out
}

// Briefs returns the prompt-facing projection of the fields of one lifecycle
// class, with committed raw values attached.
func (i *Interview) Briefs(class types.Lifecycle) []types.FieldBrief {
	var out []types.FieldBrief
	for _, f := range i.Fields {
		if f.Lifecycle != class {
			continue
		}
		brief := types.FieldBrief{Name: f.Name, Prompt: f.Prompt, Hint: f.Hint}
		if v := i.Value(f.Name); v != nil {
			brief.Valued = true
			brief.Value = v.Raw
		}
		out = append(out, brief)
	}
	return out
}

// TraitBriefs returns the prompt-facing projection of a role's conditional
// traits.
func (i *Interview) TraitBriefs(kind types.RoleKind) []types.TraitBrief {
	role := i.Role(kind)
	var out []types.TraitBrief
	for _, t := range role.ConditionalTraits {
		out = append(out, types.TraitBrief{Name: t.Name, Condition: t.Condition, Active: t.Active})
	}
	return out
}

// PromptContext builds the system prompt projection of the document. Silent
// and derived fields are excluded on purpose; they must never surface in the
// open conversation.
func (i *Interview) PromptContext() types.PromptContext {
	pc := types.PromptContext{
		Title:       i.Title,
		Description: i.Description,
		Collector:   types.RolePrompt{Label: i.Collector.Label, Traits: i.Collector.ActiveTraitNames()},
		Respondent:  types.RolePrompt{Label: i.Respondent.Label, Traits: i.Respondent.ActiveTraitNames()},
	}
	for _, b := range i.Briefs(types.LifecycleNormal) {
		if b.Valued {
			pc.Collected = append(pc.Collected, b)
		} else {
			pc.Pending = append(pc.Pending, b)
		}
	}
	return pc
}
