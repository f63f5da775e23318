// Package contract compiles the tool the backend is offered each round. The
// update contract exposes one optional slot per still unfilled openly asked
// field; the digest contracts expose the silent or derived fields in one
// required batch. A field that already holds a value never reappears in a
// contract, so the backend cannot be steered into rewriting it.
package contract

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/parley/interview"
	"github.com/tbxark/parley/types"
)

const (
	UpdateToolName = "update_fields"
	DigestToolName = "digest_fields"

	// CollectorTraitsSlot and RespondentTraitsSlot are the reserved digest
	// slots for switching conditional persona traits on.
	CollectorTraitsSlot  = "collector_traits"
	RespondentTraitsSlot = "respondent_traits"
)

// Mode says which contract was compiled.
type Mode string

const (
	ModeUpdate        Mode = "update"
	ModeSilentDigest  Mode = "silent_digest"
	ModeDerivedDigest Mode = "derived_digest"
)

// Compiled is one ready-to-offer tool plus the field set it covers.
type Compiled struct {
	Info       *schema.ToolInfo
	Mode       Mode
	Fields     []string
	TraitSlots map[string][]string

	fieldSet map[string]struct{}
}

// Empty reports whether the contract covers nothing, meaning there is no
// point offering the tool at all.
func (c *Compiled) Empty() bool {
	return len(c.Fields) == 0 && len(c.TraitSlots) == 0
}

// Allows reports whether a field name is covered by this contract.
func (c *Compiled) Allows(name string) bool {
	_, ok := c.fieldSet[name]
	return ok
}

// TraitSlot returns the trait names behind a reserved slot name.
func (c *Compiled) TraitSlot(name string) ([]string, bool) {
	traits, ok := c.TraitSlots[name]
	return traits, ok
}

// Compile builds the conversational update contract: one optional object slot
// per unfilled normal field. Silent and derived fields are never included
// here; their existence must not leak into the open conversation.
func Compile(doc *interview.Interview) *Compiled {
	c := &Compiled{Mode: ModeUpdate, fieldSet: map[string]struct{}{}}
	params := map[string]*schema.ParameterInfo{}
	for _, f := range doc.UnfilledOf(types.LifecycleNormal) {
		c.Fields = append(c.Fields, f.Name)
		c.fieldSet[f.Name] = struct{}{}
		params[f.Name] = fieldParam(f, false, "")
	}
	if len(params) == 0 {
		return c
	}
	c.Info = &schema.ToolInfo{
		Name:        UpdateToolName,
		Desc:        "Record interview fields the respondent has just provided. Include only fields the respondent actually answered.",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
	return c
}

// CompileDigest builds the one-shot contract for a digest class. Every field
// of the class appears as a required slot. For the silent class the contract
// also carries a reserved boolean slot per role with inactive conditional
// traits.
func CompileDigest(doc *interview.Interview, class types.Lifecycle) *Compiled {
	c := &Compiled{fieldSet: map[string]struct{}{}}
	params := map[string]*schema.ParameterInfo{}
	var desc string
	switch class {
	case types.LifecycleSilent:
		c.Mode = ModeSilentDigest
		desc = "Record every silently tracked field from the conversation so far. All listed fields are required."
		for _, f := range doc.UnfilledOf(class) {
			c.Fields = append(c.Fields, f.Name)
			c.fieldSet[f.Name] = struct{}{}
			params[f.Name] = fieldParam(f, true, `If the conversation never touched it, record exactly "`+interview.NotApplicable+`".`)
		}
		addTraitSlot(c, params, CollectorTraitsSlot, doc.Collector)
		addTraitSlot(c, params, RespondentTraitsSlot, doc.Respondent)
	case types.LifecycleDerived:
		c.Mode = ModeDerivedDigest
		desc = "Record every computed field, derived from the whole conversation. All listed fields are required."
		for _, f := range doc.UnfilledOf(class) {
			c.Fields = append(c.Fields, f.Name)
			c.fieldSet[f.Name] = struct{}{}
			params[f.Name] = fieldParam(f, true, "Compute this from the conversation; do not leave it out.")
		}
	default:
		return c
	}
	if c.Empty() {
		return c
	}
	c.Info = &schema.ToolInfo{
		Name:        DigestToolName,
		Desc:        desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
	return c
}

func addTraitSlot(c *Compiled, params map[string]*schema.ParameterInfo, slot string, role interview.Role) {
	inactive := role.InactiveTraits()
	if len(inactive) == 0 {
		return
	}
	sub := make(map[string]*schema.ParameterInfo, len(inactive))
	names := make([]string, 0, len(inactive))
	for _, t := range inactive {
		names = append(names, t.Name)
		sub[t.Name] = &schema.ParameterInfo{
			Type:     schema.Boolean,
			Desc:     t.Condition,
			Required: true,
		}
	}
	if c.TraitSlots == nil {
		c.TraitSlots = map[string][]string{}
	}
	c.TraitSlots[slot] = names
	params[slot] = &schema.ParameterInfo{
		Type:      schema.Object,
		Desc:      "Set a trait to true only if its condition clearly held during the conversation.",
		SubParams: sub,
	}
}

func fieldParam(f interview.FieldSpec, required bool, extra string) *schema.ParameterInfo {
	sub := map[string]*schema.ParameterInfo{
		"raw": {
			Type:     schema.String,
			Desc:     "The value in the respondent's own terms.",
			Required: true,
		},
		"quote": {
			Type: schema.String,
			Desc: "Verbatim words of the respondent the value was taken from.",
		},
		"context": {
			Type: schema.String,
			Desc: "One sentence of surrounding conversational context.",
		},
	}
	for _, t := range f.Transforms {
		sub[t.Name] = transformParam(t)
	}
	return &schema.ParameterInfo{
		Type:      schema.Object,
		Desc:      fieldDesc(f, extra),
		Required:  required,
		SubParams: sub,
	}
}

func fieldDesc(f interview.FieldSpec, extra string) string {
	parts := []string{f.Prompt}
	if rules := types.FormatRules(f.Must, f.Reject); rules != "" {
		parts = append(parts, rules)
	}
	if f.Hint != "" {
		parts = append(parts, "Hint: "+f.Hint+".")
	}
	if extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, " ")
}

func transformParam(t interview.TransformSpec) *schema.ParameterInfo {
	desc := t.Guidance
	if desc == "" {
		desc = "Recast the raw value as " + t.Name + "."
	}
	p := &schema.ParameterInfo{Desc: desc}
	switch t.Kind {
	case types.KindInt:
		p.Type = schema.Integer
	case types.KindFloat:
		p.Type = schema.Number
	case types.KindBool:
		p.Type = schema.Boolean
	case types.KindStringList:
		p.Type = schema.Array
		p.ElemInfo = &schema.ParameterInfo{Type: schema.String}
	default:
		p.Type = schema.String
	}
	return p
}
