// Package merge is the only writer of interview documents. Apply folds a
// proposed update into a copy of the prior document and reports, per field,
// whether the write was committed or dropped. Committed data only ever grows:
// a raw value is immutable once set, sub-slots may go from absent or falsy to
// truthy but never back, and digest flags only flip from false to true.
package merge

import (
	"reflect"
	"sort"

	"github.com/tbxark/parley/interview"
	"github.com/tbxark/parley/types"
)

// FieldDelta proposes data for one field. Nil pointers mean "not proposed".
type FieldDelta struct {
	Raw         *string
	Quote       *string
	Context     *string
	Transformed map[string]any
}

// TraitDelta proposes switching a conditional trait on or off. Switching off
// an active trait is always dropped.
type TraitDelta struct {
	Role   types.RoleKind
	Name   string
	Active bool
}

// DigestDelta marks digest passes as committed. False values are ignored.
type DigestDelta struct {
	Silent  bool
	Derived bool
}

// Update is one batch of proposed writes.
type Update struct {
	Fields  map[string]FieldDelta
	Traits  []TraitDelta
	Digests DigestDelta
}

// Outcome reports the fate of one proposed write.
type Outcome struct {
	Field   string
	Applied bool
	Reason  string
}

// Apply folds an update into a copy of prior and returns the copy together
// with one outcome per proposed field or trait. The prior document is never
// mutated. Each field commits or drops as a whole: if any part of its delta
// would weaken committed data, the entire delta for that field is dropped and
// the reason recorded.
func Apply(prior *interview.Interview, u Update) (*interview.Interview, []Outcome) {
	next := prior.Clone()
	outcomes := make([]Outcome, 0, len(u.Fields)+len(u.Traits))

	for _, name := range orderedFieldNames(prior, u) {
		delta := u.Fields[name]
		spec, ok := next.Spec(name)
		if !ok {
			outcomes = append(outcomes, Outcome{Field: name, Reason: "unknown field"})
			continue
		}
		outcome := applyField(next, spec, delta)
		outcomes = append(outcomes, outcome)
	}

	for _, td := range u.Traits {
		outcomes = append(outcomes, applyTrait(next, td))
	}

	if u.Digests.Silent {
		next.Digests.Silent = true
	}
	if u.Digests.Derived {
		next.Digests.Derived = true
	}
	return next, outcomes
}

// orderedFieldNames yields delta field names in document order, then any
// names the document does not know, sorted. Keeps outcomes deterministic.
func orderedFieldNames(doc *interview.Interview, u Update) []string {
	if len(u.Fields) == 0 {
		return nil
	}
	out := make([]string, 0, len(u.Fields))
	taken := make(map[string]struct{}, len(u.Fields))
	for _, f := range doc.Fields {
		if _, ok := u.Fields[f.Name]; ok {
			out = append(out, f.Name)
			taken[f.Name] = struct{}{}
		}
	}
	var rest []string
	for name := range u.Fields {
		if _, ok := taken[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func applyField(next *interview.Interview, spec interview.FieldSpec, delta FieldDelta) Outcome {
	cur := next.Value(spec.Name)
	if cur == nil {
		if delta.Raw == nil {
			return Outcome{Field: spec.Name, Reason: "no raw value for an unset field"}
		}
		val := &interview.FieldValue{Raw: *delta.Raw}
		if delta.Quote != nil {
			val.Quote = *delta.Quote
		}
		if delta.Context != nil {
			val.Context = *delta.Context
		}
		if len(delta.Transformed) > 0 {
			val.Transformed = make(map[string]any, len(delta.Transformed))
			for k, v := range delta.Transformed {
				val.Transformed[k] = v
			}
		}
		next.Values[spec.Name] = val
		return Outcome{Field: spec.Name, Applied: true}
	}

	// The field already holds a value. Check the whole delta before touching
	// anything so a single weakened part drops the delta entirely.
	if delta.Raw != nil && *delta.Raw != cur.Raw {
		return Outcome{Field: spec.Name, Reason: "raw value is immutable once set"}
	}
	if reason := checkSubSlot("quote", cur.Quote, delta.Quote); reason != "" {
		return Outcome{Field: spec.Name, Reason: reason}
	}
	if reason := checkSubSlot("context", cur.Context, delta.Context); reason != "" {
		return Outcome{Field: spec.Name, Reason: reason}
	}
	for _, k := range sortedKeys(delta.Transformed) {
		v := delta.Transformed[k]
		curv, exists := cur.Transformed[k]
		if !exists {
			continue
		}
		if reflect.DeepEqual(curv, v) {
			continue
		}
		if Truthy(curv) || !Truthy(v) {
			return Outcome{Field: spec.Name, Reason: "transform " + k + " cannot be overwritten"}
		}
	}

	if delta.Quote != nil && cur.Quote == "" {
		cur.Quote = *delta.Quote
	}
	if delta.Context != nil && cur.Context == "" {
		cur.Context = *delta.Context
	}
	if len(delta.Transformed) > 0 && cur.Transformed == nil {
		cur.Transformed = make(map[string]any, len(delta.Transformed))
	}
	for k, v := range delta.Transformed {
		curv, exists := cur.Transformed[k]
		if !exists || (!Truthy(curv) && Truthy(v)) {
			cur.Transformed[k] = v
		}
	}
	return Outcome{Field: spec.Name, Applied: true}
}

// checkSubSlot enforces the falsy-to-truthy rule for quote and context.
func checkSubSlot(slot, current string, proposed *string) string {
	if proposed == nil || *proposed == current {
		return ""
	}
	if current != "" {
		return slot + " cannot be overwritten"
	}
	return ""
}

func applyTrait(next *interview.Interview, td TraitDelta) Outcome {
	label := string(td.Role) + " trait " + td.Name
	var role *interview.Role
	switch td.Role {
	case types.RoleCollector:
		role = &next.Collector
	case types.RoleRespondent:
		role = &next.Respondent
	default:
		return Outcome{Field: label, Reason: "unknown role"}
	}
	for n := range role.ConditionalTraits {
		t := &role.ConditionalTraits[n]
		if t.Name != td.Name {
			continue
		}
		if !td.Active {
			if t.Active {
				return Outcome{Field: label, Reason: "active trait cannot be switched off"}
			}
			return Outcome{Field: label, Applied: true}
		}
		t.Active = true
		return Outcome{Field: label, Applied: true}
	}
	return Outcome{Field: label, Reason: "unknown trait"}
}

func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
