// Package update turns a raw tool call into a checked batch of writes. Each
// proposed field is validated independently, so one bad field never blocks
// the rest of the batch. Shape problems are caught here; value safety is the
// merge package's job.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"

	"github.com/tbxark/parley/contract"
	"github.com/tbxark/parley/interview"
	"github.com/tbxark/parley/merge"
	"github.com/tbxark/parley/types"
)

// FieldCheck is an optional host-side gate consulted before a decoded field
// is handed to the reducer. Returning an error rejects the field with the
// error text as the reason.
type FieldCheck func(ctx context.Context, spec interview.FieldSpec, delta merge.FieldDelta) error

// Reject reports one refused proposal. Field is empty when the whole payload
// was unusable.
type Reject struct {
	Field  string
	Reason string
}

// Decode parses tool call arguments against a compiled contract. Fields
// outside the contract, malformed payloads and mistyped slots are rejected
// individually; everything that survives lands in the returned update.
func Decode(ctx context.Context, doc *interview.Interview, c *contract.Compiled, args string, check FieldCheck) (merge.Update, []Reject) {
	u := merge.Update{Fields: map[string]merge.FieldDelta{}}
	var payload map[string]json.RawMessage
	if err := sonic.UnmarshalString(args, &payload); err != nil {
		return u, []Reject{{Reason: "arguments are not a JSON object"}}
	}

	var rejects []Reject
	for _, key := range orderedKeys(doc, payload) {
		raw := payload[key]
		if traits, ok := c.TraitSlot(key); ok {
			deltas, slotRejects := decodeTraitSlot(key, traits, raw)
			u.Traits = append(u.Traits, deltas...)
			rejects = append(rejects, slotRejects...)
			continue
		}
		if !c.Allows(key) {
			rejects = append(rejects, Reject{Field: key, Reason: "not in the current contract"})
			continue
		}
		spec, _ := doc.Spec(key)
		delta, reason := decodeField(spec, raw)
		if reason != "" {
			rejects = append(rejects, Reject{Field: key, Reason: reason})
			continue
		}
		if check != nil {
			if err := check(ctx, spec, delta); err != nil {
				rejects = append(rejects, Reject{Field: key, Reason: err.Error()})
				continue
			}
		}
		u.Fields[key] = delta
	}
	return u, rejects
}

// orderedKeys yields payload keys in document order, with the reserved trait
// slots and unknown keys sorted after them.
func orderedKeys(doc *interview.Interview, payload map[string]json.RawMessage) []string {
	out := make([]string, 0, len(payload))
	taken := make(map[string]struct{}, len(payload))
	for _, f := range doc.Fields {
		if _, ok := payload[f.Name]; ok {
			out = append(out, f.Name)
			taken[f.Name] = struct{}{}
		}
	}
	var rest []string
	for key := range payload {
		if _, ok := taken[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func decodeField(spec interview.FieldSpec, raw json.RawMessage) (merge.FieldDelta, string) {
	var slots map[string]json.RawMessage
	if err := sonic.Unmarshal(raw, &slots); err != nil {
		return merge.FieldDelta{}, "field payload must be an object"
	}
	delta := merge.FieldDelta{}

	rawSlot, ok := slots["raw"]
	if !ok {
		return merge.FieldDelta{}, "missing raw value"
	}
	var rawVal string
	if err := sonic.Unmarshal(rawSlot, &rawVal); err != nil {
		return merge.FieldDelta{}, "raw must be a string"
	}
	delta.Raw = &rawVal

	if quoteSlot, ok := slots["quote"]; ok {
		var quote string
		if err := sonic.Unmarshal(quoteSlot, &quote); err != nil {
			return merge.FieldDelta{}, "quote must be a string"
		}
		delta.Quote = &quote
	}
	if contextSlot, ok := slots["context"]; ok {
		var cx string
		if err := sonic.Unmarshal(contextSlot, &cx); err != nil {
			return merge.FieldDelta{}, "context must be a string"
		}
		delta.Context = &cx
	}

	var names []string
	for name := range slots {
		switch name {
		case "raw", "quote", "context":
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t, ok := spec.Transform(name)
		if !ok {
			return merge.FieldDelta{}, fmt.Sprintf("unknown slot %q", name)
		}
		val, err := decodeTransform(t.Kind, slots[name])
		if err != nil {
			return merge.FieldDelta{}, fmt.Sprintf("transform %q: %v", name, err)
		}
		if delta.Transformed == nil {
			delta.Transformed = map[string]any{}
		}
		delta.Transformed[name] = val
	}
	return delta, ""
}

func decodeTransform(kind types.TransformKind, raw json.RawMessage) (any, error) {
	switch kind {
	case types.KindInt:
		var v int64
		if err := sonic.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("expected an integer")
		}
		return v, nil
	case types.KindFloat:
		var v float64
		if err := sonic.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("expected a number")
		}
		return v, nil
	case types.KindBool:
		var v bool
		if err := sonic.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("expected a boolean")
		}
		return v, nil
	case types.KindStringList:
		var v []string
		if err := sonic.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("expected a list of strings")
		}
		return v, nil
	default:
		var v string
		if err := sonic.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("expected a string")
		}
		return v, nil
	}
}

func decodeTraitSlot(slot string, declared []string, raw json.RawMessage) ([]merge.TraitDelta, []Reject) {
	role := types.RoleCollector
	if slot == contract.RespondentTraitsSlot {
		role = types.RoleRespondent
	}
	var entries map[string]json.RawMessage
	if err := sonic.Unmarshal(raw, &entries); err != nil {
		return nil, []Reject{{Field: slot, Reason: "trait payload must be an object"}}
	}
	var deltas []merge.TraitDelta
	var rejects []Reject
	known := make(map[string]struct{}, len(declared))
	for _, name := range declared {
		known[name] = struct{}{}
		entry, ok := entries[name]
		if !ok {
			continue
		}
		var active bool
		if err := sonic.Unmarshal(entry, &active); err != nil {
			rejects = append(rejects, Reject{Field: slot + "." + name, Reason: "trait value must be a boolean"})
			continue
		}
		deltas = append(deltas, merge.TraitDelta{Role: role, Name: name, Active: active})
	}
	var unknown []string
	for name := range entries {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		rejects = append(rejects, Reject{Field: slot + "." + name, Reason: "unknown trait"})
	}
	return deltas, rejects
}
