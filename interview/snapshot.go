package interview

import (
	"fmt"
	"math"

	"github.com/bytedance/sonic"

	"github.com/tbxark/parley/types"
)

// Snapshot serializes the document to its plain structural form. The result
// contains only maps, lists and scalars and round-trips through FromSnapshot.
func (i *Interview) Snapshot() ([]byte, error) {
	data, err := sonic.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("marshal interview: %w", err)
	}
	return data, nil
}

// FromSnapshot rebuilds a document from Snapshot output. The schema is
// revalidated and transformed values are coerced back to their declared
// kinds, so a tampered or stale snapshot fails loudly instead of producing a
// document the reducer would mishandle.
func FromSnapshot(data []byte) (*Interview, error) {
	var doc Interview
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal interview: %w", err)
	}
	if err := doc.normalize(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (i *Interview) normalize() error {
	if i.ID == "" {
		return fmt.Errorf("snapshot has no interview id")
	}
	seen := make(map[string]struct{}, len(i.Fields))
	for _, f := range i.Fields {
		if f.Name == "" {
			return fmt.Errorf("snapshot field with empty name")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("snapshot duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		if !f.Lifecycle.Valid() {
			return fmt.Errorf("field %q: unknown lifecycle %q", f.Name, f.Lifecycle)
		}
		for _, t := range f.Transforms {
			if !t.Kind.Valid() {
				return fmt.Errorf("field %q: transform %q has unknown kind %q", f.Name, t.Name, t.Kind)
			}
		}
	}
	if i.Values == nil {
		i.Values = map[string]*FieldValue{}
	}
	for name, v := range i.Values {
		if v == nil {
			delete(i.Values, name)
			continue
		}
		spec, ok := i.Spec(name)
		if !ok {
			return fmt.Errorf("value for unknown field %q", name)
		}
		for tname, tv := range v.Transformed {
			t, ok := spec.Transform(tname)
			if !ok {
				return fmt.Errorf("field %q: value for undeclared transform %q", name, tname)
			}
			coerced, err := coerceTransformed(t.Kind, tv)
			if err != nil {
				return fmt.Errorf("field %q transform %q: %w", name, tname, err)
			}
			v.Transformed[tname] = coerced
		}
	}
	return nil
}

// coerceTransformed brings a decoded JSON value back to the in-memory type of
// its transform kind: int64, float64, bool, string or []string.
func coerceTransformed(kind types.TransformKind, v any) (any, error) {
	switch kind {
	case types.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case types.KindInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("expected integer, got %v", n)
			}
			return int64(n), nil
		default:
			return nil, fmt.Errorf("expected integer, got %T", v)
		}
	case types.KindFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("expected number, got %T", v)
		}
	case types.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
		return b, nil
	case types.KindStringList:
		switch list := v.(type) {
		case []string:
			return append([]string(nil), list...), nil
		case []any:
			out := make([]string, 0, len(list))
			for _, e := range list {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("expected string list, got %T element", e)
				}
				out = append(out, s)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("expected string list, got %T", v)
		}
	}
	return nil, fmt.Errorf("unknown transform kind %q", kind)
}
