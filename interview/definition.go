package interview

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tbxark/parley/types"
)

// Slot names the contract reserves for itself. Fields may not use them.
var reservedNames = map[string]struct{}{
	"collector_traits":  {},
	"respondent_traits": {},
}

// Slot names inside a field payload that never name a transform.
var reservedSlots = map[string]struct{}{
	"raw":     {},
	"quote":   {},
	"context": {},
}

const (
	DefaultCollectorLabel  = "assistant"
	DefaultRespondentLabel = "user"
)

// TraitDefinition declares a conditional persona trait.
type TraitDefinition struct {
	Name      string `json:"name" yaml:"name"`
	Condition string `json:"condition" yaml:"condition"`
}

// RoleDefinition declares one conversation party.
type RoleDefinition struct {
	Label             string            `json:"label,omitempty" yaml:"label,omitempty"`
	Traits            []string          `json:"traits,omitempty" yaml:"traits,omitempty"`
	ConditionalTraits []TraitDefinition `json:"conditional_traits,omitempty" yaml:"conditional_traits,omitempty"`
}

// TransformDefinition declares one typed recasting of a field.
type TransformDefinition struct {
	Name     string `json:"name" yaml:"name"`
	Kind     string `json:"kind" yaml:"kind"`
	Guidance string `json:"guidance,omitempty" yaml:"guidance,omitempty"`
}

// FieldDefinition declares one field to collect. Lifecycle defaults to
// "normal" when empty.
type FieldDefinition struct {
	Name       string                `json:"name" yaml:"name"`
	Prompt     string                `json:"prompt" yaml:"prompt"`
	Must       []string              `json:"must,omitempty" yaml:"must,omitempty"`
	Reject     []string              `json:"reject,omitempty" yaml:"reject,omitempty"`
	Hint       string                `json:"hint,omitempty" yaml:"hint,omitempty"`
	Lifecycle  string                `json:"lifecycle,omitempty" yaml:"lifecycle,omitempty"`
	Transforms []TransformDefinition `json:"transforms,omitempty" yaml:"transforms,omitempty"`
}

// Definition is the authoring form of an interview. Build validates it and
// produces a fresh document.
type Definition struct {
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Collector   RoleDefinition    `json:"collector,omitempty" yaml:"collector,omitempty"`
	Respondent  RoleDefinition    `json:"respondent,omitempty" yaml:"respondent,omitempty"`
	Fields      []FieldDefinition `json:"fields" yaml:"fields"`
}

// ParseDefinition decodes a definition from JSON or YAML.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if err := sonic.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse definition JSON: %w", err)
		}
		return &def, nil
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse definition YAML: %w", err)
	}
	return &def, nil
}

// Build validates the definition and returns a new document with a fresh ID
// and no values.
func (d *Definition) Build() (*Interview, error) {
	doc := &Interview{
		ID:          uuid.NewString(),
		Title:       d.Title,
		Description: d.Description,
		Collector:   buildRole(types.RoleCollector, d.Collector, DefaultCollectorLabel),
		Respondent:  buildRole(types.RoleRespondent, d.Respondent, DefaultRespondentLabel),
		Values:      map[string]*FieldValue{},
	}
	if doc.Title == "" {
		doc.Title = "Interview"
	}

	seen := make(map[string]struct{}, len(d.Fields))
	for _, fd := range d.Fields {
		spec, err := buildField(fd)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate field name %q", spec.Name)
		}
		seen[spec.Name] = struct{}{}
		doc.Fields = append(doc.Fields, spec)
	}
	if err := validateRole(doc.Collector); err != nil {
		return nil, err
	}
	if err := validateRole(doc.Respondent); err != nil {
		return nil, err
	}
	return doc, nil
}

func buildRole(kind types.RoleKind, def RoleDefinition, defaultLabel string) Role {
	role := Role{
		Kind:   kind,
		Label:  def.Label,
		Traits: append([]string(nil), def.Traits...),
	}
	if role.Label == "" {
		role.Label = defaultLabel
	}
	for _, t := range def.ConditionalTraits {
		role.ConditionalTraits = append(role.ConditionalTraits, ConditionalTrait{
			Name:      t.Name,
			Condition: t.Condition,
		})
	}
	return role
}

func validateRole(role Role) error {
	seen := make(map[string]struct{}, len(role.ConditionalTraits))
	for _, t := range role.ConditionalTraits {
		if t.Name == "" {
			return fmt.Errorf("%s role: conditional trait with empty name", role.Kind)
		}
		if t.Condition == "" {
			return fmt.Errorf("%s role: trait %q has no condition", role.Kind, t.Name)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("%s role: duplicate trait %q", role.Kind, t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

func buildField(fd FieldDefinition) (FieldSpec, error) {
	name := strings.TrimSpace(fd.Name)
	if name == "" {
		return FieldSpec{}, fmt.Errorf("field with empty name")
	}
	if name != fd.Name {
		return FieldSpec{}, fmt.Errorf("field name %q has surrounding whitespace", fd.Name)
	}
	if _, ok := reservedNames[name]; ok {
		return FieldSpec{}, fmt.Errorf("field name %q is reserved", name)
	}
	lifecycle := types.Lifecycle(fd.Lifecycle)
	if lifecycle == "" {
		lifecycle = types.LifecycleNormal
	}
	if !lifecycle.Valid() {
		return FieldSpec{}, fmt.Errorf("field %q: unknown lifecycle %q", name, fd.Lifecycle)
	}
	spec := FieldSpec{
		Name:      name,
		Prompt:    fd.Prompt,
		Must:      append([]string(nil), fd.Must...),
		Reject:    append([]string(nil), fd.Reject...),
		Hint:      fd.Hint,
		Lifecycle: lifecycle,
	}
	if spec.Prompt == "" {
		spec.Prompt = name
	}
	seen := make(map[string]struct{}, len(fd.Transforms))
	for _, td := range fd.Transforms {
		if td.Name == "" {
			return FieldSpec{}, fmt.Errorf("field %q: transform with empty name", name)
		}
		if _, ok := reservedSlots[td.Name]; ok {
			return FieldSpec{}, fmt.Errorf("field %q: transform name %q is reserved", name, td.Name)
		}
		kind := types.TransformKind(td.Kind)
		if !kind.Valid() {
			return FieldSpec{}, fmt.Errorf("field %q: transform %q has unknown kind %q", name, td.Name, td.Kind)
		}
		if _, dup := seen[td.Name]; dup {
			return FieldSpec{}, fmt.Errorf("field %q: duplicate transform %q", name, td.Name)
		}
		seen[td.Name] = struct{}{}
		spec.Transforms = append(spec.Transforms, TransformSpec{
			Name:     td.Name,
			Kind:     kind,
			Guidance: td.Guidance,
		})
	}
	return spec, nil
}
