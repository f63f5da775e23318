package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/parley/types"
)

func validDefinition() *Definition {
	return &Definition{
		Title:       "Screening",
		Description: "A short screening conversation.",
		Collector: RoleDefinition{
			Label:  "recruiter",
			Traits: []string{"warm"},
		},
		Respondent: RoleDefinition{
			ConditionalTraits: []TraitDefinition{
				{Name: "terse", Condition: "answers are short and clipped"},
			},
		},
		Fields: []FieldDefinition{
			{
				Name:   "email",
				Prompt: "a work email address",
				Must:   []string{"look like an email address"},
				Reject: []string{"free mail domains"},
				Transforms: []TransformDefinition{
					{Name: "as_domain", Kind: "string", Guidance: "the domain part"},
				},
			},
			{Name: "nickname"},
			{Name: "mood", Prompt: "how the respondent came across", Lifecycle: "silent"},
			{Name: "summary", Prompt: "a one line summary", Lifecycle: "derived"},
		},
	}
}

func TestDefinitionBuild(t *testing.T) {
	doc, err := validDefinition().Build()
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Screening", doc.Title)
	assert.Equal(t, types.RoleCollector, doc.Collector.Kind)
	assert.Equal(t, "recruiter", doc.Collector.Label)
	assert.Equal(t, DefaultRespondentLabel, doc.Respondent.Label)
	require.Len(t, doc.Fields, 4)

	email, ok := doc.Spec("email")
	require.True(t, ok)
	assert.Equal(t, types.LifecycleNormal, email.Lifecycle)
	tr, ok := email.Transform("as_domain")
	require.True(t, ok)
	assert.Equal(t, types.KindString, tr.Kind)

	// Prompt falls back to the field name.
	nickname, ok := doc.Spec("nickname")
	require.True(t, ok)
	assert.Equal(t, "nickname", nickname.Prompt)

	mood, ok := doc.Spec("mood")
	require.True(t, ok)
	assert.Equal(t, types.LifecycleSilent, mood.Lifecycle)

	assert.Empty(t, doc.Values)
	assert.False(t, doc.Digests.Silent)
	assert.False(t, doc.Digests.Derived)
}

func TestDefinitionBuildFreshID(t *testing.T) {
	def := validDefinition()
	first, err := def.Build()
	require.NoError(t, err)
	second, err := def.Build()
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestDefinitionBuildRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Definition)
		want   string
	}{
		{
			name: "empty field name",
			mutate: func(d *Definition) {
				d.Fields = append(d.Fields, FieldDefinition{Name: ""})
			},
			want: "empty name",
		},
		{
			name: "whitespace field name",
			mutate: func(d *Definition) {
				d.Fields = append(d.Fields, FieldDefinition{Name: " padded "})
			},
			want: "whitespace",
		},
		{
			name: "duplicate field",
			mutate: func(d *Definition) {
				d.Fields = append(d.Fields, FieldDefinition{Name: "email"})
			},
			want: "duplicate field",
		},
		{
			name: "reserved field name",
			mutate: func(d *Definition) {
				d.Fields = append(d.Fields, FieldDefinition{Name: "respondent_traits"})
			},
			want: "reserved",
		},
		{
			name: "unknown lifecycle",
			mutate: func(d *Definition) {
				d.Fields[0].Lifecycle = "eventually"
			},
			want: "unknown lifecycle",
		},
		{
			name: "unknown transform kind",
			mutate: func(d *Definition) {
				d.Fields[0].Transforms[0].Kind = "decimal"
			},
			want: "unknown kind",
		},
		{
			name: "reserved transform name",
			mutate: func(d *Definition) {
				d.Fields[0].Transforms = append(d.Fields[0].Transforms, TransformDefinition{Name: "raw", Kind: "string"})
			},
			want: "reserved",
		},
		{
			name: "duplicate transform",
			mutate: func(d *Definition) {
				d.Fields[0].Transforms = append(d.Fields[0].Transforms, TransformDefinition{Name: "as_domain", Kind: "string"})
			},
			want: "duplicate transform",
		},
		{
			name: "trait without condition",
			mutate: func(d *Definition) {
				d.Respondent.ConditionalTraits = append(d.Respondent.ConditionalTraits, TraitDefinition{Name: "rushed"})
			},
			want: "no condition",
		},
		{
			name: "duplicate trait",
			mutate: func(d *Definition) {
				d.Respondent.ConditionalTraits = append(d.Respondent.ConditionalTraits, TraitDefinition{Name: "terse", Condition: "again"})
			},
			want: "duplicate trait",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(def)
			_, err := def.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseDefinitionJSON(t *testing.T) {
	data := []byte(`{
		"title": "Screening",
		"fields": [
			{"name": "email", "prompt": "a work email", "transforms": [{"name": "as_domain", "kind": "string"}]},
			{"name": "mood", "lifecycle": "silent"}
		]
	}`)
	def, err := ParseDefinition(data)
	require.NoError(t, err)
	doc, err := def.Build()
	require.NoError(t, err)
	require.Len(t, doc.Fields, 2)
	assert.Equal(t, types.LifecycleSilent, doc.Fields[1].Lifecycle)
}

func TestParseDefinitionYAML(t *testing.T) {
	data := []byte(`
title: Screening
respondent:
  conditional_traits:
    - name: terse
      condition: answers are short
fields:
  - name: email
    prompt: a work email
    must:
      - look like an email address
    transforms:
      - name: as_domain
        kind: string
  - name: summary
    lifecycle: derived
`)
	def, err := ParseDefinition(data)
	require.NoError(t, err)
	doc, err := def.Build()
	require.NoError(t, err)
	require.Len(t, doc.Fields, 2)
	email, ok := doc.Spec("email")
	require.True(t, ok)
	assert.Equal(t, []string{"look like an email address"}, email.Must)
	_, ok = doc.Respondent.Trait("terse")
	assert.True(t, ok)
}

func TestParseDefinitionBadInput(t *testing.T) {
	_, err := ParseDefinition([]byte(`{"fields": [`))
	require.Error(t, err)
	_, err = ParseDefinition([]byte("fields:\n  - name: [broken"))
	require.Error(t, err)
}
