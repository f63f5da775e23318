package update

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/parley/contract"
	"github.com/tbxark/parley/interview"
	"github.com/tbxark/parley/merge"
	"github.com/tbxark/parley/types"
)

func updateDoc(t *testing.T) *interview.Interview {
	t.Helper()
	def := &interview.Definition{
		Title: "Hiring",
		Respondent: interview.RoleDefinition{
			ConditionalTraits: []interview.TraitDefinition{
				{Name: "terse", Condition: "answers in fragments"},
			},
		},
		Collector: interview.RoleDefinition{
			ConditionalTraits: []interview.TraitDefinition{
				{Name: "formal", Condition: "prefers formal address"},
			},
		},
		Fields: []interview.FieldDefinition{
			{
				Name:   "name",
				Prompt: "the applicant's name",
				Must:   []string{"first and last name"},
				Reject: []string{"nicknames"},
			},
			{
				Name:   "team_size",
				Prompt: "team size",
				Transforms: []interview.TransformDefinition{
					{Name: "as_int", Kind: "int"},
					{Name: "as_float", Kind: "float"},
				},
			},
			{
				Name:   "languages",
				Prompt: "languages used",
				Transforms: []interview.TransformDefinition{
					{Name: "as_list", Kind: "string_list"},
				},
			},
			{
				Name:   "remote",
				Prompt: "open to remote work",
				Transforms: []interview.TransformDefinition{
					{Name: "as_bool", Kind: "bool"},
				},
			},
			{Name: "mood", Prompt: "overall mood", Lifecycle: "silent"},
		},
	}
	doc, err := def.Build()
	require.NoError(t, err)
	return doc
}

func TestDecodeTypedSlots(t *testing.T) {
	doc := updateDoc(t)
	c := contract.Compile(doc)

	args := `{
		"team_size": {"raw": "about four", "quote": "we are four", "as_int": 4, "as_float": 4.0},
		"languages": {"raw": "Go and SQL", "as_list": ["Go", "SQL"]},
		"remote": {"raw": "sure", "context": "asked about remote work", "as_bool": true}
	}`
	u, rejects := Decode(context.Background(), doc, c, args, nil)
	require.Empty(t, rejects)
	require.Len(t, u.Fields, 3)

	team := u.Fields["team_size"]
	require.NotNil(t, team.Raw)
	assert.Equal(t, "about four", *team.Raw)
	assert.Equal(t, "we are four", *team.Quote)
	assert.Equal(t, int64(4), team.Transformed["as_int"])
	assert.Equal(t, 4.0, team.Transformed["as_float"])

	assert.Equal(t, []string{"Go", "SQL"}, u.Fields["languages"].Transformed["as_list"])

	remote := u.Fields["remote"]
	assert.Equal(t, "asked about remote work", *remote.Context)
	assert.Equal(t, true, remote.Transformed["as_bool"])
}

func TestDecodeRejectsOutsideContract(t *testing.T) {
	doc := updateDoc(t)
	doc.Values["name"] = &interview.FieldValue{Raw: "Ada Lovelace"}
	c := contract.Compile(doc)

	args := `{"name": {"raw": "Ada King"}, "mood": {"raw": "calm"}, "team_size": {"raw": "four"}}`
	u, rejects := Decode(context.Background(), doc, c, args, nil)

	require.Len(t, u.Fields, 1)
	assert.Contains(t, u.Fields, "team_size")
	require.Len(t, rejects, 2)
	for _, r := range rejects {
		assert.Equal(t, "not in the current contract", r.Reason)
	}
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	doc := updateDoc(t)
	c := contract.Compile(doc)

	u, rejects := Decode(context.Background(), doc, c, `["not", "an", "object"]`, nil)
	assert.Empty(t, u.Fields)
	require.Len(t, rejects, 1)
	assert.Empty(t, rejects[0].Field)
	assert.Equal(t, "arguments are not a JSON object", rejects[0].Reason)
}

func TestDecodeRejectsBadFieldShapes(t *testing.T) {
	doc := updateDoc(t)
	c := contract.Compile(doc)

	cases := []struct {
		name   string
		args   string
		reason string
	}{
		{"scalar field payload", `{"name": "Ada"}`, "field payload must be an object"},
		{"missing raw", `{"name": {"quote": "I'm Ada"}}`, "missing raw value"},
		{"raw wrong type", `{"name": {"raw": 7}}`, "raw must be a string"},
		{"quote wrong type", `{"name": {"raw": "Ada", "quote": 7}}`, "quote must be a string"},
		{"unknown slot", `{"name": {"raw": "Ada", "as_int": 1}}`, `unknown slot "as_int"`},
		{"int wrong type", `{"team_size": {"raw": "four", "as_int": "four"}}`, `transform "as_int": expected an integer`},
		{"list wrong type", `{"languages": {"raw": "Go", "as_list": "Go"}}`, `transform "as_list": expected a list of strings`},
		{"bool wrong type", `{"remote": {"raw": "sure", "as_bool": "yes"}}`, `transform "as_bool": expected a boolean`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, rejects := Decode(context.Background(), doc, c, tc.args, nil)
			assert.Empty(t, u.Fields)
			require.Len(t, rejects, 1)
			assert.Equal(t, tc.reason, rejects[0].Reason)
		})
	}
}

func TestDecodeFieldCheckVeto(t *testing.T) {
	doc := updateDoc(t)
	c := contract.Compile(doc)

	check := func(_ context.Context, spec interview.FieldSpec, delta merge.FieldDelta) error {
		if spec.Name == "name" && *delta.Raw == "Ada" {
			return errors.New("needs a first and last name")
		}
		return nil
	}
	args := `{"name": {"raw": "Ada"}, "team_size": {"raw": "four"}}`
	u, rejects := Decode(context.Background(), doc, c, args, check)

	require.Len(t, rejects, 1)
	assert.Equal(t, "name", rejects[0].Field)
	assert.Equal(t, "needs a first and last name", rejects[0].Reason)
	require.Len(t, u.Fields, 1)
	assert.Contains(t, u.Fields, "team_size")
}

func TestDecodeTraitSlots(t *testing.T) {
	doc := updateDoc(t)
	c := contract.CompileDigest(doc, types.LifecycleSilent)

	args := `{
		"mood": {"raw": "upbeat"},
		"respondent_traits": {"terse": true, "ghost": true},
		"collector_traits": {"formal": "yes"}
	}`
	u, rejects := Decode(context.Background(), doc, c, args, nil)

	require.Len(t, u.Traits, 1)
	assert.Equal(t, merge.TraitDelta{Role: types.RoleRespondent, Name: "terse", Active: true}, u.Traits[0])
	assert.Contains(t, u.Fields, "mood")

	require.Len(t, rejects, 2)
	assert.Equal(t, "collector_traits.formal", rejects[0].Field)
	assert.Equal(t, "trait value must be a boolean", rejects[0].Reason)
	assert.Equal(t, "respondent_traits.ghost", rejects[1].Field)
	assert.Equal(t, "unknown trait", rejects[1].Reason)
}

func TestBuildResultOrderingAndRules(t *testing.T) {
	doc := updateDoc(t)
	outcomes := []merge.Outcome{
		{Field: "team_size", Applied: true},
		{Field: "name", Applied: false, Reason: "raw value is immutable once set"},
	}
	rejects := []Reject{{Field: "zz_unknown", Reason: "not in the current contract"}}

	res := BuildResult(doc, outcomes, rejects)
	require.Len(t, res.Results, 3)

	// Document order first, unknown names last.
	assert.Equal(t, "name", res.Results[0].Field)
	assert.Equal(t, "team_size", res.Results[1].Field)
	assert.Equal(t, "zz_unknown", res.Results[2].Field)

	// The refused field echoes its rules so the next attempt is informed.
	assert.False(t, res.Results[0].OK)
	assert.Equal(t, []string{"first and last name"}, res.Results[0].Must)
	assert.Equal(t, []string{"nicknames"}, res.Results[0].Reject)

	assert.True(t, res.Results[1].OK)
	assert.Empty(t, res.Results[1].Must)

	out, err := res.Render()
	require.NoError(t, err)
	assert.Contains(t, out, `"field":"name"`)
	assert.Contains(t, out, `"ok":true`)
	assert.Contains(t, out, `"must":["first and last name"]`)
}

func TestRenderEmptyResult(t *testing.T) {
	out, err := (&Result{}).Render()
	require.NoError(t, err)
	assert.Equal(t, `{"results":[]}`, out)
}
