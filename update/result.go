package update

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/tbxark/parley/interview"
	"github.com/tbxark/parley/merge"
)

// FieldResult is the per-field verdict echoed back to the backend. Rejected
// fields carry their must and reject rules again so the backend can re-elicit
// a better answer without guessing.
type FieldResult struct {
	Field  string   `json:"field"`
	OK     bool     `json:"ok"`
	Error  string   `json:"error,omitempty"`
	Must   []string `json:"must,omitempty"`
	Reject []string `json:"reject,omitempty"`
}

// Result is the full tool result for one tool call.
type Result struct {
	Results []FieldResult `json:"results"`
}

// BuildResult folds reducer outcomes and decode rejections into one result,
// ordered by document field order with everything else after.
func BuildResult(doc *interview.Interview, outcomes []merge.Outcome, rejects []Reject) *Result {
	res := &Result{}
	for _, o := range outcomes {
		fr := FieldResult{Field: o.Field, OK: o.Applied, Error: o.Reason}
		if !o.Applied {
			attachRules(doc, &fr)
		}
		res.Results = append(res.Results, fr)
	}
	for _, r := range rejects {
		fr := FieldResult{Field: r.Field, Error: r.Reason}
		attachRules(doc, &fr)
		res.Results = append(res.Results, fr)
	}
	sortByDocument(doc, res.Results)
	return res
}

// Render serializes the result for the tool message content.
func (r *Result) Render() (string, error) {
	if len(r.Results) == 0 {
		return `{"results":[]}`, nil
	}
	out, err := sonic.MarshalString(r)
	if err != nil {
		return "", fmt.Errorf("marshal tool result: %w", err)
	}
	return out, nil
}

func attachRules(doc *interview.Interview, fr *FieldResult) {
	spec, ok := doc.Spec(fr.Field)
	if !ok {
		return
	}
	fr.Must = spec.Must
	fr.Reject = spec.Reject
}

func sortByDocument(doc *interview.Interview, results []FieldResult) {
	index := make(map[string]int, len(doc.Fields))
	for n, f := range doc.Fields {
		index[f.Name] = n
	}
	rank := func(fr FieldResult) int {
		if n, ok := index[fr.Field]; ok {
			return n
		}
		return len(index)
	}
	// Stable insertion sort; batches are tiny and ties keep decode order.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && rank(results[j]) < rank(results[j-1]); j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}
