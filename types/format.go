package types

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// FormatFieldTable renders fields as a markdown table under a "# title" header.
// Returns "" when there is nothing to show.
func FormatFieldTable(title string, fields []FieldBrief) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# " + title + ":\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Prompt", "Notes")
	for _, field := range fields {
		_ = table.Append(field.Name, field.Prompt, field.Hint)
	}
	_ = table.Render()
	return buf.String()
}

// FormatCollectedTable renders already valued fields with their raw values.
func FormatCollectedTable(title string, fields []FieldBrief) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# " + title + ":\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Value")
	for _, field := range fields {
		_ = table.Append(field.Name, field.Value)
	}
	_ = table.Render()
	return buf.String()
}

// FormatTraitTable renders conditional traits and their trigger conditions.
func FormatTraitTable(title string, traits []TraitBrief) string {
	if len(traits) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# " + title + ":\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Trait", "Condition")
	for _, trait := range traits {
		_ = table.Append(trait.Name, trait.Condition)
	}
	_ = table.Render()
	return buf.String()
}

func formatRoleSection(title string, role RolePrompt) string {
	if role.Label == "" && len(role.Traits) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# " + title + ":\n")
	buf.WriteString(role.Label)
	for _, trait := range role.Traits {
		buf.WriteString("\n- " + trait)
	}
	return buf.String()
}

// FormatPromptContext assembles the sections of the collector's system prompt
// from a prompt context. Sections are joined with blank lines and empty
// sections are skipped.
func FormatPromptContext(pc PromptContext) string {
	header := "# Interview:\n" + pc.Title
	if pc.Description != "" {
		header += "\n" + pc.Description
	}
	sections := []string{header}
	if s := formatRoleSection("Your persona", pc.Collector); s != "" {
		sections = append(sections, s)
	}
	if s := formatRoleSection("Respondent persona", pc.Respondent); s != "" {
		sections = append(sections, s)
	}
	if s := FormatFieldTable("Fields still to collect", pc.Pending); s != "" {
		sections = append(sections, s)
	}
	if s := FormatCollectedTable("Fields already collected", pc.Collected); s != "" {
		sections = append(sections, s)
	}
	if len(pc.Pending) == 0 {
		sections = append(sections, "# Fields still to collect:\nnone")
	}
	return strings.Join(sections, "\n\n")
}

// FormatRules renders must and reject rules as a compact suffix for a slot
// description, e.g. " Must: a; b. Reject: c."
func FormatRules(must, reject []string) string {
	var parts []string
	if len(must) > 0 {
		parts = append(parts, fmt.Sprintf("Must: %s.", strings.Join(must, "; ")))
	}
	if len(reject) > 0 {
		parts = append(parts, fmt.Sprintf("Reject: %s.", strings.Join(reject, "; ")))
	}
	return strings.Join(parts, " ")
}
