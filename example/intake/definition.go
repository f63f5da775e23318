package main

import (
	"github.com/tbxark/parley/interview"
)

func intakeDefinition() *interview.Definition {
	return &interview.Definition{
		Title:       "Job application intake",
		Description: "A short screening conversation for an engineering role.",
		Collector: interview.RoleDefinition{
			Label:  "recruiting assistant",
			Traits: []string{"professional", "warm", "asks one thing at a time"},
		},
		Respondent: interview.RoleDefinition{
			Label: "job applicant",
			ConditionalTraits: []interview.TraitDefinition{
				{
					Name:      "terse",
					Condition: "the applicant answers in short clipped sentences",
				},
			},
		},
		Fields: []interview.FieldDefinition{
			{
				Name:   "full_name",
				Prompt: "the applicant's full name",
			},
			{
				Name:   "work_email",
				Prompt: "a work email address to reach the applicant",
				Must:   []string{"look like a real email address"},
				Reject: []string{"free mail domains such as gmail.com or outlook.com"},
				Hint:   "ask for a company address if a personal one is offered",
				Transforms: []interview.TransformDefinition{
					{Name: "as_domain", Kind: "string", Guidance: "just the domain part of the address"},
				},
			},
			{
				Name:   "years_experience",
				Prompt: "how many years of professional experience the applicant has",
				Transforms: []interview.TransformDefinition{
					{Name: "as_int", Kind: "int", Guidance: "the number of years as an integer"},
				},
			},
			{
				Name:   "languages",
				Prompt: "the programming languages the applicant works in",
				Transforms: []interview.TransformDefinition{
					{Name: "as_list", Kind: "string_list", Guidance: "one entry per language"},
				},
			},
			{
				Name:   "open_to_remote",
				Prompt: "whether the applicant would take a fully remote position",
				Transforms: []interview.TransformDefinition{
					{Name: "as_bool", Kind: "bool", Guidance: "true if they would"},
				},
			},
			{
				Name:      "confidence",
				Prompt:    "how confident the applicant sounded about their own experience",
				Lifecycle: "silent",
			},
			{
				Name:      "summary",
				Prompt:    "a two sentence summary of the applicant for the hiring manager",
				Lifecycle: "derived",
			},
		},
	}
}
