package types

// Lifecycle controls when a field may be written and whether it is ever
// mentioned to the respondent.
type Lifecycle string

const (
	// LifecycleNormal fields are asked about openly during the conversation.
	LifecycleNormal Lifecycle = "normal"
	// LifecycleSilent fields are tracked without ever being mentioned and are
	// committed in a single digest pass once the open questions are done.
	LifecycleSilent Lifecycle = "silent"
	// LifecycleDerived fields are computed from the whole conversation in a
	// single digest pass rather than collected from the respondent.
	LifecycleDerived Lifecycle = "derived"
)

func (l Lifecycle) Valid() bool {
	switch l {
	case LifecycleNormal, LifecycleSilent, LifecycleDerived:
		return true
	}
	return false
}

// TransformKind names the value type a transform slot must decode to.
type TransformKind string

const (
	KindString     TransformKind = "string"
	KindInt        TransformKind = "int"
	KindFloat      TransformKind = "float"
	KindBool       TransformKind = "bool"
	KindStringList TransformKind = "string_list"
)

func (k TransformKind) Valid() bool {
	switch k {
	case KindString, KindInt, KindFloat, KindBool, KindStringList:
		return true
	}
	return false
}

// Stage identifies where in a turn the orchestrator currently is. It appears
// in logs and in backend errors.
type Stage string

const (
	StageInitialize Stage = "initialize"
	StageThink      Stage = "think"
	StageTools      Stage = "tools"
	StageListen     Stage = "listen"
	StageDigest     Stage = "digest"
	StageTeardown   Stage = "teardown"
)

// RoleKind distinguishes the two conversation parties.
type RoleKind string

const (
	RoleCollector  RoleKind = "collector"
	RoleRespondent RoleKind = "respondent"
)

// FieldBrief is the prompt-facing projection of one field.
type FieldBrief struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
	Hint   string `json:"hint,omitempty"`
	Value  string `json:"value,omitempty"`
	Valued bool   `json:"valued"`
}

// TraitBrief is the prompt-facing projection of one conditional trait.
type TraitBrief struct {
	Name      string `json:"name"`
	Condition string `json:"condition"`
	Active    bool   `json:"active"`
}

// RolePrompt is the prompt-facing projection of a conversation role. Traits
// already include any conditional traits that have been activated.
type RolePrompt struct {
	Label  string   `json:"label"`
	Traits []string `json:"traits,omitempty"`
}

// PromptContext carries everything the system prompt needs to describe the
// interview. Only openly collectable fields appear here; silent and derived
// fields are deliberately absent.
type PromptContext struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Collector   RolePrompt   `json:"collector"`
	Respondent  RolePrompt   `json:"respondent"`
	Pending     []FieldBrief `json:"pending,omitempty"`
	Collected   []FieldBrief `json:"collected,omitempty"`
}
