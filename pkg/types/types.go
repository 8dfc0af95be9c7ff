// Package types contains the shared data structures exchanged between the
// conversation state, the model gateway, the tool registry, and the session
// orchestrator. It deliberately has no dependencies so that both internal
// packages and provider implementations under pkg/provider can import it.
package types

// Message roles. The developer role is the modern replacement for system in
// chat-completion style APIs; both are treated identically everywhere except
// at the provider boundary, which maps them to whatever the backend expects.
const (
	RoleSystem    = "system"
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single entry in a session's conversation history.
//
// Ordering is significant: a tool message must reference a ToolCall ID emitted
// by the immediately preceding assistant message. Messages are owned by exactly
// one session's history and are never shared between sessions.
type Message struct {
	// Role is one of the Role* constants.
	Role string `json:"role"`

	// Name optionally identifies the tool that produced a tool message.
	Name string `json:"name,omitempty"`

	// Content is the text content. May be empty for assistant messages that
	// carry only tool calls.
	Content string `json:"content,omitempty"`

	// ToolCalls holds the tool invocations requested by an assistant message,
	// in the order the model emitted them.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool message back to the assistant ToolCall it
	// answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is one structured invocation request emitted by the model inside an
// assistant message.
type ToolCall struct {
	// ID is the provider-assigned identifier for this call.
	ID string `json:"id"`

	// Name is the tool's function name.
	Name string `json:"name"`

	// Arguments is the JSON-encoded argument object, exactly as the model
	// emitted it. Parsing happens in the dispatcher, per call, so that one
	// malformed call cannot take down the whole batch.
	Arguments string `json:"arguments"`

	// Result is attached by the dispatcher after the bound handler ran. It is
	// local bookkeeping only and is never serialized back to the model.
	Result any `json:"-"`
}

// Property describes a single parameter of a tool in the provider's
// function-schema form.
type Property struct {
	// Type is the JSON schema type ("string", "integer", "boolean", "array", ...).
	Type string `json:"type"`

	// Enum restricts string parameters to a fixed set of values.
	Enum []string `json:"enum,omitempty"`

	// Description tells the model what the parameter means.
	Description string `json:"description,omitempty"`

	// Items describes array element types when Type is "array".
	Items *Property `json:"items,omitempty"`
}

// Schema is the parameter schema of a tool. It round-trips exactly into the
// `parameters` object of the provider's function definition.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// ObjectSchema returns a Schema with type "object" and the given properties.
func ObjectSchema(props map[string]Property, required ...string) *Schema {
	return &Schema{Type: "object", Properties: props, Required: required}
}

// ToolDefinition describes a tool offered to the model. It is the wire-level
// half of a registered tool; the bound handler lives in the toolbox package.
// Definitions are immutable after registration.
type ToolDefinition struct {
	// Name is unique within a session's active tool set.
	Name string `json:"name"`

	// Description is included in the request so the model knows when to call
	// the tool.
	Description string `json:"description"`

	// Parameters is the typed parameter schema. Nil means the tool takes no
	// arguments.
	Parameters *Schema `json:"parameters,omitempty"`
}

// CaseSummary is the structured outcome carried by the closer tool. Exactly
// one is produced per session, by the closer; every other path yields an
// unsolved summary synthesized by the orchestrator.
type CaseSummary struct {
	// Solved reports whether the model considers the case resolved.
	Solved bool `json:"solved"`

	// Explanation is the human-readable resolution summary. Required: the
	// closer rejects calls with an empty explanation.
	Explanation string `json:"explanation"`

	// MissingTools lists tools the model wished it had.
	MissingTools []string `json:"missing_tools,omitempty"`
}
