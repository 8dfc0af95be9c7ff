// Package conversation holds the append-only message history of a single
// remediation session.
//
// A History is owned by exactly one session and is not safe for concurrent
// use — the orchestrator loop is a strict request/response alternation, so no
// two writers ever exist. Messages are never deleted; the only mutation
// allowed after append is clearing each message's tool calls at session end
// for presentation purposes.
package conversation

import "github.com/sretools/remedian/pkg/types"

// History is the ordered, append-only conversation state of one session.
// The zero value is ready to use.
type History struct {
	messages []types.Message
}

// New returns an empty History.
func New() *History {
	return &History{}
}

// Append adds a message to the end of the history.
func (h *History) Append(msg types.Message) {
	h.messages = append(h.messages, msg)
}

// Len returns the number of messages appended so far.
func (h *History) Len() int {
	return len(h.messages)
}

// All returns the full ordered message sequence. The returned slice is shared
// with the history; callers must treat it as read-only except for the
// dispatcher, which attaches local results to tool calls in place.
func (h *History) All() []types.Message {
	return h.messages
}

// Last returns the most recently appended message and true, or a zero message
// and false when the history is empty.
func (h *History) Last() (types.Message, bool) {
	if len(h.messages) == 0 {
		return types.Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// Transcript returns the user-facing subsequence of the history: system,
// developer and tool bookkeeping messages are excluded, as are messages
// without content. The result is a copy and safe to retain.
func (h *History) Transcript() []types.Message {
	var out []types.Message
	for _, m := range h.messages {
		switch m.Role {
		case types.RoleSystem, types.RoleDeveloper, types.RoleTool:
			continue
		}
		if m.Content == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// StripToolCalls clears the tool call lists on every message. Called once at
// session end so that serialized transcripts do not carry provider-specific
// call structures. This is the single permitted post-append mutation.
func (h *History) StripToolCalls() {
	for i := range h.messages {
		h.messages[i].ToolCalls = nil
	}
}
