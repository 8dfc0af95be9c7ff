package conversation

import (
	"testing"

	"github.com/sretools/remedian/pkg/types"
)

func TestHistory_AppendAndLast(t *testing.T) {
	h := New()
	if _, ok := h.Last(); ok {
		t.Error("empty history should have no last message")
	}

	h.Append(types.Message{Role: types.RoleUser, Content: "first"})
	h.Append(types.Message{Role: types.RoleAssistant, Content: "second"})

	if h.Len() != 2 {
		t.Errorf("Len = %d, want 2", h.Len())
	}
	last, ok := h.Last()
	if !ok || last.Content != "second" {
		t.Errorf("Last = %+v, %v", last, ok)
	}
}

func TestHistory_TranscriptFiltersBookkeeping(t *testing.T) {
	h := New()
	h.Append(types.Message{Role: types.RoleDeveloper, Content: "operating instructions"})
	h.Append(types.Message{Role: types.RoleUser, Content: "alert fired"})
	h.Append(types.Message{Role: types.RoleAssistant, Content: "checking pods"})
	h.Append(types.Message{Role: types.RoleTool, Content: "tool output", Name: "list_pods_in_namespace"})
	h.Append(types.Message{Role: types.RoleAssistant})

	transcript := h.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(transcript))
	}
	if transcript[0].Content != "alert fired" || transcript[1].Content != "checking pods" {
		t.Errorf("unexpected transcript: %+v", transcript)
	}
}

func TestHistory_StripToolCalls(t *testing.T) {
	h := New()
	h.Append(types.Message{
		Role:      types.RoleAssistant,
		ToolCalls: []types.ToolCall{{ID: "call_1", Name: "list_namespaces"}},
	})

	h.StripToolCalls()
	if h.All()[0].ToolCalls != nil {
		t.Error("tool calls should be cleared")
	}
}
