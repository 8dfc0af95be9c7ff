package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sretools/remedian/internal/conversation"
	"github.com/sretools/remedian/pkg/provider/llm"
	"github.com/sretools/remedian/pkg/provider/llm/mock"
	"github.com/sretools/remedian/pkg/types"
)

func seededHistory() *conversation.History {
	hist := conversation.New()
	hist.Append(types.Message{Role: types.RoleUser, Content: "pod crashlooping in default"})
	return hist
}

func TestGateway_ReturnsAssistantTurn(t *testing.T) {
	provider := &mock.Provider{Responses: []*llm.CompletionResponse{{
		Content: "checking the pod",
		ToolCalls: []types.ToolCall{
			{ID: "c1", Name: "list_pods_in_namespace", Arguments: `{"namespace":"default"}`},
		},
	}}}
	g := New(provider, "gpt-test")

	msg, err := g.Complete(context.Background(), seededHistory(), nil)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if msg == nil {
		t.Fatal("expected an assistant message")
	}
	if msg.Role != types.RoleAssistant {
		t.Errorf("expected assistant role, got %s", msg.Role)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Name != "list_pods_in_namespace" {
		t.Errorf("unexpected tool calls: %+v", msg.ToolCalls)
	}
}

func TestGateway_RateLimitRejectionIsNoResponse(t *testing.T) {
	provider := &mock.Provider{Err: fmt.Errorf("backend: %w", llm.ErrRateLimited)}
	g := New(provider, "gpt-test")

	msg, err := g.Complete(context.Background(), seededHistory(), nil)
	if err != nil {
		t.Fatalf("classified rejection must not surface as error, got %v", err)
	}
	if msg != nil {
		t.Errorf("expected no response, got %+v", msg)
	}
}

func TestGateway_BadRequestRejectionIsNoResponse(t *testing.T) {
	provider := &mock.Provider{Err: fmt.Errorf("backend: %w", llm.ErrBadRequest)}
	g := New(provider, "gpt-test")

	msg, err := g.Complete(context.Background(), seededHistory(), nil)
	if err != nil {
		t.Fatalf("classified rejection must not surface as error, got %v", err)
	}
	if msg != nil {
		t.Errorf("expected no response, got %+v", msg)
	}
}

func TestGateway_UnclassifiedFailureIsError(t *testing.T) {
	provider := &mock.Provider{Err: errors.New("connection refused")}
	g := New(provider, "gpt-test")

	if _, err := g.Complete(context.Background(), seededHistory(), nil); err == nil {
		t.Error("expected error for an unreachable backend")
	}
}

func TestGateway_PassesToolDefinitions(t *testing.T) {
	provider := &mock.Provider{Responses: []*llm.CompletionResponse{{Content: "ok"}}}
	g := New(provider, "gpt-test")

	tools := []types.ToolDefinition{{Name: "finish", Description: "closer"}}
	if _, err := g.Complete(context.Background(), seededHistory(), tools); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if len(provider.Calls) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(provider.Calls))
	}
	req := provider.Calls[0].Req
	if len(req.Tools) != 1 || req.Tools[0].Name != "finish" {
		t.Errorf("tool definitions not forwarded: %+v", req.Tools)
	}
	if req.Model != "gpt-test" {
		t.Errorf("model identifier not forwarded: %q", req.Model)
	}
}
