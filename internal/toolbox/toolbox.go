// Package toolbox holds the tool catalog the model operates on: definitions
// bound to handlers, named groups, the registry that materializes a per-session
// catalog, and the dispatcher that executes the model's tool calls.
package toolbox

import (
	"context"

	"github.com/sretools/remedian/pkg/types"
)

// Handler executes one tool invocation. Arguments arrive as the decoded JSON
// object the model emitted; the result must be JSON-serializable. Expected
// failures are returned as *ToolError.
type Handler interface {
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Invoke implements Handler.
func (f HandlerFunc) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return f(ctx, args)
}

var _ Handler = (HandlerFunc)(nil)

// Definition pairs a tool's schema with its handler. A Definition without a
// handler is legal to register; invoking it yields a "no handler" tool message
// rather than an error.
type Definition struct {
	types.ToolDefinition
	Handler Handler
}

// Group is a named, immutable list of tool definitions. In gated mode a group
// becomes available to the model only after the router tool unlocks it.
type Group struct {
	// Name is the category the router tool accepts for this group.
	Name string

	// Description is shown to the model as part of the router tool's
	// category enumeration.
	Description string

	Tools []Definition
}

// GroupFactory builds a fresh Group for one session. Factories exist so tools
// that carry per-session state (such as a merge request under construction)
// get their own handler instances and cannot leak state across concurrent
// sessions.
type GroupFactory func() Group

// StaticGroup wraps an already-built group in a factory. Suitable for
// stateless tools whose handlers are safe to share.
func StaticGroup(g Group) GroupFactory {
	return func() Group { return g }
}
