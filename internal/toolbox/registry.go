package toolbox

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sretools/remedian/pkg/types"
)

// Mode selects how a session's tool catalog is exposed to the model.
type Mode string

const (
	// ModeFlat activates every registered group at session start.
	ModeFlat Mode = "flat"

	// ModeGated starts a session with only the router and closer tools;
	// the model unlocks groups by category through the router tool.
	ModeGated Mode = "gated"
)

// Reserved tool names. Domain tools must not reuse them.
const (
	RouterToolName = "request_tools"
	CloserToolName = "finish"
)

// Registry is the static, process-wide catalog of tool group factories.
// It is assembled once at startup and read-only afterwards, so concurrent
// sessions may call NewSession without locking.
type Registry struct {
	mode      Mode
	factories []GroupFactory
}

// NewRegistry creates an empty Registry operating in the given mode. An
// empty mode falls back to [ModeFlat], so a config that leaves the mode unset
// still exposes every registered group.
func NewRegistry(mode Mode) *Registry {
	if mode == "" {
		mode = ModeFlat
	}
	return &Registry{mode: mode}
}

// Mode reports the registry's operating mode.
func (r *Registry) Mode() Mode {
	return r.mode
}

// AddGroup registers a group factory. Registration order is preserved and
// determines the order of tool definitions handed to the model.
func (r *Registry) AddGroup(f GroupFactory) {
	r.factories = append(r.factories, f)
}

// NewSession materializes a fresh per-session catalog: every factory is
// invoked so stateful handlers get session-local instances. In flat mode all
// groups start active; in gated mode only the router and closer do.
func (r *Registry) NewSession() *SessionTools {
	st := &SessionTools{
		mode:   r.mode,
		groups: make(map[string]Group, len(r.factories)),
		active: make(map[string]Definition),
	}
	for _, f := range r.factories {
		g := f()
		if _, exists := st.groups[g.Name]; exists {
			continue
		}
		st.groups[g.Name] = g
		st.groupOrder = append(st.groupOrder, g.Name)
	}

	if r.mode == ModeGated {
		st.add(st.routerDefinition())
	}
	st.add(closerDefinition())
	if r.mode == ModeFlat {
		for _, name := range st.groupOrder {
			st.Activate(st.groups[name])
		}
	}
	return st
}

// SessionTools is one session's view of the tool catalog: the materialized
// groups plus the currently active set. The active set only grows; there is
// no way to unload a group within a session. Owned by a single session's
// control flow, so it needs no locking.
type SessionTools struct {
	mode       Mode
	groups     map[string]Group
	groupOrder []string

	active      map[string]Definition
	activeOrder []string
}

func (st *SessionTools) add(d Definition) {
	if _, exists := st.active[d.Name]; exists {
		return
	}
	st.active[d.Name] = d
	st.activeOrder = append(st.activeOrder, d.Name)
}

// Activate merges a group into the active set. Tools whose names are already
// active keep their existing binding.
func (st *SessionTools) Activate(g Group) {
	for _, d := range g.Tools {
		st.add(d)
	}
}

// Unlock resolves a category name to its group and activates it. Unknown
// categories yield a *ToolError, not a failure of the session.
func (st *SessionTools) Unlock(category string) (Group, error) {
	g, ok := st.groups[category]
	if !ok {
		return Group{}, &ToolError{
			Tool:    RouterToolName,
			Message: fmt.Sprintf("no such category %q, available categories are: %s", category, strings.Join(st.Categories(), ", ")),
			Inputs:  map[string]any{"category": category},
		}
	}
	st.Activate(g)
	return g, nil
}

// Lookup returns the active definition with the given name.
func (st *SessionTools) Lookup(name string) (Definition, bool) {
	d, ok := st.active[name]
	return d, ok
}

// Categories lists the unlockable group names in registration order.
func (st *SessionTools) Categories() []string {
	return append([]string(nil), st.groupOrder...)
}

// ActiveNames lists the names of the active tools in activation order.
// Primarily useful for logging and tests.
func (st *SessionTools) ActiveNames() []string {
	return append([]string(nil), st.activeOrder...)
}

// Definitions returns the schema of every active tool, in activation order,
// ready to be handed to the model gateway.
func (st *SessionTools) Definitions() []types.ToolDefinition {
	defs := make([]types.ToolDefinition, 0, len(st.activeOrder))
	for _, name := range st.activeOrder {
		defs = append(defs, st.active[name].ToolDefinition)
	}
	return defs
}

// routerDefinition builds the gated-mode router tool. Its category parameter
// enumerates the registered group names so the model cannot guess blindly.
func (st *SessionTools) routerDefinition() Definition {
	categories := st.Categories()
	sort.Strings(categories)

	var desc strings.Builder
	desc.WriteString("Request access to a category of tools. The tools of the requested category become available for all following steps. Available categories:")
	for _, name := range categories {
		g := st.groups[name]
		desc.WriteString(fmt.Sprintf("\n- %s: %s", g.Name, g.Description))
	}

	return Definition{
		ToolDefinition: types.ToolDefinition{
			Name:        RouterToolName,
			Description: desc.String(),
			Parameters: types.ObjectSchema(map[string]types.Property{
				"category": {
					Type:        "string",
					Enum:        categories,
					Description: "Name of the tool category to unlock",
				},
			}, "category"),
		},
		Handler: HandlerFunc(func(_ context.Context, args map[string]any) (any, error) {
			category, _ := args["category"].(string)
			g, err := st.Unlock(category)
			if err != nil {
				return nil, err
			}
			return g, nil
		}),
	}
}

// closerDefinition builds the closer tool. Its handler validates the final
// answer and converts it into the session's CaseSummary.
func closerDefinition() Definition {
	return Definition{
		ToolDefinition: types.ToolDefinition{
			Name:        CloserToolName,
			Description: "Run the function to finish the case and provide final answer to the user.",
			Parameters: types.ObjectSchema(map[string]types.Property{
				"solved": {
					Type:        "boolean",
					Description: "Information for user if the case was solved successfully",
				},
				"explanation": {
					Type:        "string",
					Description: "Explanation message for the user about the case resolution",
				},
				"missing_tools": {
					Type:        "array",
					Description: "List of tools that would be useful to solve the case, but are not available",
					Items:       &types.Property{Type: "string"},
				},
			}, "solved", "explanation"),
		},
		Handler: HandlerFunc(func(_ context.Context, args map[string]any) (any, error) {
			explanation, _ := args["explanation"].(string)
			if explanation == "" {
				return nil, &ToolError{
					Tool:    CloserToolName,
					Message: "Not possible to close conversation without meaningful explanation and conversation summary!",
					Inputs:  args,
				}
			}
			solved, _ := args["solved"].(bool)
			var missing []string
			if raw, ok := args["missing_tools"].([]any); ok {
				for _, v := range raw {
					if s, ok := v.(string); ok {
						missing = append(missing, s)
					}
				}
			}
			return &types.CaseSummary{
				Solved:       solved,
				Explanation:  explanation,
				MissingTools: missing,
			}, nil
		}),
	}
}
