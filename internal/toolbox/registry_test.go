package toolbox

import (
	"context"
	"errors"
	"testing"

	"github.com/sretools/remedian/pkg/types"
)

func echoTool(name string) Definition {
	return Definition{
		ToolDefinition: types.ToolDefinition{
			Name:        name,
			Description: "echoes its arguments",
			Parameters: types.ObjectSchema(map[string]types.Property{
				"value": {Type: "string", Description: "value to echo"},
			}, "value"),
		},
		Handler: HandlerFunc(func(_ context.Context, args map[string]any) (any, error) {
			return args, nil
		}),
	}
}

func testRegistry(mode Mode) *Registry {
	r := NewRegistry(mode)
	r.AddGroup(StaticGroup(Group{
		Name:        "kubernetes",
		Description: "cluster inspection",
		Tools:       []Definition{echoTool("list_pods_in_namespace"), echoTool("delete_pod")},
	}))
	r.AddGroup(StaticGroup(Group{
		Name:        "gitlab",
		Description: "merge requests",
		Tools:       []Definition{echoTool("start_merge_request")},
	}))
	return r
}

func TestRegistry_GatedSessionStartsWithRouterAndCloser(t *testing.T) {
	st := testRegistry(ModeGated).NewSession()

	names := st.ActiveNames()
	if len(names) != 2 {
		t.Fatalf("expected 2 active tools, got %v", names)
	}
	if names[0] != RouterToolName || names[1] != CloserToolName {
		t.Errorf("expected router and closer active, got %v", names)
	}
	if _, found := st.Lookup("list_pods_in_namespace"); found {
		t.Error("domain tool should not be active before a router call")
	}
}

func TestRegistry_FlatSessionActivatesAllGroups(t *testing.T) {
	st := testRegistry(ModeFlat).NewSession()

	for _, name := range []string{CloserToolName, "list_pods_in_namespace", "delete_pod", "start_merge_request"} {
		if _, found := st.Lookup(name); !found {
			t.Errorf("expected %s to be active in flat mode", name)
		}
	}
	if _, found := st.Lookup(RouterToolName); found {
		t.Error("router tool should not be registered in flat mode")
	}
}

func TestRegistry_EmptyModeDefaultsToFlat(t *testing.T) {
	r := testRegistry(Mode(""))
	if r.Mode() != ModeFlat {
		t.Fatalf("Mode = %q, want %q", r.Mode(), ModeFlat)
	}

	st := r.NewSession()
	for _, name := range []string{CloserToolName, "list_pods_in_namespace", "start_merge_request"} {
		if _, found := st.Lookup(name); !found {
			t.Errorf("expected %s to be active with an unset mode", name)
		}
	}
	if _, found := st.Lookup(RouterToolName); found {
		t.Error("router tool should not be registered with an unset mode")
	}
}

func TestSessionTools_UnlockGrowsActiveSet(t *testing.T) {
	st := testRegistry(ModeGated).NewSession()

	g, err := st.Unlock("kubernetes")
	if err != nil {
		t.Fatalf("Unlock returned error: %v", err)
	}
	if g.Name != "kubernetes" {
		t.Errorf("expected kubernetes group, got %q", g.Name)
	}
	if _, found := st.Lookup("delete_pod"); !found {
		t.Error("delete_pod should be active after unlocking kubernetes")
	}

	before := len(st.ActiveNames())
	if _, err := st.Unlock("kubernetes"); err != nil {
		t.Fatalf("second Unlock returned error: %v", err)
	}
	if got := len(st.ActiveNames()); got != before {
		t.Errorf("repeated unlock changed active set size from %d to %d", before, got)
	}
}

func TestSessionTools_UnlockUnknownCategory(t *testing.T) {
	st := testRegistry(ModeGated).NewSession()

	_, err := st.Unlock("ghost")
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %v", err)
	}
	if toolErr.Tool != RouterToolName {
		t.Errorf("expected error attributed to %s, got %s", RouterToolName, toolErr.Tool)
	}
}

func TestSessionTools_RouterCategoryEnum(t *testing.T) {
	st := testRegistry(ModeGated).NewSession()

	router, found := st.Lookup(RouterToolName)
	if !found {
		t.Fatal("router tool not active")
	}
	prop, ok := router.Parameters.Properties["category"]
	if !ok {
		t.Fatal("router tool has no category parameter")
	}
	if len(prop.Enum) != 2 {
		t.Errorf("expected 2 enum values, got %v", prop.Enum)
	}
}

func TestSessionTools_CloserValidatesExplanation(t *testing.T) {
	st := testRegistry(ModeGated).NewSession()
	closer, _ := st.Lookup(CloserToolName)

	_, err := closer.Handler.Invoke(context.Background(), map[string]any{"solved": true, "explanation": ""})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError for empty explanation, got %v", err)
	}

	result, err := closer.Handler.Invoke(context.Background(), map[string]any{
		"solved":        true,
		"explanation":   "Restarted pod; alert cleared.",
		"missing_tools": []any{"restart_deployment"},
	})
	if err != nil {
		t.Fatalf("closer returned error: %v", err)
	}
	summary, ok := result.(*types.CaseSummary)
	if !ok {
		t.Fatalf("expected *types.CaseSummary, got %T", result)
	}
	if !summary.Solved || summary.Explanation != "Restarted pod; alert cleared." {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(summary.MissingTools) != 1 || summary.MissingTools[0] != "restart_deployment" {
		t.Errorf("unexpected missing tools: %v", summary.MissingTools)
	}
}
