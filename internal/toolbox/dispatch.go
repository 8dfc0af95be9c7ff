package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sretools/remedian/internal/conversation"
	"github.com/sretools/remedian/internal/redact"
	"github.com/sretools/remedian/pkg/types"
)

// Tool message texts reported back to the model. Kept short and literal so
// the model can pattern-match on them across turns.
const (
	msgToolNotFound = "Tool not found in router"
	msgNoHandler    = "No handler defined for tool"
	msgToolProblem  = "There was a problem calling the tool! %v"
	msgBadArguments = "Arguments for tool %s are not valid JSON: %v"
)

const toolResultTemplate = `
Tool named %s was called with parameters:
%s
it's result was:
` + "```\n%s\n```\n"

// Recorder receives tool invocation outcomes for instrumentation. Implemented
// by the observe package; a nil Recorder disables recording.
type Recorder interface {
	RecordToolCall(ctx context.Context, tool, status string)
}

// Result reports what one dispatch pass did.
type Result struct {
	// Terminated is true when a closer call was processed. Calls after the
	// closer in the same batch were not executed.
	Terminated bool

	// Summary is the closer's parsed outcome. It is nil when the closer's
	// result could not be interpreted; the session still terminates, just
	// unresolved.
	Summary *types.CaseSummary
}

// Dispatcher executes the tool calls of one assistant turn against a
// session's active tool set. Calls run sequentially in emission order, each
// call's failure is isolated into a tool message, and nothing a handler does
// can abort the session.
type Dispatcher struct {
	tools    *SessionTools
	redactor *redact.Redactor
	recorder Recorder
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRedactor masks secret-bearing values in tool results before they are
// serialized into the conversation.
func WithRedactor(r *redact.Redactor) DispatcherOption {
	return func(d *Dispatcher) { d.redactor = r }
}

// WithRecorder wires invocation metrics.
func WithRecorder(rec Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = rec }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a Dispatcher bound to one session's tool set.
func NewDispatcher(tools *SessionTools, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		tools:  tools,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Tools returns the session tool set the dispatcher operates on.
func (d *Dispatcher) Tools() *SessionTools {
	return d.tools
}

// Dispatch processes the tool calls of the given assistant message in order,
// appending exactly one tool message per processed call. It returns early
// when the closer tool fires; remaining calls in the batch are skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, hist *conversation.History, assistant *types.Message) Result {
	for i := range assistant.ToolCalls {
		call := &assistant.ToolCalls[i]

		def, found := d.tools.Lookup(call.Name)
		if !found {
			d.logger.Warn("tool not found in active set, skipping", "tool", call.Name)
			d.record(ctx, call.Name, "not_found")
			d.appendToolMessage(hist, call, msgToolNotFound)
			continue
		}
		if def.Handler == nil {
			d.logger.Warn("tool exposes no handler, skipping", "tool", call.Name)
			d.record(ctx, call.Name, "no_handler")
			d.appendToolMessage(hist, call, msgNoHandler)
			continue
		}

		var args map[string]any
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			d.logger.Warn("tool call carries malformed arguments", "tool", call.Name, "error", err)
			d.record(ctx, call.Name, "bad_arguments")
			d.appendToolMessage(hist, call, fmt.Sprintf(msgBadArguments, call.Name, err))
			continue
		}

		d.logger.Info("invoking tool", "tool", call.Name, "args", args)
		result, err := invoke(ctx, def.Handler, args)
		if err != nil {
			var toolErr *ToolError
			if errors.As(err, &toolErr) {
				d.logger.Error("tool returned an error", "tool", call.Name, "error", err)
				d.record(ctx, call.Name, "tool_error")
				d.appendToolMessage(hist, call, toolErr.Message)
			} else {
				d.logger.Error("tool invocation failed", "tool", call.Name, "args", args, "error", err)
				d.record(ctx, call.Name, "crash")
				d.appendToolMessage(hist, call, fmt.Sprintf(msgToolProblem, err))
			}
			continue
		}
		call.Result = result
		d.record(ctx, call.Name, "ok")

		switch call.Name {
		case CloserToolName:
			d.logger.Info("closer tool called, finishing reasoning")
			hist.Append(types.Message{
				Role:       types.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
			})
			summary, _ := result.(*types.CaseSummary)
			return Result{Terminated: true, Summary: summary}

		case RouterToolName:
			group, _ := result.(Group)
			d.appendToolMessage(hist, call, unlockedMessage(group))

		default:
			d.appendToolMessage(hist, call, d.formatResult(call.Name, args, result))
		}
	}
	return Result{}
}

// invoke runs a handler and downgrades a panic to an error so a crashing
// tool cannot take the session down with it.
func invoke(ctx context.Context, h Handler, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool handler panicked: %v", r)
		}
	}()
	return h.Invoke(ctx, args)
}

func (d *Dispatcher) appendToolMessage(hist *conversation.History, call *types.ToolCall, content string) {
	hist.Append(types.Message{
		Role:       types.RoleTool,
		Name:       call.Name,
		Content:    content,
		ToolCallID: call.ID,
	})
}

func (d *Dispatcher) record(ctx context.Context, tool, status string) {
	if d.recorder != nil {
		d.recorder.RecordToolCall(ctx, tool, status)
	}
}

// formatResult renders a successful invocation for the model: the tool name,
// its arguments line by line and the JSON-serialized (and redacted) result.
func (d *Dispatcher) formatResult(tool string, args map[string]any, result any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  - '%s' = '%v'", k, args[k]))
	}

	if d.redactor != nil {
		result = d.redactor.Apply(result)
	}
	encoded := "{}"
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			d.logger.Error("tool result is not serializable", "tool", tool, "error", err)
			encoded = fmt.Sprintf("%v", result)
		} else {
			encoded = string(raw)
		}
	}
	return fmt.Sprintf(toolResultTemplate, tool, strings.Join(lines, "\n"), encoded)
}

func unlockedMessage(g Group) string {
	names := make([]string, 0, len(g.Tools))
	for _, t := range g.Tools {
		names = append(names, t.Name)
	}
	return fmt.Sprintf("Unlocked tool category %q. The following tools are now available: %s", g.Name, strings.Join(names, ", "))
}
