// Package session drives one remediation case: it seeds the conversation
// from prompt templates, alternates between model completions and tool
// dispatch, and always ends in a structured outcome. Business-logic failures
// never escape a session; the worst observable result is an unresolved case.
package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sretools/remedian/internal/conversation"
	"github.com/sretools/remedian/internal/gateway"
	"github.com/sretools/remedian/internal/prompt"
	"github.com/sretools/remedian/internal/toolbox"
	"github.com/sretools/remedian/pkg/types"
)

// followUpMessage nudges a model that replied without tool calls back into
// the tool-calling protocol. Used when the request carries no follow-up
// template of its own.
const followUpMessage = "Use provided tools to solve the task, do not ask for permissions, just do things! If all other options are exhausted, run `" + toolbox.CloserToolName + "` and provide appropriate parameters!"

// Exhaustion explanations surfaced to the user when the model never closed
// the case.
const (
	explBackendSilent  = "The model backend stopped responding before the case was closed."
	explNoToolActivity = "The model stopped using tools without closing the case."
	explTurnLimit      = "The reasoning turn limit was reached without closing the case."
)

// Recorder receives session outcomes for instrumentation.
type Recorder interface {
	RecordSession(ctx context.Context, resolved bool, turns int)
}

// Request describes one triggering event. Templates use {name} placeholders
// filled from Values; rendering fails fast on a missing placeholder. The
// closer tool's name is always available as {finish_function_name}.
type Request struct {
	// SystemTemplate optionally seeds the conversation with a developer
	// message, typically the agent's operating instructions.
	SystemTemplate string

	// UserTemplate carries the triggering event, such as alert summaries
	// or merge request data.
	UserTemplate string

	// FollowUpTemplate optionally overrides the corrective message sent
	// when the model replies without tool calls.
	FollowUpTemplate string

	// Values fills the template placeholders.
	Values map[string]any
}

// Result is the terminal outcome of a session.
type Result struct {
	Resolved     bool     `json:"resolved"`
	Explanation  string   `json:"explanation"`
	MissingTools []string `json:"missing_tools,omitempty"`

	// Transcript is the user-facing part of the conversation, excluding
	// developer and tool bookkeeping messages.
	Transcript []types.Message `json:"transcript,omitempty"`
}

// Runner executes sessions. One Runner serves all sessions of the process;
// each Run call builds its own conversation, tool catalog and dispatcher, so
// concurrent runs do not interfere.
type Runner struct {
	gateway         *gateway.Gateway
	registry        *toolbox.Registry
	maxTurns        int
	legacyTextClose bool
	dispatchOpts    []toolbox.DispatcherOption
	recorder        Recorder
	logger          *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxTurns bounds the number of model completions per session. Sessions
// hitting the bound end exhausted. Values below one keep the default.
func WithMaxTurns(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxTurns = n
		}
	}
}

// WithLegacyTextClose toggles parsing a tool-call-less assistant reply as a
// literal closer-shaped JSON object. Some backends answer that way instead of
// emitting a structured call.
func WithLegacyTextClose(enabled bool) Option {
	return func(r *Runner) { r.legacyTextClose = enabled }
}

// WithDispatcherOptions forwards options to each session's dispatcher.
func WithDispatcherOptions(opts ...toolbox.DispatcherOption) Option {
	return func(r *Runner) { r.dispatchOpts = opts }
}

// WithRecorder wires session metrics.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner on top of a model gateway and a tool registry.
func NewRunner(gw *gateway.Gateway, registry *toolbox.Registry, opts ...Option) *Runner {
	r := &Runner{
		gateway:         gw,
		registry:        registry,
		maxTurns:        25,
		legacyTextClose: true,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one session to completion. It returns an error only when the
// request itself is unusable (a template references a value that was not
// provided); everything that happens after the conversation is seeded folds
// into the Result.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	logger := r.logger.With("session_id", uuid.NewString())

	values := make(map[string]any, len(req.Values)+1)
	for k, v := range req.Values {
		values[k] = v
	}
	values["finish_function_name"] = toolbox.CloserToolName

	hist := conversation.New()
	if req.SystemTemplate != "" {
		rendered, err := prompt.Parse(req.SystemTemplate).Render(values)
		if err != nil {
			return nil, err
		}
		hist.Append(types.Message{Role: types.RoleDeveloper, Content: rendered})
		logger.Debug("system prompt", "content", rendered)
	}
	userPrompt, err := prompt.Parse(req.UserTemplate).Render(values)
	if err != nil {
		return nil, err
	}
	hist.Append(types.Message{Role: types.RoleUser, Content: userPrompt})
	logger.Debug("user prompt", "content", userPrompt)

	followUp := followUpMessage
	if req.FollowUpTemplate != "" {
		if followUp, err = prompt.Parse(req.FollowUpTemplate).Render(values); err != nil {
			return nil, err
		}
	}

	tools := r.registry.NewSession()
	dispatcher := toolbox.NewDispatcher(tools, append([]toolbox.DispatcherOption{toolbox.WithLogger(logger)}, r.dispatchOpts...)...)

	turns := 0
	nudged := false
	for turns < r.maxTurns {
		msg := r.complete(ctx, logger, hist, tools)
		turns++
		if msg == nil {
			return r.finish(ctx, logger, hist, nil, explBackendSilent, turns), nil
		}
		hist.Append(*msg)

		if len(msg.ToolCalls) == 0 {
			if summary := r.legacyClose(logger, msg.Content); summary != nil {
				return r.finish(ctx, logger, hist, summary, "", turns), nil
			}
			if nudged {
				logger.Warn("model stopped requesting tools, ending session")
				return r.finish(ctx, logger, hist, nil, explNoToolActivity, turns), nil
			}
			logger.Warn("model response carries no tool calls, nudging")
			hist.Append(types.Message{Role: types.RoleUser, Content: followUp})
			nudged = true
			continue
		}
		nudged = false

		res := dispatcher.Dispatch(ctx, hist, msg)
		if res.Terminated {
			return r.finish(ctx, logger, hist, res.Summary, "", turns), nil
		}
	}
	logger.Warn("turn limit reached", "turns", turns)
	return r.finish(ctx, logger, hist, nil, explTurnLimit, turns), nil
}

// complete queries the gateway and folds every failure mode into "no
// response".
func (r *Runner) complete(ctx context.Context, logger *slog.Logger, hist *conversation.History, tools *toolbox.SessionTools) *types.Message {
	msg, err := r.gateway.Complete(ctx, hist, tools.Definitions())
	if err != nil {
		logger.Error("model completion failed", "error", err)
		return nil
	}
	return msg
}

// legacyClose tries to read a free-text assistant reply as a closer call of
// the form {"arguments": {"solved": ..., "explanation": ...}}. Anything that
// does not parse cleanly is ignored.
func (r *Runner) legacyClose(logger *slog.Logger, content string) *types.CaseSummary {
	if !r.legacyTextClose || content == "" {
		return nil
	}
	var wrapper struct {
		Arguments *types.CaseSummary `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(content), &wrapper); err != nil {
		return nil
	}
	if wrapper.Arguments == nil || wrapper.Arguments.Explanation == "" {
		return nil
	}
	logger.Info("closer tool called through assistant content, finishing reasoning")
	return wrapper.Arguments
}

func (r *Runner) finish(ctx context.Context, logger *slog.Logger, hist *conversation.History, summary *types.CaseSummary, explanation string, turns int) *Result {
	res := &Result{Explanation: explanation}
	if summary != nil {
		res.Resolved = summary.Solved
		res.Explanation = summary.Explanation
		res.MissingTools = summary.MissingTools
	}
	hist.StripToolCalls()
	res.Transcript = hist.Transcript()

	logger.Info("session finished",
		"resolved", res.Resolved,
		"turns", turns,
		"missing_tools", res.MissingTools)
	if r.recorder != nil {
		r.recorder.RecordSession(ctx, res.Resolved, turns)
	}
	return res
}
