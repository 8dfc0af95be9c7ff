// Package gateway wraps the LLM provider behind the pacing and failure
// policy sessions rely on: completions are rate limited process-wide, and
// provider-side rejections are translated into "no response" instead of
// errors so the session loop can wind down gracefully.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sretools/remedian/internal/conversation"
	"github.com/sretools/remedian/internal/resilience"
	"github.com/sretools/remedian/pkg/provider/llm"
	"github.com/sretools/remedian/pkg/types"
)

// Recorder receives completion outcomes for instrumentation.
type Recorder interface {
	RecordModelCall(ctx context.Context, model, status string, usage llm.Usage)
}

// Gateway issues completions against one model. The limiter is shared across
// all sessions of the process; Complete blocks until window capacity is
// available before reaching out to the provider.
type Gateway struct {
	provider llm.Provider
	limiter  *resilience.WindowLimiter
	model    string
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLimiter installs the shared rate limiter. Without one, calls go out
// unpaced.
func WithLimiter(l *resilience.WindowLimiter) Option {
	return func(g *Gateway) { g.limiter = l }
}

// WithRecorder wires completion metrics.
func WithRecorder(rec Recorder) Option {
	return func(g *Gateway) { g.recorder = rec }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New creates a Gateway for the given provider and model identifier.
func New(provider llm.Provider, model string, opts ...Option) *Gateway {
	g := &Gateway{
		provider: provider,
		model:    model,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complete sends the history and the active tool set to the model and returns
// the assistant turn. A nil message with a nil error means the provider
// rejected the request (rate limit or bad request); callers must treat that
// as an exhaustion signal rather than retry. A non-nil error means the
// backend could not be reached at all.
func (g *Gateway) Complete(ctx context.Context, hist *conversation.History, tools []types.ToolDefinition) (*types.Message, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limit window: %w", err)
	}

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model:    g.model,
		Messages: hist.All(),
		Tools:    tools,
	})
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrRateLimited):
			g.logger.Error("model backend rate limited the request", "model", g.model, "error", err)
			g.record(ctx, "rate_limited", llm.Usage{})
			return nil, nil
		case errors.Is(err, llm.ErrBadRequest):
			g.logger.Error("model backend rejected the request", "model", g.model, "error", err)
			g.record(ctx, "bad_request", llm.Usage{})
			return nil, nil
		default:
			g.record(ctx, "error", llm.Usage{})
			return nil, fmt.Errorf("completing against %s: %w", g.model, err)
		}
	}
	g.record(ctx, "ok", resp.Usage)

	msg := &types.Message{
		Role:      types.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	}
	if msg.Content != "" {
		g.logger.Info("assistant", "content", msg.Content)
	}
	return msg, nil
}

func (g *Gateway) record(ctx context.Context, status string, usage llm.Usage) {
	if g.recorder != nil {
		g.recorder.RecordModelCall(ctx, g.model, status, usage)
	}
}
