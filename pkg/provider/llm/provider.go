// Package llm defines the Provider interface for Large Language Model backends.
//
// A provider wraps a remote model API (OpenAI, or anything reachable through
// any-llm-go) and exposes a uniform completion interface for the remedian
// model gateway, without coupling the gateway to any specific SDK.
//
// Implementors must be safe for concurrent use: multiple remediation sessions
// may call Complete in parallel.
package llm

import (
	"context"
	"errors"

	"github.com/sretools/remedian/pkg/types"
)

// ErrRateLimited is wrapped by providers when the backend rejected the request
// with a rate-limit signal. The gateway treats it as "no response" rather than
// retrying; pacing is the gateway's own fixed-window limiter's job.
var ErrRateLimited = errors.New("provider rate limited the request")

// ErrBadRequest is wrapped by providers when the backend rejected the request
// as malformed (e.g. an unsupported tool schema). Like ErrRateLimited it is a
// terminal signal for the current session turn, not a retryable condition.
var ErrBadRequest = errors.New("provider rejected the request as malformed")

// Usage holds token accounting information returned by the backend.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages and
	// tool definitions.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// CompletionRequest carries everything the model needs to produce a response.
// Messages must be non-empty; a zero-value request is invalid.
type CompletionRequest struct {
	// Model is the backend model identifier (e.g. "gpt-5-nano").
	Model string

	// Messages is the ordered conversation history, including any developer
	// message, user prompts, prior assistant turns and tool results.
	Messages []types.Message

	// Tools is the set of function definitions offered to the model for this
	// turn. Providers must request automatic tool choice so the model decides
	// per turn whether to call one.
	Tools []types.ToolDefinition

	// Temperature controls output randomness. Zero means the provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means the provider default.
	MaxTokens int
}

// CompletionResponse is the single assistant turn returned by Complete.
type CompletionResponse struct {
	// Content is the text of the assistant's reply. Empty when the model
	// responds exclusively with tool calls.
	Content string

	// ToolCalls lists the tool invocations requested by the model, in emission
	// order. The caller executes them and appends the results.
	ToolCalls []types.ToolCall

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any chat-completion backend.
//
// Complete must propagate context cancellation promptly and must classify
// backend rejections: rate-limit failures are wrapped with [ErrRateLimited],
// malformed-request failures with [ErrBadRequest], so the gateway can tell
// them apart from transport errors without inspecting SDK types.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
