// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the gateway and orchestrator send
// correct CompletionRequests and to feed scripted responses without a live
// model backend. Configure the script before first use; mutating fields during
// concurrent calls is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{
//	    Responses: []*llm.CompletionResponse{
//	        {ToolCalls: []types.ToolCall{{ID: "1", Name: "finish", Arguments: `{"solved":true,"explanation":"done"}`}}},
//	    },
//	}
package mock

import (
	"context"
	"sync"

	"github.com/sretools/remedian/pkg/provider/llm"
)

// Call records a single invocation of Complete.
type Call struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider. Each Complete call
// consumes the next entry from Responses; when the script runs out, the last
// entry is repeated. Set Err to inject a failure instead.
type Provider struct {
	mu sync.Mutex

	// Responses is the scripted sequence of replies, consumed in order.
	Responses []*llm.CompletionResponse

	// Err, if non-nil, is returned by every Complete call, taking priority
	// over Responses.
	Err error

	// Calls records every invocation of Complete in order. Read after test.
	Calls []Call

	next int
}

// Compile-time check: Provider must implement llm.Provider.
var _ llm.Provider = (*Provider)(nil)

// Complete records the call and returns the next scripted response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, Call{Ctx: ctx, Req: req})

	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Responses) == 0 {
		return &llm.CompletionResponse{}, nil
	}
	resp := p.Responses[p.next]
	if p.next < len(p.Responses)-1 {
		p.next++
	}
	return resp, nil
}

// CallCount returns how many times Complete was invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
