package toolbox

import "fmt"

// ToolError is the expected failure mode of a tool handler. Its Message is
// reported back into the conversation so the model can adapt; it never aborts
// a session. Handlers must wrap anticipated failures (missing namespace,
// missing file, API rejection) in a ToolError instead of returning them raw.
type ToolError struct {
	// Tool is the name of the tool that failed.
	Tool string

	// Message is the model-facing description of what went wrong.
	Message string

	// Inputs is a snapshot of the arguments the handler was invoked with.
	Inputs map[string]any

	// Cause optionally carries the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tool %s: %s: %v", e.Tool, e.Message, e.Cause)
	}
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ToolError) Unwrap() error {
	return e.Cause
}
