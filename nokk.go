// Package nokk dispatches lifecycle events of an agent orchestration run to
// registered listeners. The orchestration engine announces each stage of a
// run (run start, agent reasoning, tool execution, handoffs, completion)
// through a Bus, and side concerns such as tracing or logging subscribe to
// the kinds they care about without ever feeding errors back into the run.
package nokk

import (
	"github.com/google/uuid"
)

// RunContext keys the engine fills in when the corresponding identity is
// known. Consumers treat absence as anonymous.
const (
	// SessionIDKey holds the conversational session identifier.
	SessionIDKey = "session_id"

	// UserIDKey holds the end user identifier.
	UserIDKey = "user_id"
)

// RunContext is the mutable state container that accompanies a single run.
// The engine creates one per run and passes it as the final payload element
// of every lifecycle event, so listeners can store and retrieve state scoped
// to that run. It is not safe for concurrent use; the engine drives each run
// from a single goroutine.
type RunContext struct {
	id     string
	values map[string]any
}

// NewRunContext returns a RunContext with a fresh run ID.
func NewRunContext() *RunContext {
	return &RunContext{
		id:     uuid.Must(uuid.NewV7()).String(),
		values: make(map[string]any),
	}
}

// ID returns the identifier of the run this context belongs to.
func (r *RunContext) ID() string {
	return r.id
}

// Set stores value under key, replacing any previous value.
func (r *RunContext) Set(key string, value any) {
	r.values[key] = value
}

// Value returns the value stored under key and whether it was present.
func (r *RunContext) Value(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Delete removes key from the context. Deleting an absent key is a no-op.
func (r *RunContext) Delete(key string) {
	delete(r.values, key)
}

// RunContextOf returns the trailing RunContext of an event payload. Every
// lifecycle event carries the run's context as its final element; listeners
// whose declared capacity covers the full payload can recover it with this
// helper. It returns nil when the payload is empty or the final element is
// not a RunContext.
func RunContextOf(args []any) *RunContext {
	if len(args) == 0 {
		return nil
	}
	rc, _ := args[len(args)-1].(*RunContext)
	return rc
}

// Result is the terminal outcome of a run as reported by the engine in the
// run completion event. Err is set when the run failed.
type Result struct {
	Output string
	Err    error
}
