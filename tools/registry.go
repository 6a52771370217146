// Tool Registry.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Registration order preserved for deterministic prompts
// - Execution routed through the Executor

package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/richinex/anko/llm"
)

// Registry holds the tools available to the agent, keyed by Kind.
// It is populated once at startup and read concurrently afterwards.
type Registry struct {
	mu       sync.RWMutex
	tools    map[Kind]Tool
	order    []Kind
	executor *Executor
}

// NewRegistry creates an empty registry that runs tools with executor.
// A nil executor uses the default retry and timeout settings.
func NewRegistry(executor *Executor) *Registry {
	if executor == nil {
		executor = NewDefaultExecutor()
	}
	return &Registry{
		tools:    make(map[Kind]Tool),
		executor: executor,
	}
}

// Register adds a tool. Registering a second tool of the same kind fails.
func (r *Registry) Register(tool Tool) error {
	kind := tool.Kind()
	if _, ok := kindNames[kind]; !ok {
		return fmt.Errorf("tool '%s' has no known kind", tool.Metadata().Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[kind]; exists {
		return fmt.Errorf("tool '%s' already registered", kind)
	}
	r.tools[kind] = tool
	r.order = append(r.order, kind)
	return nil
}

// Get returns the tool registered for kind.
func (r *Registry) Get(kind Kind) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[kind]
	if !ok {
		return nil, &NotFoundError{Name: kind.String()}
	}
	return tool, nil
}

// Lookup returns the tool registered under a model-facing name.
func (r *Registry) Lookup(name string) (Tool, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return r.Get(kind)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Describe lists registered tools in registration order.
func (r *Registry) Describe() []Description {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Description, 0, len(r.order))
	for _, kind := range r.order {
		meta := r.tools[kind].Metadata()
		out = append(out, Description{Name: meta.Name, Description: meta.Description})
	}
	return out
}

// Definitions returns the function-calling definitions sent to the model,
// in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, kind := range r.order {
		meta := r.tools[kind].Metadata()
		params := meta.Parameters
		if params == nil {
			params = InputSchema()
		}
		defs = append(defs, llm.ToolDefinition{
			Name:        meta.Name,
			Description: meta.Description,
			Parameters:  params,
		})
	}
	return defs
}

// Fallback returns the user-facing fallback message of the tool registered
// for kind, or "" when there is none.
func (r *Registry) Fallback(kind Kind) string {
	tool, err := r.Get(kind)
	if err != nil {
		return ""
	}
	return tool.Metadata().Fallback
}

// Invoke runs the tool for kind on input.
// Errors are *NotFoundError or *ExecutionError.
func (r *Registry) Invoke(ctx context.Context, kind Kind, input string) (string, error) {
	out := r.Execute(ctx, kind, input)
	return out.Output, out.Err
}

// Execute runs the tool for kind and reports attempts and timing along with
// the result.
func (r *Registry) Execute(ctx context.Context, kind Kind, input string) Outcome {
	tool, err := r.Get(kind)
	if err != nil {
		return Outcome{Err: err}
	}
	return r.executor.Execute(ctx, tool, input)
}
