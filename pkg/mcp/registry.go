package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

// Tool describes a registered tool for the tools/list response.
type Tool struct {
	// Name is the unique tool identifier clients pass to tools/call.
	Name string `json:"name"`

	// Description tells the client what the tool does.
	Description string `json:"description,omitempty"`

	// InputSchema is the JSON Schema for the tool's arguments.
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Handler executes a tool call. Implementations return the text content of
// the result; errors surface to the client as a tool execution failure
// without the handler's internal detail.
type Handler interface {
	Call(ctx context.Context, args map[string]any) (string, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, args map[string]any) (string, error)

// Call invokes the function.
func (f HandlerFunc) Call(ctx context.Context, args map[string]any) (string, error) {
	return f(ctx, args)
}

// Registry holds the server's registered tools. It is safe for concurrent
// use; registration typically happens at startup, lookup on every
// tools/call.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registration
}

type registration struct {
	tool    Tool
	handler Handler
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registration)}
}

// Register adds a tool and its handler. Registering an empty name, a nil
// handler, or a duplicate name is a validation error.
func (r *Registry) Register(tool Tool, handler Handler) error {
	if tool.Name == "" {
		return amrerr.New(amrerr.CodeValidationRequired, "mcp: tool name is required")
	}
	if handler == nil {
		return amrerr.Newf(amrerr.CodeValidationRequired, "mcp: tool %q has no handler", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return amrerr.Newf(amrerr.CodeValidation, "mcp: tool %q is already registered", tool.Name)
	}
	r.tools[tool.Name] = registration{tool: tool, handler: handler}
	return nil
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, reg := range r.tools {
		tools = append(tools, reg.tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Call executes the named tool. An unknown name returns
// [amrerr.CodeNotFoundTool].
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", amrerr.Newf(amrerr.CodeNotFoundTool, "mcp: tool %q is not registered", name)
	}
	return reg.handler.Call(ctx, args)
}
