// Package tools defines the capability surface exposed to agents: a
// Tool interface, a registry, and helpers for the XML argument format
// tool calls arrive in.
//
// Tools are thin adapters: they parse arguments, invoke a session
// manager method, and render the result. They hold no state of their
// own beyond the manager reference they are bound to.
package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"sort"
	"sync"
)

// Tool is one capability an agent can invoke.
//
// Example tool call format from an LLM:
//
//	<tool>
//	<tool_name>browser_navigate</tool_name>
//	<arguments>
//	  <user>alice</user>
//	  <url>https://example.com</url>
//	</arguments>
//	</tool>
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this
	// tool does, surfaced to the model.
	Description() string

	// Schema returns the JSON schema of the tool's arguments.
	Schema() map[string]interface{}

	// Execute runs the tool with XML-encoded arguments and returns a
	// result string for the model.
	Execute(ctx context.Context, argumentsXML []byte) (string, error)
}

// ToolCall is a parsed tool invocation.
type ToolCall struct {
	XMLName   xml.Name       `xml:"tool"`
	ToolName  string         `xml:"tool_name"`
	Arguments ArgumentsBlock `xml:"arguments"`
}

// ArgumentsBlock holds the raw XML of the arguments element.
type ArgumentsBlock struct {
	InnerXML []byte `xml:",innerxml"`
}

// ArgumentsXML returns the arguments wrapped in <arguments> tags,
// ready for unmarshaling into a tool's input struct.
func (tc *ToolCall) ArgumentsXML() []byte {
	const prefix = "<arguments>"
	const suffix = "</arguments>"
	result := make([]byte, 0, len(prefix)+len(tc.Arguments.InnerXML)+len(suffix))
	result = append(result, prefix...)
	result = append(result, tc.Arguments.InnerXML...)
	result = append(result, suffix...)
	return result
}

// Registry is a name-keyed set of tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds tools, replacing any with the same name.
func (r *Registry) Register(tools ...Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Dispatch parses a tool call and executes the named tool.
func (r *Registry) Dispatch(ctx context.Context, call *ToolCall) (string, error) {
	tool, ok := r.Get(call.ToolName)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", call.ToolName)
	}
	return tool.Execute(ctx, call.ArgumentsXML())
}

// ConditionalTool is an optional interface for tools whose visibility
// depends on runtime state, e.g. browser interaction tools that are
// hidden until the browser process is running.
type ConditionalTool interface {
	Tool
	Visible() bool
}

// ListVisible returns the tools currently visible, sorted by name.
// Tools that do not implement ConditionalTool are always visible.
func (r *Registry) ListVisible() []Tool {
	all := r.List()
	out := make([]Tool, 0, len(all))
	for _, t := range all {
		if ct, ok := t.(ConditionalTool); ok && !ct.Visible() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// BaseToolSchema builds the common JSON schema shape for a tool with
// the given properties and required fields.
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
