package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/applyo/prospector/internal/llm"
)

// Registry is the catalogue of tools the agent may call.
// It is populated at startup and read concurrently afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry
// Returns an error if a tool with the same name already exists
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// List returns all registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Subset returns a registry holding only the named tools.
// Unknown names are an error so a misconfigured task kind fails at startup.
func (r *Registry) Subset(names []string) (*Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub := NewRegistry()
	for _, name := range names {
		tool, ok := r.tools[name]
		if !ok {
			return nil, fmt.Errorf("tool %q not registered", name)
		}
		sub.tools[name] = tool
	}
	return sub, nil
}

// ToOpenAIFormat converts the registered tools to OpenAI tool definitions, sorted by name.
func (r *Registry) ToOpenAIFormat() []llm.ToolDefinition {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	definitions := make([]llm.ToolDefinition, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]
		definitions = append(definitions, llm.ToolDefinition{
			Type: "function",
			Function: llm.Function{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return definitions
}
