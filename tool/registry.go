package tool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/modelmux/modelmux/chat"
)

// Registry resolves tool names to invocable implementations and exposes their
// definitions to provider requests. Safe for concurrent use; registration
// typically happens at startup, resolution on every tool-calling turn.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry constructs an empty registry.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNewRegistry is NewRegistry that panics on duplicate names. Intended for
// static tool sets wired at startup.
func MustNewRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds a tool. Duplicate names are rejected.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Resolve returns the tool registered under name, or *ResolutionError.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, &ResolutionError{Name: name}
	}
	return t, nil
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the declarative definitions of all registered tools,
// ordered by name for deterministic provider requests.
func (r *Registry) Definitions() []chat.ToolDefinition {
	return r.definitions(nil)
}

// DefinitionsFor returns definitions for the named subset only. Unknown names
// are skipped; option-level restriction is not a resolution failure.
func (r *Registry) DefinitionsFor(names []string) []chat.ToolDefinition {
	if len(names) == 0 {
		return r.Definitions()
	}
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return r.definitions(allowed)
}

func (r *Registry) definitions(allowed map[string]bool) []chat.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]chat.ToolDefinition, 0, len(r.tools))
	for name, t := range r.tools {
		if allowed != nil && !allowed[name] {
			continue
		}
		defs = append(defs, chat.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
