package block

import (
	"errors"
	"fmt"
	"sync"

	"github.com/starford/tessera/internal/apperr"
)

// Registry holds the tools and tunes available to a document.
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]*ToolSpec
	order       []string
	tunes       []*TuneSpec
	defaultTool string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*ToolSpec)}
}

// RegisterTool adds a tool. The first tool registered becomes the default
// until SetDefault is called.
func (r *Registry) RegisterTool(spec ToolSpec) error {
	if spec.Name == "" {
		return errors.New("tool name is required")
	}
	if spec.New == nil {
		return fmt.Errorf("tool %q: constructor is required", spec.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[spec.Name]; ok {
		return fmt.Errorf("tool %q: %w", spec.Name, apperr.ErrAlreadyExists)
	}
	s := spec
	r.tools[spec.Name] = &s
	r.order = append(r.order, spec.Name)
	if r.defaultTool == "" && spec.Name != StubName {
		r.defaultTool = spec.Name
	}
	return nil
}

// RegisterTune adds a tune. Tunes are instantiated in registration order.
func (r *Registry) RegisterTune(spec TuneSpec) error {
	if spec.Name == "" || spec.New == nil {
		return errors.New("tune name and constructor are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tunes {
		if t.Name == spec.Name {
			return fmt.Errorf("tune %q: %w", spec.Name, apperr.ErrAlreadyExists)
		}
	}
	s := spec
	r.tunes = append(r.tunes, &s)
	return nil
}

// Tool looks up a tool by name.
func (r *Registry) Tool(name string) (*ToolSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool %q: %w", name, apperr.ErrToolNotFound)
	}
	return spec, nil
}

// Tools returns registered tools in registration order.
func (r *Registry) Tools() []*ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Tunes returns registered tunes in registration order.
func (r *Registry) Tunes() []*TuneSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*TuneSpec(nil), r.tunes...)
}

// SetDefault selects the tool used for implicit inserts.
func (r *Registry) SetDefault(name string) error {
	if _, err := r.Tool(name); err != nil {
		return err
	}
	r.mu.Lock()
	r.defaultTool = name
	r.mu.Unlock()
	return nil
}

// Default returns the default tool.
func (r *Registry) Default() (*ToolSpec, error) {
	r.mu.RLock()
	name := r.defaultTool
	r.mu.RUnlock()
	if name == "" {
		return nil, fmt.Errorf("default tool: %w", apperr.ErrToolNotFound)
	}
	return r.Tool(name)
}
