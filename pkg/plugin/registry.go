package plugin

import (
	"fmt"
	"log"
	"sync"
)

// Priority constants for plugin registration. A higher priority replaces a
// lower one registered under the same name, letting private implementations
// override the public ones at compile time.
const (
	PriorityDefault  = 0
	PriorityOverride = 100
)

// Info contains metadata about a registered plugin.
type Info struct {
	// Name is the unique identifier for the plugin.
	Name string

	// Description is a human-readable description of the plugin.
	Description string

	// Priority decides which registration wins for a given name.
	Priority int

	// Factory creates new instances of the plugin.
	Factory Factory
}

// Registry manages plugin registration and instantiation.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Info
	order   []string
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Info)}
}

// Register adds a plugin to the registry. A registration under an existing
// name wins only if its priority is at least as high as the existing one.
func (r *Registry) Register(info Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info.Name == "" {
		return fmt.Errorf("plugin name cannot be empty")
	}
	if info.Factory == nil {
		return fmt.Errorf("plugin %s: factory cannot be nil", info.Name)
	}

	existing, exists := r.plugins[info.Name]
	if exists && info.Priority < existing.Priority {
		log.Printf("Plugin %q registration skipped (priority %d < existing %d)",
			info.Name, info.Priority, existing.Priority)
		return nil
	}

	r.plugins[info.Name] = info
	if !exists {
		r.order = append(r.order, info.Name)
	}

	log.Printf("Plugin %q registered (priority %d): %s",
		info.Name, info.Priority, info.Description)
	return nil
}

// Get returns the plugin info for a given name, or nil if not found.
func (r *Registry) Get(name string) *Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.plugins[name]
	if !ok {
		return nil
	}
	return &info
}

// List returns all registered plugins in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Info, 0, len(r.plugins))
	for _, name := range r.order {
		result = append(result, r.plugins[name])
	}
	return result
}

// CreateAll instantiates every registered plugin. On a factory error,
// already-created plugins are stopped in reverse order.
func (r *Registry) CreateAll(ctx *Context) ([]Plugin, error) {
	result := make([]Plugin, 0)
	for _, info := range r.List() {
		p, err := info.Factory(ctx)
		if err != nil {
			for i := len(result) - 1; i >= 0; i-- {
				result[i].Stop()
			}
			return nil, fmt.Errorf("failed to create plugin %s: %w", info.Name, err)
		}
		result = append(result, p)
	}
	return result, nil
}

// Clear removes all registered plugins. Useful for testing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = make(map[string]Info)
	r.order = nil
}

// Global registry instance, populated by plugin package init() functions.
var globalRegistry = NewRegistry()

// Register adds a plugin to the global registry.
func Register(info Info) error {
	return globalRegistry.Register(info)
}

// Get returns plugin info from the global registry.
func Get(name string) *Info {
	return globalRegistry.Get(name)
}

// List returns all plugins from the global registry.
func List() []Info {
	return globalRegistry.List()
}

// CreateAll creates all plugins from the global registry.
func CreateAll(ctx *Context) ([]Plugin, error) {
	return globalRegistry.CreateAll(ctx)
}

// ClearGlobal clears the global registry. Useful for testing.
func ClearGlobal() {
	globalRegistry.Clear()
}
