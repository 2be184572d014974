// Package scanner defines the boundary between the engine and the plugin
// scanner: the component, out of scope here, that walks plugin directories
// and produces Factory values the engine can instantiate from. Everything
// in this package is the interface the real scanner is expected to
// satisfy, plus a process-local Registry a test host can populate directly
// without touching disk.
package scanner

import (
	"fmt"
	"sync"

	"github.com/justyntemme/audioengine/pkg/graph"
	"github.com/justyntemme/audioengine/pkg/pluginapi"
)

// Factory creates fresh plugin instances for one scanned plugin.
type Factory interface {
	Info() pluginapi.Info
	Create() (pluginapi.Plugin, error)
}

// Registry is a process-local table of factories keyed by scan key, the
// shape a real scanner hands to the engine once directory enumeration and
// format binding have happened out of process.
type Registry struct {
	mu        sync.RWMutex
	factories map[graph.ScanKey]Factory
	order     []graph.ScanKey
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{factories: make(map[graph.ScanKey]Factory)}
}

// Register adds or replaces the factory for a scan key.
func (r *Registry) Register(key graph.ScanKey, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[key]; !exists {
		r.order = append(r.order, key)
	}
	r.factories[key] = f
}

// Lookup returns the factory for a scan key.
func (r *Registry) Lookup(key graph.ScanKey) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[key]
	if !ok {
		return nil, fmt.Errorf("scanner: no factory registered for %s/%s", key.Format, key.ID)
	}
	return f, nil
}

// Count returns the number of registered factories.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// All returns every registered factory's Info in registration order.
func (r *Registry) All() []pluginapi.Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pluginapi.Info, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.factories[key].Info())
	}
	return out
}
