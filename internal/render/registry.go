package render

import (
	"slices"
	"sync"

	"github.com/i474232898/water-tank-dashboard/internal/tank"
)

// Registry holds the charts of the last complete render pass. Readers may use
// it concurrently with Swap.
type Registry struct {
	mu     sync.RWMutex
	charts map[string]tank.Chart
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{charts: make(map[string]tank.Chart)}
}

// Clear drops every chart.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.charts)
}

// Replace installs c, dropping any chart held under the same name.
func (r *Registry) Replace(c tank.Chart) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.charts[c.Name] = c
}

// Swap drops every chart and installs charts under one lock.
func (r *Registry) Swap(charts []tank.Chart) {
	next := make(map[string]tank.Chart, len(charts))
	for _, c := range charts {
		next[c.Name] = c
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.charts = next
}

// Get returns the chart registered under name.
func (r *Registry) Get(name string) (tank.Chart, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.charts[name]
	return c, ok
}

// Names returns the registered chart names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.charts))
	for name := range r.charts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len reports the number of registered charts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.charts)
}
