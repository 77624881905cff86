package agent

import (
	"sync"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/tools"

	"github.com/strandlabs/strand/server/llm"
)

// Descriptor describes one registered tool: a stable (per-process) ID,
// the model-facing name and description, a JSON-schema parameter block,
// and the callable itself. Callables take a JSON string input, per the
// langchaingo tools contract.
type Descriptor struct {
	ID          string
	Name        string
	Description string
	Parameters  map[string]any
	Tool        tools.Tool
}

// Registry is the closed catalog of available tools. It is populated
// once at startup and read-only afterwards; the mutex only guards the
// registration phase.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Descriptor
	byName map[string]*Descriptor
	order  []string // registration order of IDs, for stable listings
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*Descriptor),
		byName: make(map[string]*Descriptor),
	}
}

// Register adds a tool and returns its generated ID. Names must be
// unique; registering a duplicate name is a programming error.
func (r *Registry) Register(t tools.Tool, parameters map[string]any) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[t.Name()]; ok {
		return "", errors.Errorf("tool %q already registered", t.Name())
	}

	d := &Descriptor{
		ID:          shortuuid.New(),
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  parameters,
		Tool:        t,
	}
	r.byID[d.ID] = d
	r.byName[d.Name] = d
	r.order = append(r.order, d.ID)
	return d.ID, nil
}

// All returns every descriptor in registration order.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns every registered tool ID in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Get returns the descriptor for an ID, or nil.
func (r *Registry) Get(id string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// Subset resolves a list of IDs into an active tool set keyed by name.
// Unknown IDs are skipped; tool dispatch later in the turn resolves
// against this subset only, never the full registry.
func (r *Registry) Subset(ids []string) map[string]*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Descriptor, len(ids))
	for _, id := range ids {
		if d, ok := r.byID[id]; ok {
			out[d.Name] = d
		}
	}
	return out
}

// Defs builds the model-facing tool definitions for a set of IDs,
// preserving registration order.
func (r *Registry) Defs(ids []string) []llm.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var defs []llm.ToolDef
	for _, id := range r.order {
		if !want[id] {
			continue
		}
		d := r.byID[id]
		properties, _ := d.Parameters["properties"].(map[string]any)
		var required []string
		switch v := d.Parameters["required"].(type) {
		case []string:
			required = v
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					required = append(required, s)
				}
			}
		}
		defs = append(defs, llm.NewToolDef(d.Name, d.Description, properties, required))
	}
	return defs
}
