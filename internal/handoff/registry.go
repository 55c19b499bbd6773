package handoff

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps hand-off type strings to their targets.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]Target
}

// NewRegistry creates a Registry holding the "none" target.
func NewRegistry() *Registry {
	r := &Registry{targets: make(map[string]Target)}
	r.Register(None{})
	return r
}

// Register adds a target. Panics on duplicate type to surface misconfiguration early.
func (r *Registry) Register(t Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.targets[t.Type()]; exists {
		panic(fmt.Sprintf("handoff registry: duplicate type %q", t.Type()))
	}
	r.targets[t.Type()] = t
}

// Get returns the target for the given type.
func (r *Registry) Get(typ string) (Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[typ]
	if !ok {
		return nil, fmt.Errorf("no hand-off target registered for type %q", typ)
	}
	return t, nil
}

// Types returns all registered type strings, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.targets))
	for k := range r.targets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Bind looks up typ and validates params against it.
func (r *Registry) Bind(typ string, params map[string]interface{}) (*Binding, error) {
	t, err := r.Get(typ)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(params); err != nil {
		return nil, err
	}
	return &Binding{target: t, params: params}, nil
}

// Binding is a target together with its configured params.
type Binding struct {
	target Target
	params map[string]interface{}
}

// Type returns the bound target's type.
func (b *Binding) Type() string { return b.target.Type() }

// Resolve runs the bound target.
func (b *Binding) Resolve(ctx context.Context, req Request) (*Result, error) {
	res, err := b.target.Resolve(ctx, req, b.params)
	if err != nil {
		return nil, fmt.Errorf("handoff %s: %w", b.target.Type(), err)
	}
	return res, nil
}
