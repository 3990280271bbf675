// Package transform provides the closed registry of named transformation
// functions invoked by the mapping engine. Keeping the set closed preserves
// validatability: a mapping can only reference functions declared here.
package transform

import (
	"context"
	"fmt"
	"sort"

	"github.com/retailops/backend/internal/domain/mapping"
)

// ApplyFunc executes one transformation on a field value.
type ApplyFunc func(ctx context.Context, args []string, value any, resolver mapping.LookupResolver) (any, error)

// Function couples a descriptor with its implementation.
type Function struct {
	Info  mapping.FunctionInfo
	Apply ApplyFunc
}

// Registry is the closed catalog of transformation functions.
type Registry struct {
	funcs map[string]Function
}

// NewRegistry creates a registry with all built-in functions registered.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Function)}
	registerBuiltins(r)
	return r
}

// register adds a function; duplicate names are a programming error.
func (r *Registry) register(f Function) {
	if _, exists := r.funcs[f.Info.Name]; exists {
		panic(fmt.Sprintf("transform: duplicate function %q", f.Info.Name))
	}
	r.funcs[f.Info.Name] = f
}

// Info implements mapping.FunctionCatalog
func (r *Registry) Info(name string) (mapping.FunctionInfo, bool) {
	f, ok := r.funcs[name]
	if !ok {
		return mapping.FunctionInfo{}, false
	}
	return f.Info, true
}

// Names returns all registered function names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply executes the named function. Unknown names surface as a
// transformation failure; the validator normally catches them before a run
// starts.
func (r *Registry) Apply(ctx context.Context, name string, args []string, value any, resolver mapping.LookupResolver) (any, error) {
	f, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("transform: unknown function %q", name)
	}
	return f.Apply(ctx, args, value, resolver)
}

// Ensure Registry implements the catalog port
var _ mapping.FunctionCatalog = (*Registry)(nil)
