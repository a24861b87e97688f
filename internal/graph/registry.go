package graph

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry accumulates functions and their outgoing calls for one analysis run.
//
// Functions are created lazily the first time they appear as caller or callee and are
// never removed. Iteration order is first-insertion order, so the same trace always
// yields the same graph. A Registry is not safe for concurrent use; each run owns its own.
type Registry struct {
	functions *orderedmap.OrderedMap[string, *Function]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		functions: orderedmap.New[string, *Function](),
	}
}

// RecordEdge registers both functions (caller first) and appends callee to the caller's calls.
func (r *Registry) RecordEdge(caller, callee FunctionID) {
	from := r.ensure(caller)
	to := r.ensure(callee)

	from.Calls = append(from.Calls, to.String())
	from.CallCount = len(from.Calls)
}

// Add registers a function with no calls unless it is already present.
func (r *Registry) Add(id FunctionID) {
	r.ensure(id)
}

// ensure returns the function for id, creating it with no calls if absent.
func (r *Registry) ensure(id FunctionID) *Function {
	key := id.String()
	if fn, ok := r.functions.Get(key); ok {
		return fn
	}
	fn := &Function{
		FunctionID: id,
		Calls:      []string{},
	}
	r.functions.Set(key, fn)
	return fn
}

// Function looks up a function by its identity string (file_path:line:name).
func (r *Registry) Function(id string) (*Function, bool) {
	return r.functions.Get(id)
}

// Len returns the number of distinct functions seen.
func (r *Registry) Len() int {
	return r.functions.Len()
}

// EdgeCount returns the total number of recorded calls across all functions.
func (r *Registry) EdgeCount() int {
	total := 0
	for pair := r.functions.Oldest(); pair != nil; pair = pair.Next() {
		total += pair.Value.CallCount
	}
	return total
}

// Functions returns all functions in first-insertion order.
func (r *Registry) Functions() []*Function {
	out := make([]*Function, 0, r.functions.Len())
	for pair := r.functions.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// add inserts a fully formed function, used when loading a saved graph.
// An existing entry with the same identity is replaced in place.
func (r *Registry) add(fn *Function) {
	if fn.Calls == nil {
		fn.Calls = []string{}
	}
	fn.CallCount = len(fn.Calls)
	r.functions.Set(fn.String(), fn)
}
