package component

import (
	"sort"
)

// Params are the values handed to a class constructor. Params form a chain:
// a layer created with Extend sees its parent's values and shadows them with
// its own, and writes never reach the parent. A nil *Params is an empty
// layer.
type Params struct {
	parent *Params
	values map[string]any
}

// NewParams creates a root layer holding a copy of values.
func NewParams(values map[string]any) *Params {
	return (*Params)(nil).Extend(values)
}

// Extend returns a child layer over p holding a copy of values.
func (p *Params) Extend(values map[string]any) *Params {
	child := &Params{parent: p, values: make(map[string]any, len(values))}
	for k, v := range values {
		child.values[k] = v
	}
	return child
}

// Parent returns the layer p was extended from.
func (p *Params) Parent() *Params {
	if p == nil {
		return nil
	}
	return p.parent
}

// Get looks key up in p and then in its ancestors.
func (p *Params) Get(key string) (any, bool) {
	for layer := p; layer != nil; layer = layer.parent {
		if v, ok := layer.values[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set stores key on this layer only.
func (p *Params) Set(key string, value any) {
	if p == nil {
		return
	}
	if p.values == nil {
		p.values = make(map[string]any)
	}
	p.values[key] = value
}

// Own reports whether key is stored on this layer rather than inherited.
func (p *Params) Own(key string) bool {
	if p == nil {
		return false
	}
	_, ok := p.values[key]
	return ok
}

// Keys lists every visible key, sorted.
func (p *Params) Keys() []string {
	seen := make(map[string]struct{})
	for layer := p; layer != nil; layer = layer.parent {
		for k := range layer.values {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map flattens the chain into a single map.
func (p *Params) Map() map[string]any {
	out := make(map[string]any)
	for _, k := range p.Keys() {
		out[k], _ = p.Get(k)
	}
	return out
}

// Param returns the value of key in p when it has type T.
func Param[T any](p *Params, key string) (T, bool) {
	var zero T
	v, ok := p.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
