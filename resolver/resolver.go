// Package resolver turns metadata type tokens back into reflect types.
//
// Named types are loaded from a typeload.Context. Predeclared types come from
// a fixed table. Slices, arrays, maps, funcs and channels have no name to load
// them by, so they must be registered up front; a token missing from that
// table is an error that means the table needs another entry.
package resolver

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/GoCodeAlone/redishandles/metadata"
	"github.com/GoCodeAlone/redishandles/typeload"
)

var (
	ErrUnregisteredArray     = errors.New("resolver: array type is not registered")
	ErrUnregisteredComposite = errors.New("resolver: composite type is not registered")
	ErrUnknownPrimitive      = errors.New("resolver: unknown primitive")
)

// Void stands in for the missing result of a method that returns nothing.
var Void = reflect.TypeFor[struct{}]()

var primitives = map[string]reflect.Type{
	"bool":         reflect.TypeFor[bool](),
	"int":          reflect.TypeFor[int](),
	"int8":         reflect.TypeFor[int8](),
	"int16":        reflect.TypeFor[int16](),
	"int32":        reflect.TypeFor[int32](),
	"int64":        reflect.TypeFor[int64](),
	"uint":         reflect.TypeFor[uint](),
	"uint8":        reflect.TypeFor[uint8](),
	"uint16":       reflect.TypeFor[uint16](),
	"uint32":       reflect.TypeFor[uint32](),
	"uint64":       reflect.TypeFor[uint64](),
	"uintptr":      reflect.TypeFor[uintptr](),
	"float32":      reflect.TypeFor[float32](),
	"float64":      reflect.TypeFor[float64](),
	"complex64":    reflect.TypeFor[complex64](),
	"complex128":   reflect.TypeFor[complex128](),
	"string":       reflect.TypeFor[string](),
	"error":        reflect.TypeFor[error](),
	"interface {}": reflect.TypeFor[interface{}](),
}

// defaultComposites is the starting composite table of every Resolver.
var defaultComposites = []reflect.Type{
	reflect.TypeFor[[]byte](),
	reflect.TypeFor[[][]byte](),
	reflect.TypeFor[[]int](),
	reflect.TypeFor[[]string](),
}

// Resolver resolves tokens against one type-loading context.
type Resolver struct {
	loader *typeload.Context

	mu         sync.RWMutex
	composites map[string]reflect.Type
}

// New returns a Resolver that loads named types from loader.
func New(loader *typeload.Context) *Resolver {
	r := &Resolver{
		loader:     loader,
		composites: make(map[string]reflect.Type),
	}
	r.RegisterComposite(defaultComposites...)
	return r
}

// RegisterComposite adds unnamed slice, array, map, func or chan types to
// the composite table, keyed by how reflect prints them.
func (r *Resolver) RegisterComposite(types ...reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		r.composites[t.String()] = t
	}
}

// Composites lists the keys of the composite table, sorted.
func (r *Resolver) Composites() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.composites))
	for k := range r.composites {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Resolve returns the reflect type for ref.
func (r *Resolver) Resolve(ref metadata.TypeRef) (reflect.Type, error) {
	switch ref.Kind {
	case metadata.KindVoid:
		return Void, nil

	case metadata.KindPrimitive:
		if t, ok := primitives[ref.Name]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrimitive, ref.Name)

	case metadata.KindArray:
		if t, ok := r.composite(ref.Local); ok {
			return t, nil
		}
		return nil, fmt.Errorf("%w: %s (need to add it to the composite table)", ErrUnregisteredArray, ref.Local)

	case metadata.KindComposite:
		if t, ok := r.composite(ref.Local); ok {
			return t, nil
		}
		return nil, fmt.Errorf("%w: %s (need to add it to the composite table)", ErrUnregisteredComposite, ref.Local)

	case metadata.KindPointer:
		if t, ok := r.composite(ref.Local); ok {
			return t, nil
		}
		elem, err := r.Resolve(*ref.Elem)
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil

	default:
		return r.loader.Load(ref.Name)
	}
}

// ResolveAll resolves refs in order, stopping at the first failure.
func (r *Resolver) ResolveAll(refs []metadata.TypeRef) ([]reflect.Type, error) {
	out := make([]reflect.Type, len(refs))
	for i, ref := range refs {
		t, err := r.Resolve(ref)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (r *Resolver) composite(key string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.composites[key]
	return t, ok
}
