// Package metadata reads the method sets of a fixed group of interface types
// into plain descriptors that can be enumerated, rendered and looked up by
// name without holding on to the reflect types themselves.
package metadata

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrNilType          = errors.New("metadata: nil type")
	ErrNotInterface     = errors.New("metadata: type is not an interface")
	ErrUnknownInterface = errors.New("metadata: interface not indexed")
)

// Source reports which interfaces a type implements and what its methods
// are. *typeload.Context is a Source; Of uses plain reflection over the
// indexed types.
type Source interface {
	Interfaces(t reflect.Type) []reflect.Type
	Methods(t reflect.Type) []reflect.Method
}

// reflectSource answers from the candidate types alone and keeps unexported
// methods.
type reflectSource []reflect.Type

func (s reflectSource) Interfaces(t reflect.Type) []reflect.Type {
	var out []reflect.Type
	for _, c := range s {
		if c == nil || c == t || c.Kind() != reflect.Interface || c.NumMethod() == 0 {
			continue
		}
		if t.Implements(c) {
			out = append(out, c)
		}
	}
	return out
}

func (reflectSource) Methods(t reflect.Type) []reflect.Method {
	out := make([]reflect.Method, t.NumMethod())
	for i := range out {
		out[i] = t.Method(i)
	}
	return out
}

// InterfaceInfo is the indexed view of one interface type. includes lists
// every other indexed interface whose methods this one has; supertypes keeps
// those with a strictly smaller method set.
type InterfaceInfo struct {
	name       string
	local      string
	includes   []string
	supertypes []string
	methods    []MethodInfo
}

// Name is the qualified interface name.
func (i *InterfaceInfo) Name() string { return i.name }

// Local is the package-qualified short name, e.g. "redis.StringCmdable".
func (i *InterfaceInfo) Local() string { return i.local }

// InterfaceNames lists the indexed interfaces this one embeds, in index
// order. An interface with the same method set is not counted as embedded.
func (i *InterfaceInfo) InterfaceNames() []string {
	out := make([]string, len(i.supertypes))
	copy(out, i.supertypes)
	return out
}

// Methods lists the methods declared directly on the interface, as the
// source reports them. Methods contributed by an indexed supertype are left
// out.
func (i *InterfaceInfo) Methods() []MethodInfo {
	out := make([]MethodInfo, len(i.methods))
	copy(out, i.methods)
	return out
}

// Index holds every interface passed to Of.
type Index struct {
	byName map[string]*InterfaceInfo
	order  []string
}

// Of indexes the given interface types with plain reflection. The order of
// types is kept and drives the order of InterfaceNames and Enumerate.
func Of(types ...reflect.Type) (*Index, error) {
	return FromSource(reflectSource(types), types...)
}

// FromSource indexes types, asking src for supertypes and methods. Only
// supertypes that are themselves indexed are kept.
func FromSource(src Source, types ...reflect.Type) (*Index, error) {
	ix := &Index{byName: make(map[string]*InterfaceInfo, len(types))}
	typeOf := make(map[string]reflect.Type, len(types))

	for _, t := range types {
		if t == nil {
			return nil, ErrNilType
		}
		if t.Kind() != reflect.Interface {
			return nil, fmt.Errorf("%w: %s", ErrNotInterface, t)
		}
		name := QualifiedName(t)
		if _, dup := ix.byName[name]; dup {
			continue
		}
		ix.byName[name] = &InterfaceInfo{name: name, local: t.String()}
		ix.order = append(ix.order, name)
		typeOf[name] = t
	}

	// Supertypes need the full set, so they are computed in a second pass.
	for _, name := range ix.order {
		info := ix.byName[name]
		t := typeOf[name]

		implemented := make(map[string]bool)
		for _, it := range src.Interfaces(t) {
			implemented[QualifiedName(it)] = true
		}

		var supers []reflect.Type
		for _, other := range ix.order {
			if other == name || !implemented[other] {
				continue
			}
			info.includes = append(info.includes, other)
			// t has every method of ot, so fewer methods means a proper subset.
			// Equal method sets would otherwise claim each other's methods.
			if ot := typeOf[other]; ot.NumMethod() < t.NumMethod() {
				info.supertypes = append(info.supertypes, other)
				supers = append(supers, ot)
			}
		}
		info.methods = declaredMethods(name, src.Methods(t), supers)
	}
	return ix, nil
}

func declaredMethods(name string, methods []reflect.Method, supers []reflect.Type) []MethodInfo {
	var out []MethodInfo
	for _, m := range methods {
		if inherited(m, supers) {
			continue
		}
		out = append(out, methodInfo(name, m))
	}
	return out
}

func inherited(m reflect.Method, supers []reflect.Type) bool {
	for _, s := range supers {
		if sm, ok := s.MethodByName(m.Name); ok && sm.Type == m.Type {
			return true
		}
	}
	return false
}

// InterfaceByName returns the indexed interface with the given qualified
// name.
func (ix *Index) InterfaceByName(name string) (*InterfaceInfo, bool) {
	info, ok := ix.byName[name]
	return info, ok
}

// Interfaces returns every indexed interface in index order.
func (ix *Index) Interfaces() []*InterfaceInfo {
	out := make([]*InterfaceInfo, 0, len(ix.order))
	for _, name := range ix.order {
		out = append(out, ix.byName[name])
	}
	return out
}

// Enumerate lists the exported methods declared on each indexed interface
// whose methods root has, visited in index order. That covers interfaces
// with the same method set as root. Methods declared on root itself are not
// included.
func (ix *Index) Enumerate(root string) ([]MethodInfo, error) {
	info, ok := ix.byName[root]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInterface, root)
	}

	var out []MethodInfo
	for _, name := range info.includes {
		for _, m := range ix.byName[name].methods {
			if m.Exported {
				out = append(out, m)
			}
		}
	}
	return out, nil
}
