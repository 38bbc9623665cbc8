// Package commands wires the go-redis command interfaces into a signature
// registry.
//
// The command set is fixed at build time: every go-redis *Cmdable interface
// listed in Interfaces, enumerated under the aggregate redis.Cmdable root.
package commands

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/GoCodeAlone/redishandles/metadata"
	"github.com/GoCodeAlone/redishandles/registry"
	"github.com/GoCodeAlone/redishandles/resolver"
	"github.com/GoCodeAlone/redishandles/typeload"
	"github.com/redis/go-redis/v9"
)

// ContextName names the type-loading context of the command set.
const ContextName = "go-redis"

// Root is the aggregate interface whose supertypes are enumerated.
var Root = reflect.TypeFor[redis.Cmdable]()

// Interfaces is the command interface set, in enumeration order.
var Interfaces = []reflect.Type{
	reflect.TypeFor[redis.StringCmdable](),
	reflect.TypeFor[redis.ListCmdable](),
	reflect.TypeFor[redis.SetCmdable](),
	reflect.TypeFor[redis.SortedSetCmdable](),
	reflect.TypeFor[redis.HashCmdable](),
	reflect.TypeFor[redis.StreamCmdable](),
	reflect.TypeFor[redis.GenericCmdable](),
	reflect.TypeFor[redis.HyperLogLogCmdable](),
	reflect.TypeFor[redis.GeoCmdable](),
	reflect.TypeFor[redis.BitMapCmdable](),
	reflect.TypeFor[redis.PubSubCmdable](),
	reflect.TypeFor[redis.ScriptingFunctionsCmdable](),
}

// Select returns the interfaces whose short name ("StringCmdable") or
// package-qualified name ("redis.StringCmdable") is in names, in the order of
// Interfaces. No names selects every interface.
func Select(names ...string) ([]reflect.Type, error) {
	if len(names) == 0 {
		return Interfaces, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.TrimPrefix(n, "redis.")] = true
	}

	var out []reflect.Type
	for _, t := range Interfaces {
		if want[t.Name()] {
			out = append(out, t)
			delete(want, t.Name())
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for n := range want {
			missing = append(missing, n)
		}
		return nil, fmt.Errorf("%w: %s", metadata.ErrUnknownInterface, strings.Join(missing, ", "))
	}
	return out, nil
}

// NewIndex indexes the root and the given interfaces through a fresh
// type-loading context.
func NewIndex(ifaces ...reflect.Type) (*metadata.Index, error) {
	return newIndex(NewContext(), ifaces)
}

func newIndex(loader *typeload.Context, ifaces []reflect.Type) (*metadata.Index, error) {
	if len(ifaces) == 0 {
		ifaces = Interfaces
	}
	return metadata.FromSource(loader, append([]reflect.Type{Root}, ifaces...)...)
}

// Methods enumerates the exported methods of the given interfaces (all of
// them by default).
func Methods(ifaces ...reflect.Type) ([]metadata.MethodInfo, error) {
	return enumerate(NewContext(), ifaces)
}

func enumerate(loader *typeload.Context, ifaces []reflect.Type) ([]metadata.MethodInfo, error) {
	ix, err := newIndex(loader, ifaces)
	if err != nil {
		return nil, err
	}
	return ix.Enumerate(metadata.QualifiedName(Root))
}

// NewContext returns a type-loading context holding the command interfaces
// and every named type reachable from their method signatures.
func NewContext() *typeload.Context {
	c := typeload.NewContext(ContextName)
	c.RegisterReachable(append([]reflect.Type{Root}, Interfaces...)...)
	return c
}

// NewResolver returns a resolver over loader whose composite table also
// holds every unnamed slice, map, func or chan type the command interfaces
// use.
func NewResolver(loader *typeload.Context) *resolver.Resolver {
	r := resolver.New(loader)
	r.RegisterComposite(Composites()...)
	return r
}

// Composites lists the unnamed composite types used by the parameters and
// results of the command interfaces. go-redis changes these between
// releases, so they are read from the interfaces instead of kept by hand.
func Composites() []reflect.Type {
	seen := make(map[reflect.Type]bool)
	var out []reflect.Type
	for _, it := range Interfaces {
		for i := range it.NumMethod() {
			m := it.Method(i)
			if !m.IsExported() {
				continue
			}
			for j := range m.Type.NumIn() {
				out = collectComposite(m.Type.In(j), seen, out)
			}
			for j := range m.Type.NumOut() {
				out = collectComposite(m.Type.Out(j), seen, out)
			}
		}
	}
	return out
}

func collectComposite(t reflect.Type, seen map[reflect.Type]bool, out []reflect.Type) []reflect.Type {
	if t.Name() != "" || seen[t] {
		return out
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Pointer:
		return collectComposite(t.Elem(), seen, out)
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return out
		}
	}
	return append(out, t)
}

// Build builds a registry over the selected interfaces, or over the whole
// command set when none are given.
func Build(ifaces []reflect.Type, opts ...registry.Option) (*registry.Registry, error) {
	loader := NewContext()
	methods, err := enumerate(loader, ifaces)
	if err != nil {
		return nil, fmt.Errorf("commands: %w", err)
	}
	return registry.Build(methods, loader, NewResolver(loader), opts...)
}
