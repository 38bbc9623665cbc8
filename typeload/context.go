// Package typeload provides the type-loading context used to turn qualified
// type names back into reflect types. Go cannot look a type up by name at
// runtime, so a Context only knows the types that were registered with it.
package typeload

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/GoCodeAlone/redishandles/metadata"
)

// ErrTypeNotFound is returned by Load for names the context has never seen.
var ErrTypeNotFound = errors.New("typeload: type not found")

// Context is the Source metadata indexes command interfaces from.
var _ metadata.Source = (*Context)(nil)

// Context maps qualified type names to reflect types.
type Context struct {
	name string

	mu    sync.RWMutex
	types map[string]reflect.Type
	order []string
}

// NewContext returns an empty context. The name only shows up in errors.
func NewContext(name string) *Context {
	return &Context{
		name:  name,
		types: make(map[string]reflect.Type),
	}
}

// Name returns the context name.
func (c *Context) Name() string { return c.name }

// Register adds named types. Unnamed types are ignored; they are resolved
// from fixed tables, not by name.
func (c *Context) Register(types ...reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range types {
		c.registerLocked(t)
	}
}

func (c *Context) registerLocked(t reflect.Type) bool {
	if t == nil || t.Name() == "" || t.PkgPath() == "" {
		return false
	}
	name := metadata.QualifiedName(t)
	if _, ok := c.types[name]; ok {
		return false
	}
	c.types[name] = t
	c.order = append(c.order, name)
	return true
}

// RegisterReachable registers each interface in types together with every
// named type reachable from its method signatures.
func (c *Context) RegisterReachable(types ...reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[reflect.Type]bool)
	for _, t := range types {
		c.walkLocked(t, seen)
	}
}

func (c *Context) walkLocked(t reflect.Type, seen map[reflect.Type]bool) {
	if t == nil || seen[t] {
		return
	}
	seen[t] = true
	c.registerLocked(t)

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Chan:
		c.walkLocked(t.Elem(), seen)
	case reflect.Map:
		c.walkLocked(t.Key(), seen)
		c.walkLocked(t.Elem(), seen)
	case reflect.Func:
		for i := range t.NumIn() {
			c.walkLocked(t.In(i), seen)
		}
		for i := range t.NumOut() {
			c.walkLocked(t.Out(i), seen)
		}
	case reflect.Interface:
		for i := range t.NumMethod() {
			c.walkLocked(t.Method(i).Type, seen)
		}
	}
}

// Load returns the type registered under the qualified name.
func (c *Context) Load(name string) (reflect.Type, error) {
	c.mu.RLock()
	t, ok := c.types[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s in context %q", ErrTypeNotFound, name, c.name)
	}
	return t, nil
}

// Interfaces returns the registered interface types that t implements,
// excluding t itself, in registration order.
func (c *Context) Interfaces(t reflect.Type) []reflect.Type {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []reflect.Type
	for _, name := range c.order {
		it := c.types[name]
		if it == t || it.Kind() != reflect.Interface || it.NumMethod() == 0 {
			continue
		}
		if t.Implements(it) {
			out = append(out, it)
		}
	}
	return out
}

// Methods returns the exported methods of t.
func (c *Context) Methods(t reflect.Type) []reflect.Method {
	var out []reflect.Method
	for i := range t.NumMethod() {
		if m := t.Method(i); m.IsExported() {
			out = append(out, m)
		}
	}
	return out
}

// Len reports how many types are registered.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
