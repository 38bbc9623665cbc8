package metadata

import (
	"reflect"
	"strings"
)

// MethodInfo describes one method declared on an indexed interface.
type MethodInfo struct {
	Name string
	// DeclaringClass is the qualified name of the interface the method was
	// read from.
	DeclaringClass string
	Params         []TypeRef
	Results        []TypeRef
	Variadic       bool
	Exported       bool
}

func methodInfo(declaring string, m reflect.Method) MethodInfo {
	ft := m.Type
	info := MethodInfo{
		Name:           m.Name,
		DeclaringClass: declaring,
		Variadic:       ft.IsVariadic(),
		Exported:       m.IsExported(),
		Params:         make([]TypeRef, ft.NumIn()),
		Results:        make([]TypeRef, ft.NumOut()),
	}
	for i := range ft.NumIn() {
		info.Params[i] = RefOf(ft.In(i))
	}
	for i := range ft.NumOut() {
		info.Results[i] = RefOf(ft.Out(i))
	}
	return info
}

// ReturnType is the single result token, Void for methods without results.
// Methods with several results report the first one.
func (m MethodInfo) ReturnType() TypeRef {
	if len(m.Results) == 0 {
		return Void
	}
	return m.Results[0]
}

// String renders the canonical signature used as the registry key:
//
//	*redis.StatusCmd Set(context.Context, string, interface {}, time.Duration)
//
// Several results render as a parenthesized list; methods without results
// render without a return part.
func (m MethodInfo) String() string {
	var b strings.Builder
	switch len(m.Results) {
	case 0:
	case 1:
		b.WriteString(m.Results[0].Local)
		b.WriteByte(' ')
	default:
		b.WriteByte('(')
		for i, r := range m.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.Local)
		}
		b.WriteString(") ")
	}
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if m.Variadic && i == len(m.Params)-1 {
			b.WriteString(variadicLocal(p))
			continue
		}
		b.WriteString(p.Local)
	}
	b.WriteByte(')')
	return b.String()
}
