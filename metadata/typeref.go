package metadata

import (
	"reflect"
	"strings"
)

// Kind classifies a TypeRef by how it has to be resolved back into a
// reflect.Type.
type Kind int

const (
	KindVoid Kind = iota
	KindPrimitive
	KindNamed
	KindPointer
	KindArray
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindPrimitive:
		return "primitive"
	case KindNamed:
		return "named"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// TypeRef is a type token read from a method signature. It carries enough
// to find the type again by name, not the type itself.
type TypeRef struct {
	Kind Kind
	// Name is the fully qualified name for named types ("time.Duration",
	// "github.com/redis/go-redis/v9.StatusCmd") and the predeclared name
	// for primitives. Empty for pointers, arrays and composites.
	Name string
	// Local is the rendering used in signatures, as reflect prints it.
	Local string
	// Elem is the pointee of a pointer or the innermost element of an array.
	Elem *TypeRef
	// Dimensions counts the nesting depth of an array token.
	Dimensions int
}

// Void is the token for an absent return value.
var Void = TypeRef{Kind: KindVoid, Name: "void", Local: "void"}

func (r TypeRef) String() string { return r.Local }

// QualifiedName returns the package path qualified name of a named type.
func QualifiedName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// RefOf converts t into a type token.
func RefOf(t reflect.Type) TypeRef {
	if t.Name() != "" {
		if t.PkgPath() == "" {
			// bool, string, error, ...
			return TypeRef{Kind: KindPrimitive, Name: t.Name(), Local: t.String()}
		}
		return TypeRef{Kind: KindNamed, Name: QualifiedName(t), Local: t.String()}
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := RefOf(t.Elem())
		return TypeRef{Kind: KindPointer, Local: t.String(), Elem: &elem}
	case reflect.Slice, reflect.Array:
		dims := 0
		inner := t
		for inner.Name() == "" && (inner.Kind() == reflect.Slice || inner.Kind() == reflect.Array) {
			dims++
			inner = inner.Elem()
		}
		elem := RefOf(inner)
		return TypeRef{Kind: KindArray, Local: t.String(), Elem: &elem, Dimensions: dims}
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return TypeRef{Kind: KindPrimitive, Name: t.String(), Local: t.String()}
		}
	}
	return TypeRef{Kind: KindComposite, Local: t.String()}
}

// variadicLocal renders the final parameter of a variadic method.
func variadicLocal(r TypeRef) string {
	return "..." + strings.TrimPrefix(r.Local, "[]")
}
