// Package handle binds a method of a declaring type, looked up by name and
// exact func type, into a value that can be invoked later against any
// receiver of that type.
package handle

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrNoSuchMethod      = errors.New("handle: no such method")
	ErrSignatureMismatch = fmt.Errorf("%w: signature mismatch", ErrNoSuchMethod)
	ErrAccessDenied      = errors.New("handle: method is not exported")
	ErrReceiver          = errors.New("handle: bad receiver")
	ErrArguments         = errors.New("handle: bad arguments")
)

// Handle is a resolved method of an interface (or concrete) type.
type Handle struct {
	declaring reflect.Type
	name      string
	typ       reflect.Type
}

// Find binds the method name of declaring whose parameters are in, results
// out and variadic flag match exactly. Pass an empty out for methods that
// return nothing.
func Find(declaring reflect.Type, name string, in, out []reflect.Type, variadic bool) (*Handle, error) {
	m, ok := declaring.MethodByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoSuchMethod, declaring, name)
	}
	if !m.IsExported() {
		return nil, fmt.Errorf("%w: %s.%s", ErrAccessDenied, declaring, name)
	}

	got := methodType(declaring, m)
	want := reflect.FuncOf(in, out, variadic)
	if got != want {
		return nil, fmt.Errorf("%w: %s.%s is %s, want %s", ErrSignatureMismatch, declaring, name, got, want)
	}

	return &Handle{declaring: declaring, name: name, typ: got}, nil
}

// methodType strips the receiver that reflect includes for methods of
// concrete types.
func methodType(declaring reflect.Type, m reflect.Method) reflect.Type {
	if declaring.Kind() == reflect.Interface {
		return m.Type
	}
	ft := m.Type
	in := make([]reflect.Type, 0, ft.NumIn()-1)
	for i := 1; i < ft.NumIn(); i++ {
		in = append(in, ft.In(i))
	}
	out := make([]reflect.Type, ft.NumOut())
	for i := range out {
		out[i] = ft.Out(i)
	}
	return reflect.FuncOf(in, out, ft.IsVariadic())
}

// DeclaringType returns the type the method was bound on.
func (h *Handle) DeclaringType() reflect.Type { return h.declaring }

// Name returns the method name.
func (h *Handle) Name() string { return h.name }

// Type returns the method's func type, without receiver.
func (h *Handle) Type() reflect.Type { return h.typ }

func (h *Handle) String() string {
	return h.declaring.String() + "." + h.name + " " + h.typ.String()
}

// Bind returns the method value of recv. recv must be assignable to the
// declaring type.
func (h *Handle) Bind(recv any) (reflect.Value, error) {
	if recv == nil {
		return reflect.Value{}, fmt.Errorf("%w: nil receiver for %s", ErrReceiver, h.name)
	}
	rv := reflect.ValueOf(recv)
	if !rv.Type().AssignableTo(h.declaring) {
		return reflect.Value{}, fmt.Errorf("%w: %s does not implement %s", ErrReceiver, rv.Type(), h.declaring)
	}
	bound := reflect.New(h.declaring).Elem()
	bound.Set(rv)
	return bound.MethodByName(h.name), nil
}

// Invoke calls the method on recv with positional args and returns every
// result. A nil argument is passed as the zero value of its parameter. For
// variadic methods the trailing arguments may be spread or given as a single
// slice; a single nil there is an empty tail.
func (h *Handle) Invoke(recv any, args ...any) ([]any, error) {
	fn, err := h.Bind(recv)
	if err != nil {
		return nil, err
	}

	in, spread, err := h.arguments(args)
	if err != nil {
		return nil, err
	}

	var out []reflect.Value
	if h.typ.IsVariadic() && !spread {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}

	results := make([]any, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}
	return results, nil
}

// Call is Invoke for callers that only need the first result. Methods that
// return nothing yield nil.
func (h *Handle) Call(recv any, args ...any) (any, error) {
	results, err := h.Invoke(recv, args...)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// arguments converts args into reflect values. spread reports whether the
// variadic tail was given element by element.
func (h *Handle) arguments(args []any) ([]reflect.Value, bool, error) {
	numIn := h.typ.NumIn()

	if !h.typ.IsVariadic() {
		if len(args) != numIn {
			return nil, false, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrArguments, h.name, numIn, len(args))
		}
		in, err := h.convert(args, func(i int) reflect.Type { return h.typ.In(i) })
		return in, false, err
	}

	fixed := numIn - 1
	if len(args) < fixed {
		return nil, false, fmt.Errorf("%w: %s takes at least %d arguments, got %d", ErrArguments, h.name, fixed, len(args))
	}

	// A nil in the variadic position is a nil tail, the same zero value nil
	// stands for in any other position.
	sliceType := h.typ.In(fixed)
	if len(args) == numIn && (args[fixed] == nil || reflect.TypeOf(args[fixed]).AssignableTo(sliceType)) {
		in, err := h.convert(args, func(i int) reflect.Type { return h.typ.In(i) })
		return in, false, err
	}

	elem := sliceType.Elem()
	in, err := h.convert(args, func(i int) reflect.Type {
		if i < fixed {
			return h.typ.In(i)
		}
		return elem
	})
	return in, true, err
}

func (h *Handle) convert(args []any, paramType func(int) reflect.Type) ([]reflect.Value, error) {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		pt := paramType(i)
		if arg == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(pt) {
			return nil, fmt.Errorf("%w: %s argument %d is %s, want %s", ErrArguments, h.name, i, v.Type(), pt)
		}
		in[i] = v
	}
	return in, nil
}
