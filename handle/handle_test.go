package handle

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type counter interface {
	Incr(key string, by int64) int64
	Keys(prefix string, extra ...string) []string
	Reset()
	hidden() bool
}

type memCounter struct {
	vals   map[string]int64
	resets int
}

func newMemCounter() *memCounter { return &memCounter{vals: make(map[string]int64)} }

func (m *memCounter) Incr(key string, by int64) int64 {
	m.vals[key] += by
	return m.vals[key]
}

func (m *memCounter) Keys(prefix string, extra ...string) []string {
	out := []string{prefix}
	for _, e := range extra {
		out = append(out, prefix+e)
	}
	return out
}

func (m *memCounter) Reset() {
	m.resets++
	m.vals = make(map[string]int64)
}

func (m *memCounter) hidden() bool { return true }

var (
	counterType = reflect.TypeFor[counter]()
	stringT     = reflect.TypeFor[string]()
	int64T      = reflect.TypeFor[int64]()
	stringsT    = reflect.TypeFor[[]string]()
)

func findIncr(t *testing.T) *Handle {
	t.Helper()
	h, err := Find(counterType, "Incr", []reflect.Type{stringT, int64T}, []reflect.Type{int64T}, false)
	if err != nil {
		t.Fatalf("Find(Incr) failed: %v", err)
	}
	return h
}

func TestFind(t *testing.T) {
	h := findIncr(t)
	if h.Name() != "Incr" {
		t.Errorf("expected name Incr, got %s", h.Name())
	}
	if h.DeclaringType() != counterType {
		t.Errorf("unexpected declaring type %v", h.DeclaringType())
	}
	if h.Type().String() != "func(string, int64) int64" {
		t.Errorf("unexpected type %s", h.Type())
	}
}

func TestFindMissingMethod(t *testing.T) {
	_, err := Find(counterType, "Decr", []reflect.Type{stringT}, nil, false)
	if !errors.Is(err, ErrNoSuchMethod) {
		t.Fatalf("expected ErrNoSuchMethod, got %v", err)
	}
}

func TestFindSignatureMismatch(t *testing.T) {
	_, err := Find(counterType, "Incr", []reflect.Type{stringT, stringT}, []reflect.Type{int64T}, false)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
	if !errors.Is(err, ErrNoSuchMethod) {
		t.Errorf("a mismatch should also be a missing method, got %v", err)
	}
}

func TestFindVariadicFlagMustMatch(t *testing.T) {
	_, err := Find(counterType, "Keys", []reflect.Type{stringT, stringsT}, []reflect.Type{stringsT}, false)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestFindUnexported(t *testing.T) {
	_, err := Find(counterType, "hidden", nil, []reflect.Type{reflect.TypeFor[bool]()}, false)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestInvoke(t *testing.T) {
	h := findIncr(t)
	c := newMemCounter()

	got, err := h.Call(c, "hits", int64(3))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if got.(int64) != 3 {
		t.Errorf("expected 3, got %v", got)
	}
	if _, err := h.Call(c, "hits", int64(2)); err != nil {
		t.Fatalf("second Call failed: %v", err)
	}
	if c.vals["hits"] != 5 {
		t.Errorf("expected hits=5, got %d", c.vals["hits"])
	}
}

func TestInvokeVariadic(t *testing.T) {
	h, err := Find(counterType, "Keys", []reflect.Type{stringT, stringsT}, []reflect.Type{stringsT}, true)
	if err != nil {
		t.Fatalf("Find(Keys) failed: %v", err)
	}
	c := newMemCounter()

	spread, err := h.Call(c, "k:", "a", "b")
	if err != nil {
		t.Fatalf("spread Call failed: %v", err)
	}
	if !reflect.DeepEqual(spread, []string{"k:", "k:a", "k:b"}) {
		t.Errorf("unexpected spread result %v", spread)
	}

	sliced, err := h.Call(c, "k:", []string{"a", "b"})
	if err != nil {
		t.Fatalf("slice Call failed: %v", err)
	}
	if !reflect.DeepEqual(sliced, spread) {
		t.Errorf("expected slice and spread calls to agree, got %v", sliced)
	}

	none, err := h.Call(c, "k:")
	if err != nil {
		t.Fatalf("empty variadic Call failed: %v", err)
	}
	if !reflect.DeepEqual(none, []string{"k:"}) {
		t.Errorf("unexpected result %v", none)
	}
}

func TestInvokeNilVariadicIsEmptyTail(t *testing.T) {
	h, err := Find(counterType, "Keys", []reflect.Type{stringT, stringsT}, []reflect.Type{stringsT}, true)
	if err != nil {
		t.Fatalf("Find(Keys) failed: %v", err)
	}

	got, err := h.Call(newMemCounter(), "k:", nil)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"k:"}) {
		t.Errorf("expected nil to pass no extra keys, got %v", got)
	}
}

func TestInvokeVoid(t *testing.T) {
	h, err := Find(counterType, "Reset", nil, nil, false)
	if err != nil {
		t.Fatalf("Find(Reset) failed: %v", err)
	}
	c := newMemCounter()

	results, err := h.Invoke(c)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
	if c.resets != 1 {
		t.Errorf("expected Reset to run once, got %d", c.resets)
	}
}

func TestInvokeBadReceiver(t *testing.T) {
	h := findIncr(t)

	if _, err := h.Call(nil, "k", int64(1)); !errors.Is(err, ErrReceiver) {
		t.Errorf("expected ErrReceiver for nil, got %v", err)
	}
	if _, err := h.Call("not a counter", "k", int64(1)); !errors.Is(err, ErrReceiver) {
		t.Errorf("expected ErrReceiver for wrong type, got %v", err)
	}
}

func TestInvokeBadArguments(t *testing.T) {
	h := findIncr(t)
	c := newMemCounter()

	if _, err := h.Call(c, "k"); !errors.Is(err, ErrArguments) {
		t.Errorf("expected ErrArguments for missing argument, got %v", err)
	}
	_, err := h.Call(c, "k", 1)
	if !errors.Is(err, ErrArguments) {
		t.Fatalf("expected ErrArguments for int instead of int64, got %v", err)
	}
	if !strings.Contains(err.Error(), "want int64") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestInvokeNilArgumentIsZero(t *testing.T) {
	h := findIncr(t)
	c := newMemCounter()

	got, err := h.Call(c, nil, int64(4))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if got.(int64) != 4 || c.vals[""] != 4 {
		t.Errorf("expected empty key to hold 4, got %v", c.vals)
	}
}

func TestFindOnConcreteType(t *testing.T) {
	h, err := Find(reflect.TypeFor[*memCounter](), "Incr", []reflect.Type{stringT, int64T}, []reflect.Type{int64T}, false)
	if err != nil {
		t.Fatalf("Find on concrete type failed: %v", err)
	}
	got, err := h.Call(newMemCounter(), "x", int64(7))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if got.(int64) != 7 {
		t.Errorf("expected 7, got %v", got)
	}
}
