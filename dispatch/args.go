package dispatch

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/GoCodeAlone/redishandles/handle"
)

// ErrUnsupportedParam is returned by ParseArgs for parameter types that have
// no text form.
var ErrUnsupportedParam = errors.New("dispatch: parameter type has no text form")

var (
	durationType = reflect.TypeFor[time.Duration]()
	timeType     = reflect.TypeFor[time.Time]()
)

// ParseArgs converts command-line words into arguments for h, leaving out the
// leading context parameter. Each word of a variadic tail is converted to the
// element type. Slice parameters other than []byte take comma separated
// lists.
func ParseArgs(h *handle.Handle, raw []string) ([]any, error) {
	t := h.Type()
	first := 0
	if TakesContext(h) {
		first = 1
	}

	params := make([]reflect.Type, 0, t.NumIn()-first)
	for i := first; i < t.NumIn(); i++ {
		params = append(params, t.In(i))
	}

	fixed := len(params)
	if t.IsVariadic() {
		fixed--
		if len(raw) < fixed {
			return nil, fmt.Errorf("%w: %s takes at least %d arguments, got %d", handle.ErrArguments, h.Name(), fixed, len(raw))
		}
	} else if len(raw) != fixed {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", handle.ErrArguments, h.Name(), fixed, len(raw))
	}

	out := make([]any, len(raw))
	for i, s := range raw {
		var pt reflect.Type
		if i < fixed {
			pt = params[i]
		} else {
			pt = params[fixed].Elem()
		}
		v, err := parseValue(pt, s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s argument %d: %w", handle.ErrArguments, h.Name(), i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseValue(t reflect.Type, s string) (any, error) {
	switch t {
	case durationType:
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, err
		}
		return d, nil
	case timeType:
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, err
		}
		return ts, nil
	}

	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(s).Convert(t).Interface(), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(b).Convert(t).Interface(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(n).Convert(t).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(n).Convert(t).Interface(), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(f).Convert(t).Interface(), nil
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return s, nil
		}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf([]byte(s)).Convert(t).Interface(), nil
		}
		return parseList(t, s)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedParam, t)
}

func parseList(t reflect.Type, s string) (any, error) {
	if s == "" {
		return reflect.MakeSlice(t, 0, 0).Interface(), nil
	}
	parts := strings.Split(s, ",")
	out := reflect.MakeSlice(t, len(parts), len(parts))
	for i, p := range parts {
		v, err := parseValue(t.Elem(), p)
		if err != nil {
			return nil, err
		}
		out.Index(i).Set(reflect.ValueOf(v))
	}
	return out.Interface(), nil
}
