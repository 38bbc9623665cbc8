// Package dispatch invokes registry handles by signature against a live
// go-redis connection.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/GoCodeAlone/redishandles/handle"
	"github.com/GoCodeAlone/redishandles/observability/metrics"
	"github.com/GoCodeAlone/redishandles/observability/tracing"
	"github.com/GoCodeAlone/redishandles/registry"
	"github.com/redis/go-redis/v9"
)

// ErrUnknownSignature is returned by Do for signatures not in the registry.
var ErrUnknownSignature = errors.New("dispatch: unknown signature")

var contextType = reflect.TypeFor[context.Context]()

// Dispatcher runs commands looked up by signature on one connection.
type Dispatcher struct {
	reg     *registry.Registry
	conn    any
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.CommandTracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics records every dispatch on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(d *Dispatcher) { d.metrics = c }
}

// WithTracer sets the tracer spans are started on. The default uses the
// global provider.
func WithTracer(t *tracing.CommandTracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// New returns a Dispatcher running handles from reg on conn. conn is usually
// a *redis.Client.
func New(reg *registry.Registry, conn any, opts ...Option) *Dispatcher {
	d := &Dispatcher{reg: reg, conn: conn, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	if d.tracer == nil {
		d.tracer = tracing.NewCommandTracer(nil)
	}
	return d
}

// Do runs the method registered under signature with args and returns its
// first result. ctx is passed as the first argument of methods that take a
// context. When the result is a go-redis command its error is returned too.
func (d *Dispatcher) Do(ctx context.Context, signature string, args ...any) (any, error) {
	h, ok := d.reg.Lookup(signature)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSignature, signature)
	}

	ctx, span := d.tracer.StartCommand(ctx, signature, h.Name(), h.DeclaringType().String())
	defer span.End()

	if TakesContext(h) {
		args = append([]any{ctx}, args...)
	}

	start := time.Now()
	res, err := h.Call(d.conn, args...)
	if err == nil {
		if cmd, ok := res.(redis.Cmder); ok {
			err = cmd.Err()
		}
	}
	elapsed := time.Since(start)

	status := "ok"
	switch {
	case errors.Is(err, redis.Nil):
		status = "nil"
		d.tracer.SetSuccess(span)
	case err != nil:
		status = "error"
		d.tracer.RecordError(span, err)
	default:
		d.tracer.SetSuccess(span)
	}
	d.metrics.RecordDispatch(h.Name(), status, elapsed)
	d.logger.Debug("Dispatched command", "method", h.Name(), "status", status, "elapsed", elapsed)

	return res, err
}

// TakesContext reports whether the first parameter of h is a context.Context.
func TakesContext(h *handle.Handle) bool {
	t := h.Type()
	return t.NumIn() > 0 && t.In(0) == contextType
}
