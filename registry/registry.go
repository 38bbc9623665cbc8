// Package registry builds the immutable signature -> handle table.
//
// A Registry is built once from enumerated method descriptors and never
// written to again, so Lookup needs no locking. Build is all-or-nothing: any
// type that cannot be resolved and any method that cannot be bound aborts the
// whole build.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/GoCodeAlone/redishandles/handle"
	"github.com/GoCodeAlone/redishandles/metadata"
	"github.com/GoCodeAlone/redishandles/observability/metrics"
	"github.com/GoCodeAlone/redishandles/resolver"
	"github.com/GoCodeAlone/redishandles/typeload"
)

// Duplicate records a signature that was rendered by more than one method.
// The later method won.
type Duplicate struct {
	Signature   string
	Replaced    string
	Replacement string
}

// Registry maps canonical signatures to handles.
type Registry struct {
	handles    map[string]*handle.Handle
	order      []string
	duplicates []Duplicate
}

// Option configures Build.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Collector
}

// WithLogger sets the logger used during the build.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records build duration, size and failures on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// Build resolves every method against loader and res and collects the
// handles. On error no registry is returned.
func Build(methods []metadata.MethodInfo, loader *typeload.Context, res *resolver.Resolver, opts ...Option) (*Registry, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	reg := &Registry{handles: make(map[string]*handle.Handle, len(methods))}
	declaredBy := make(map[string]string, len(methods))

	for _, m := range methods {
		sig := m.String()
		h, err := bind(m, loader, res)
		if err != nil {
			o.metrics.RecordBuildFailure(failureKind(err))
			o.logger.Error("Signature registry build aborted", "signature", sig, "declaring", m.DeclaringClass, "error", err)
			return nil, fmt.Errorf("registry: %s (%s): %w", sig, m.DeclaringClass, err)
		}

		if prev, dup := declaredBy[sig]; dup {
			reg.duplicates = append(reg.duplicates, Duplicate{Signature: sig, Replaced: prev, Replacement: m.DeclaringClass})
			o.logger.Warn("Duplicate signature, keeping the later method", "signature", sig, "replaced", prev, "replacement", m.DeclaringClass)
		} else {
			reg.order = append(reg.order, sig)
		}
		declaredBy[sig] = m.DeclaringClass
		reg.handles[sig] = h
	}

	elapsed := time.Since(start)
	o.metrics.RecordBuild(len(reg.handles), len(reg.duplicates), elapsed)
	o.logger.Info("Signature registry built", "handles", len(reg.handles), "duplicates", len(reg.duplicates), "elapsed", elapsed)
	o.logger.Debug("Signature registry type tables", "context", loader.Name(), "types", loader.Len(), "composites", len(res.Composites()))
	return reg, nil
}

func bind(m metadata.MethodInfo, loader *typeload.Context, res *resolver.Resolver) (*handle.Handle, error) {
	declaring, err := loader.Load(m.DeclaringClass)
	if err != nil {
		return nil, err
	}

	in, err := res.ResolveAll(m.Params)
	if err != nil {
		return nil, err
	}

	var out []reflect.Type
	if len(m.Results) == 0 {
		if _, err := res.Resolve(metadata.Void); err != nil {
			return nil, err
		}
	} else if out, err = res.ResolveAll(m.Results); err != nil {
		return nil, err
	}

	return handle.Find(declaring, m.Name, in, out, m.Variadic)
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, resolver.ErrUnregisteredArray), errors.Is(err, resolver.ErrUnregisteredComposite):
		return "unregistered_type"
	case errors.Is(err, typeload.ErrTypeNotFound):
		return "type_not_found"
	case errors.Is(err, handle.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, handle.ErrNoSuchMethod):
		return "no_such_method"
	default:
		return "other"
	}
}

// Lookup returns the handle registered under signature.
func (r *Registry) Lookup(signature string) (*handle.Handle, bool) {
	h, ok := r.handles[signature]
	return h, ok
}

// Len is the number of distinct signatures.
func (r *Registry) Len() int { return len(r.handles) }

// Signatures lists every signature in enumeration order.
func (r *Registry) Signatures() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Duplicates lists the signatures that were overwritten during the build.
func (r *Registry) Duplicates() []Duplicate {
	out := make([]Duplicate, len(r.duplicates))
	copy(out, r.duplicates)
	return out
}
