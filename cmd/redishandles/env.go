package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"

	cmdset "github.com/GoCodeAlone/redishandles/commands"
	"github.com/GoCodeAlone/redishandles/config"
	"github.com/GoCodeAlone/redishandles/observability/metrics"
	"github.com/GoCodeAlone/redishandles/observability/tracing"
	"github.com/GoCodeAlone/redishandles/registry"
)

// env is the state shared by every command: configuration, logging and
// observability.
type env struct {
	cfgPath string
	cfg     *config.Config
	level   *slog.LevelVar
	logger  *slog.Logger
	metrics *metrics.Collector
	tracing *tracing.Provider
	ifaces  []reflect.Type
}

func newEnv(ctx context.Context, cfgPath string) (*env, error) {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(cfgPath); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	lvl, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	level := new(slog.LevelVar)
	level.Set(lvl)

	ifaces, err := cmdset.Select(cfg.Interfaces...)
	if err != nil {
		return nil, err
	}

	tp, err := tracing.NewProvider(ctx, withVersion(cfg.Tracing))
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	return &env{
		cfgPath: cfgPath,
		cfg:     cfg,
		level:   level,
		logger:  cfg.Log.NewLogger(os.Stderr, level),
		metrics: metrics.NewWithConfig(cfg.Metrics),
		tracing: tp,
		ifaces:  ifaces,
	}, nil
}

func withVersion(c tracing.Config) tracing.Config {
	if c.ServiceVersion == "" {
		c.ServiceVersion = version
	}
	return c
}

func (e *env) tracer() *tracing.CommandTracer {
	return tracing.NewCommandTracer(e.tracing.Tracer())
}

// buildRegistry builds the registry over the configured interfaces inside a
// build span.
func (e *env) buildRegistry(ctx context.Context) (*registry.Registry, error) {
	names := make([]string, len(e.ifaces))
	for i, t := range e.ifaces {
		names[i] = t.String()
	}

	tracer := e.tracer()
	_, span := tracer.StartBuild(ctx, names)
	defer span.End()

	reg, err := cmdset.Build(e.ifaces, registry.WithLogger(e.logger), registry.WithMetrics(e.metrics))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	tracer.SetSuccess(span)
	return reg, nil
}

func (e *env) close(ctx context.Context) {
	if err := e.tracing.Shutdown(ctx); err != nil {
		e.logger.Warn("tracing shutdown failed", "error", err)
	}
}
