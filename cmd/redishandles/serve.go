package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/GoCodeAlone/redishandles/api"
	"github.com/GoCodeAlone/redishandles/config"
	"golang.org/x/sync/errgroup"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to a redishandles YAML config")
	addr := fs.String("addr", "", "Listen address (overrides http.address)")
	rateLimit := fs.Int("rate-limit", 0, "Requests per minute per client IP, 0 for no limit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: redishandles serve [options]\n\nServe the registry over HTTP.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := newEnv(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer e.close(context.Background())
	if *addr != "" {
		e.cfg.HTTP.Address = *addr
	}

	reg, err := e.buildRegistry(ctx)
	if err != nil {
		return err
	}

	if e.cfgPath != "" {
		w := config.NewWatcher(e.cfgPath, e.applyReload, config.WithWatchLogger(e.logger))
		if err := w.Start(); err != nil {
			e.logger.Warn("config reload disabled", "error", err)
		} else {
			defer func() { _ = w.Stop() }()
		}
	}

	router := api.NewRouter(reg, api.Config{Metrics: e.metrics, RateLimit: *rateLimit, Logger: e.logger})
	defer router.Stop()
	srv := newServer(e.cfg.HTTP.Address, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.logger.Info("serving signature registry", "addr", srv.Addr, "signatures", reg.Len())
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		e.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// applyReload picks up the settings that can change without a restart. The
// registry and listeners are fixed for the life of the process.
func (e *env) applyReload(cfg *config.Config) {
	lvl, err := cfg.Log.SlogLevel()
	if err != nil {
		e.logger.Warn("config reload ignored", "path", e.cfgPath, "error", err)
		return
	}
	e.level.Set(lvl)
	if !slices.Equal(e.cfg.Interfaces, cfg.Interfaces) {
		e.logger.Warn("interface selection changed, restart to rebuild the registry")
	}
	e.logger.Info("config reloaded", "log_level", lvl.String())
}
