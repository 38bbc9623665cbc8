package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"reflect"
	"time"

	"github.com/GoCodeAlone/redishandles/dispatch"
	"github.com/redis/go-redis/v9"
)

func runInvoke(args []string) error {
	fs := flag.NewFlagSet("invoke", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to a redishandles YAML config")
	timeout := fs.Duration("timeout", 10*time.Second, "Timeout for the command")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: redishandles invoke [options] '<signature>' [args...]\n\n"+
			"Invoke a registered signature against Redis. The context argument is supplied;\n"+
			"list arguments are comma separated and durations use Go syntax (10s).\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("signature is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	e, err := newEnv(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer e.close(context.Background())

	reg, err := e.buildRegistry(ctx)
	if err != nil {
		return err
	}

	sig := fs.Arg(0)
	h, ok := reg.Lookup(sig)
	if !ok {
		return fmt.Errorf("%w: %s", dispatch.ErrUnknownSignature, sig)
	}
	callArgs, err := dispatch.ParseArgs(h, fs.Args()[1:])
	if err != nil {
		return err
	}

	rdb := redis.NewClient(e.cfg.Redis.Options())
	defer rdb.Close()

	d := dispatch.New(reg, rdb,
		dispatch.WithLogger(e.logger),
		dispatch.WithMetrics(e.metrics),
		dispatch.WithTracer(e.tracer()),
	)
	res, err := d.Do(ctx, sig, callArgs...)
	if errors.Is(err, redis.Nil) {
		fmt.Fprintln(stdout, "(nil)")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, formatResult(res))
	return nil
}

// formatResult prints the value of a go-redis command, or the result itself
// for anything else.
func formatResult(res any) string {
	if res == nil {
		return "(void)"
	}
	if _, ok := res.(redis.Cmder); ok {
		if val := reflect.ValueOf(res).MethodByName("Val"); val.IsValid() && val.Type().NumIn() == 0 && val.Type().NumOut() == 1 {
			return fmt.Sprint(val.Call(nil)[0].Interface())
		}
	}
	return fmt.Sprint(res)
}
