package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	cmdset "github.com/GoCodeAlone/redishandles/commands"
	"github.com/redis/go-redis/v9"
)

func runWrites(args []string) error {
	fs := flag.NewFlagSet("writes", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to a redishandles YAML config")
	timeout := fs.Duration("timeout", 10*time.Second, "Timeout for the ACL CAT request")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: redishandles writes [options]\n\nList the command methods in the server's ACL write category.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	e, err := newEnv(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer e.close(context.Background())

	methods, err := cmdset.Methods(e.ifaces...)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(e.cfg.Redis.Options())
	defer rdb.Close()

	writes, err := cmdset.WriteMethods(ctx, cmdset.ACLCategory(rdb), methods)
	if err != nil {
		return err
	}
	e.logger.Info("write method count", "count", len(writes), "total", len(methods))
	for _, m := range writes {
		fmt.Fprintln(stdout, m.String())
	}
	return nil
}
