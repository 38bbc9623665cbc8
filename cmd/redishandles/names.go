package main

import (
	"context"
	"flag"
	"fmt"
	"slices"

	cmdset "github.com/GoCodeAlone/redishandles/commands"
)

func runNames(args []string) error {
	fs := flag.NewFlagSet("names", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to a redishandles YAML config")
	unique := fs.Bool("unique", false, "Sort and drop repeated names")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: redishandles names [options]\n\nPrint the upper-cased name of every command method.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	e, err := newEnv(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	methods, err := cmdset.Methods(e.ifaces...)
	if err != nil {
		return err
	}

	names := cmdset.Names(methods)
	if *unique {
		slices.Sort(names)
		names = slices.Compact(names)
	}
	for _, n := range names {
		fmt.Fprintln(stdout, n)
	}
	return nil
}
