package main

import (
	"fmt"
	"io"
	"os"
)

var version = "dev"

// stdout is where command output goes; tests replace it.
var stdout io.Writer = os.Stdout

var commands = map[string]func([]string) error{
	"list":   runList,
	"names":  runNames,
	"writes": runWrites,
	"invoke": runInvoke,
	"serve":  runServe,
}

func usage() {
	fmt.Fprintf(os.Stderr, `redishandles - go-redis command signature registry (version %s)

Usage:
  redishandles <command> [options]

Commands:
  list     List the registered signatures (-interface, -q, -json, -jq)
  names    Print the upper-cased command method names
  writes   List the methods in the server's ACL write category
  invoke   Invoke a signature against Redis with command-line arguments
  serve    Serve the registry over HTTP with /metrics and /healthz
  version  Print the version

Every command accepts -config <file.yaml>.
Run 'redishandles <command> -h' for command-specific help.
`, version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		os.Exit(0)
	}
	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println(version)
		os.Exit(0)
	}

	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err := fn(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
