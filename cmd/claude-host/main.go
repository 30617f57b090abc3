// Package main is the claude-host entry point: a single binary that runs
// either as the control plane (`serve`) or as an executor process that
// dials out to one (`executor`), per spec.md §6 "CLI surface".
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var code int
	switch os.Args[1] {
	case "serve":
		code = runServe(os.Args[2:])
	case "executor":
		code = runExecutor(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		code = 0
	default:
		fmt.Fprintf(os.Stderr, "claude-host: unknown subcommand %q\n", os.Args[1])
		usage()
		code = 1
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: claude-host <serve|executor> [flags]")
	fmt.Fprintln(os.Stderr, "  serve    --port <n>")
	fmt.Fprintln(os.Stderr, "  executor --url <ws-url> --token <t> [--id <id>] [--name <n>] [--labels <csv>]")
}
