package main

import (
	"fmt"
	"io"
	"os"
)

// Version is set at build time via -ldflags.
// Example: go build -ldflags="-X main.Version=v0.3.0" ./cmd
var Version = "dev"

const usage = `chatoneverything - session chat overlay host with remote input control

Usage:
  chatoneverything <command> [options]

Commands:
  start          Host a session (broadcast server, pages, feedback)
  doctor         Diagnose input, network and storage readiness
  setup          Install the input device access rule (Linux)
  feedback list  List archived feedback submissions
  feedback avg <session-code>  Show the average rating for a session

Run 'chatoneverything <command> --help' for more information on a command.
`

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprint(stdout, usage)
		return 0
	}

	switch args[1] {
	case "start":
		return runStart(args[2:], stdout, stderr)
	case "doctor":
		return runDoctor(args[2:], stdout, stderr)
	case "setup":
		return runSetup(args[2:], stdout, stderr)
	case "feedback":
		if len(args) < 3 {
			fmt.Fprintln(stdout, "Usage: chatoneverything feedback <list|avg>")
			return 1
		}
		switch args[2] {
		case "list":
			return runFeedbackList(args[3:], stdout, stderr)
		case "avg":
			return runFeedbackAvg(args[3:], stdout, stderr)
		default:
			fmt.Fprintf(stdout, "Unknown feedback command: %s\n", args[2])
			return 1
		}
	case "--help", "-h", "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "chatoneverything %s\n", Version)
		return 0
	default:
		fmt.Fprintf(stdout, "Unknown command: %s\n", args[1])
		fmt.Fprint(stdout, usage)
		return 1
	}
}
