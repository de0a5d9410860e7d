package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/sumsupee/chatoneverything/internal/remote"
)

// installAccessRule is a seam for tests.
var installAccessRule = remote.InstallAccessRule

// runSetup implements "chatoneverything setup": installs the input
// device access rule so the external input tool can deliver events
// without running the host as root. Linux only; other platforms need
// no rule.
func runSetup(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: chatoneverything setup\n\nInstall the input device access rule (prompts for privileges).\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	fmt.Fprintln(stdout, "Installing the input device access rule. A privilege prompt will appear.")

	if err := installAccessRule(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "Access rule installed. Log out and back in for it to take effect, then run `chatoneverything doctor`.")
	return 0
}
