package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/sumsupee/chatoneverything/internal/storage"
)

// openArchive is a seam for tests.
var openArchive = storage.NewSQLiteStore

// runFeedbackList implements "chatoneverything feedback list": prints
// archived feedback submissions, newest first.
func runFeedbackList(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("feedback list", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to config file")
	sessionCode := fs.String("session", "", "Only show feedback for this session code")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: chatoneverything feedback list [options]\n\nList archived feedback submissions.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	archive, err := openArchive(cfg.FeedbackDB)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer archive.Close()

	rows, err := archive.ListFeedback(*sessionCode)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "No feedback recorded.")
		return 0
	}

	fmt.Fprintf(stdout, "%-20s %-8s %-6s %-7s %s\n", "TIME", "SESSION", "CYCLE", "RATING", "COMMENT")
	for _, fb := range rows {
		fmt.Fprintf(stdout, "%-20s %-8s %-6d %-7d %s\n",
			fb.CreatedAt.Format(time.DateTime), fb.SessionCode, fb.Cycle, fb.Rating, fb.Comment)
	}
	return 0
}

// runFeedbackAvg implements "chatoneverything feedback avg": prints the
// average rating for one session.
func runFeedbackAvg(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("feedback avg", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: chatoneverything feedback avg <session-code>\n\nShow the average rating for a session.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: exactly one session code is required")
		fs.Usage()
		return 1
	}
	code := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	archive, err := openArchive(cfg.FeedbackDB)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer archive.Close()

	avg, count, err := archive.AverageRating(code)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if count == 0 {
		fmt.Fprintf(stdout, "No feedback recorded for session %s.\n", code)
		return 0
	}

	fmt.Fprintf(stdout, "Session %s: %.2f average over %d submission(s).\n", code, avg, count)
	return 0
}
