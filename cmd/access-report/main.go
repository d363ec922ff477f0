// Command access-report rebuilds the access periods recorded in an access
// log and prints a summary of each one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sweeney/access-logger/internal/accesslog"
	"github.com/sweeney/access-logger/internal/archive"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on success, 1 when the log cannot be
// read (or, with -strict, is malformed) or archiving fails, 2 on bad usage.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("access-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	logPath := fs.String("log", "access_data.csv", "Access log to read")
	strict := fs.Bool("strict", false, "Reject the log on the first anomaly")
	tolerance := fs.Int("tolerance", 0, "Allowed difference in seconds between recomputed and stored length")
	archivePath := fs.String("archive", "", "SQLite archive to import periods into (optional)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		return 2
	}

	res, err := accesslog.ReconstructFile(*logPath, accesslog.ParseOptions{Strict: *strict})
	if err != nil {
		var malformed *accesslog.MalformedLogError
		if errors.As(err, &malformed) {
			fmt.Fprintf(stderr, "%s: %v\n", *logPath, err)
		} else {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}

	for _, a := range res.Anomalies {
		fmt.Fprintf(stderr, "warning: %s: %s\n", *logPath, a)
	}

	flagged, err := accesslog.Render(stdout, res.Periods, *tolerance)
	if err != nil {
		fmt.Fprintf(stderr, "error: write report: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%d access periods from %d lines", len(res.Periods), res.Lines)
	if flagged > 0 {
		fmt.Fprintf(stdout, ", %d with discrepancies", flagged)
	}
	fmt.Fprintln(stdout)

	if *archivePath != "" {
		ctx := context.Background()
		a, err := archive.Open(ctx, *archivePath)
		if err != nil {
			fmt.Fprintf(stderr, "error: open archive: %v\n", err)
			return 1
		}
		defer a.Close()

		n, err := a.Import(ctx, *logPath, res.Periods)
		if err != nil {
			fmt.Fprintf(stderr, "error: archive: %v\n", err)
			return 1
		}
		fmt.Fprintf(stderr, "archived %d new periods to %s\n", n, *archivePath)
	}
	return 0
}
