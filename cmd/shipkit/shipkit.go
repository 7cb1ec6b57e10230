package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/kolide/kit/version"
	"github.com/oklog/run"
)

func runVersion(args []string) error {
	version.PrintFull()
	return nil
}

// runWithSignals runs execute under a run.Group alongside a signal watcher.
// SIGINT or SIGTERM cancels the context, which aborts whichever external
// command or poll sleep is in flight.
func runWithSignals(logger log.Logger, execute func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runGroup run.Group

	runGroup.Add(func() error {
		return execute(ctx)
	}, func(error) {
		cancel()
	})

	sigChan := make(chan os.Signal, 2)
	doneChan := make(chan struct{})
	runGroup.Add(func() error {
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			level.Info(logger).Log(
				"msg", "received signal",
				"signal", sig.String(),
			)
			return fmt.Errorf("received signal %s: %w", sig, context.Canceled)
		case <-doneChan:
			return nil
		}
	}, func(error) {
		signal.Stop(sigChan)
		close(doneChan)
	})

	return runGroup.Run()
}

// exitCodeForError distinguishes an operator-initiated abort from a failed
// release.
func exitCodeForError(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "USAGE\n")
	fmt.Fprintf(os.Stderr, "  %s <mode> --help\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "MODES\n")
	fmt.Fprintf(os.Stderr, "  release      Build, sign, notarize, and package a release\n")
	fmt.Fprintf(os.Stderr, "  notarize     Submit an existing artifact and wait for the verdict\n")
	fmt.Fprintf(os.Stderr, "  staple       Staple a notarization ticket onto an artifact\n")
	fmt.Fprintf(os.Stderr, "  version      Print full version information\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "VERSION\n")
	fmt.Fprintf(os.Stderr, "  %s\n", version.Version().Version)
	fmt.Fprintf(os.Stderr, "\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var runMode func([]string) error
	switch strings.ToLower(os.Args[1]) {
	case "version":
		runMode = runVersion
	case "release":
		runMode = runRelease
	case "notarize":
		runMode = runNotarize
	case "staple":
		runMode = runStaple
	default:
		usage()
		os.Exit(1)
	}

	if err := runMode(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(exitCodeForError(err))
	}
}
