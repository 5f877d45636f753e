// Command gcurl performs a single HTTP GET, form POST or file PUT from the
// command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	if err != nil {
		printError(os.Stderr, err)
	}
	stop()
	os.Exit(exitCode(err))
}
