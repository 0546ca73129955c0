// Command embedsave compiles model specs, runs save scenarios and inspects
// save journals.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/embedsave/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		os.Exit(130) // Standard shell convention for SIGINT
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(cli.GetExitCode(err))
}
