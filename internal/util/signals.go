package util

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler creates a context that is cancelled on receiving SIGINT or SIGTERM.
// The cancellation cause names the signal so that interrupted waits can report it.
// A second signal forces immediate exit.
func SetupSignalHandler() context.Context {
	ctx, cancel := context.WithCancelCause(context.Background())

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal, draining workers", "signal", sig.String())
		cancel(fmt.Errorf("%w: received %s", ErrCancelled, sig))

		// Second signal forces immediate exit
		sig = <-sigCh
		slog.Warn("received second shutdown signal, forcing exit", "signal", sig.String())
		os.Exit(ExitTaskFailures)
	}()

	return ctx
}
