package serviceutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that is cancelled on the first SIGINT or
// SIGTERM, so in-flight requests stop and the run winds down through its
// remaining stages. A second signal exits immediately.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		slog.Warn("received signal, cancelling run", "signal", sig.String())
		cancel()

		sig = <-sigs
		slog.Error("received second signal, exiting", "signal", sig.String())
		os.Exit(130)
	}()

	return ctx
}

// Fatal logs err (to every slog sink, including the log file) and exits.
func Fatal(message string, err error) {
	if err != nil {
		slog.Error(message, "err", err.Error())
	} else {
		slog.Error(message)
	}
	os.Exit(1)
}
