package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// shutdownContext cancels on SIGINT or SIGTERM and exits the process on a
// second one, for operators who do not want to wait for in-flight downloads
// to drain. The returned stop func releases the signal handler.
func shutdownContext(parent context.Context, logger *slog.Logger) (context.Context, func()) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ctx, stop, _ := watchSignals(parent, sigCh, os.Exit, logger)

	return ctx, func() {
		signal.Stop(sigCh)
		stop()
	}
}

// watchSignals is shutdownContext over an arbitrary signal source. stop
// cancels the context and ends the watcher; exited closes once it has.
func watchSignals(
	parent context.Context, sigCh <-chan os.Signal, exit func(int), logger *slog.Logger,
) (ctx context.Context, stop func(), exited <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	finished := make(chan struct{})

	var once sync.Once

	stop = func() {
		once.Do(func() {
			close(done)
			cancel()
		})
	}

	go func() {
		defer close(finished)

		var first os.Signal

		select {
		case first = <-sigCh:
		case <-ctx.Done():
			return
		}

		logger.Info("shutting down; signal again to force exit",
			slog.String("signal", first.String()))
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warn("forced exit", slog.String("signal", sig.String()))
			exit(2)
		case <-done:
		case <-parent.Done():
		}
	}()

	return ctx, stop, finished
}
