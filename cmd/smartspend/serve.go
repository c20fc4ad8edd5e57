package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ArionMiles/smartspend/internal/server"
)

// runServe starts the HTTP API and blocks until SIGINT or SIGTERM.
func runServe(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (overrides SMARTSPEND_ADDR)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Setup context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	a, err := newApp(ctx, logger, appOptions{recognizer: true, mirror: true, advisor: true})
	if err != nil {
		return err
	}
	defer a.Close()

	listen := a.cfg.Addr
	if *addr != "" {
		listen = *addr
	}

	srv := server.New(a.svc, a.auth, logger)
	if err := srv.Run(ctx, listen); err != nil {
		return err
	}
	logger.Info("smartspend stopped")
	return nil
}
