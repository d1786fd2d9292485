// Command supportbot serves the FAQ chatbot over HTTP.
//
// Configuration is read from the YAML file named by SUPPORTBOT_CONFIG
// (default config.yaml), a .env file and the environment.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/smallnest/faqgraph/app"
	"github.com/smallnest/faqgraph/config"
	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/server"
)

func main() {
	if err := run(); err != nil {
		log.Error("supportbot: %v", err)
		os.Exit(1)
	}
}

func run() error {
	path := os.Getenv("SUPPORTBOT_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger := log.NewServiceLogger(os.Stderr, cfg.Log.Prefix, cfg.LogLevel())
	log.SetDefaultLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Warn("close: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(a.Bot, a.Metrics, logger).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
