package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	httpShutdownTimeout      = 10 * time.Second
	processorShutdownTimeout = 30 * time.Second
)

// serve starts the HTTP server and blocks until a shutdown signal
// arrives. Shutdown is two-phased: stop accepting HTTP traffic first,
// then drain the background processor so in-flight jobs finish.
func (app *application) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.setupRouter(),
	}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("server failed", "error", err)
			cancelServer()
		}
	}()

	select {
	case <-shutdownCh:
		app.logger.Info("shutdown signal received")
	case <-serverCtx.Done():
		app.logger.Info("server context cancelled, shutting down")
	}

	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancelHTTP()
	if err := server.Shutdown(httpCtx); err != nil {
		app.logger.Error("http shutdown failed", "error", err)
	}

	procCtx, cancelProc := context.WithTimeout(context.Background(), processorShutdownTimeout)
	defer cancelProc()
	if err := app.processor.Shutdown(procCtx); err != nil {
		app.logger.Warn("processor shutdown incomplete", "error", err)
	}

	app.logger.Info("server shutdown completed")
	return nil
}
