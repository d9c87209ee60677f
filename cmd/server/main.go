package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/segyhp/microloan-ledger/internal/app"
	"github.com/segyhp/microloan-ledger/internal/config"
	"github.com/segyhp/microloan-ledger/internal/handler"
	"github.com/segyhp/microloan-ledger/internal/logging"
	"github.com/segyhp/microloan-ledger/internal/middleware"
	"github.com/segyhp/microloan-ledger/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.Logging)

	deps, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize dependencies", slog.Any("error", err))
		os.Exit(1)
	}
	defer deps.Close()

	loanHandler := handler.NewLoanHandler(deps.Ledger, logger)
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Redis, cfg.GetHealthTimeout(), logger)

	// Setup routes
	router := handler.NewRouter(loanHandler, healthHandler, middleware.Authenticate(cfg.Auth, logger))

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      middleware.AccessLog(logger)(response.CORSMiddleware(router)),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("addr", server.Addr), slog.Bool("auth", cfg.Auth.Enabled))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("Shutting down server", slog.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("Server failed", slog.Any("error", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("Server exited")
}
