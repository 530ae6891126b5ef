package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ovenbook/internal/backend"
	"ovenbook/internal/cli"
	apphttp "ovenbook/internal/http"
	"ovenbook/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("server")
	cfg := cli.LoadAndValidateConfig(logger)

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(context.Background(), backend.Config{
		Type:                backend.BackendType(cfg.DataBackend),
		SQLiteDBPath:        cfg.SQLiteDBPath,
		AMQPURL:             cfg.AMQPURL,
		AMQPExchange:        cfg.AMQPExchange,
		AMQPQueue:           cfg.AMQPQueue,
		GoogleSpreadsheetID: cfg.GoogleSpreadsheetID,
		GoogleExpensesSheet: cfg.GoogleExpensesSheetName,
		GoogleIncomesSheet:  cfg.GoogleIncomesSheetName,
		GoogleOrdersSheet:   cfg.GoogleOrdersSheetName,
	})
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}()
	}

	orderService := services.NewOrderService(result.Backend, result.AMQP)
	ledgerService := services.NewLedgerService(result.Backend, result.Backend, result.AMQP)

	srv := apphttp.NewServer(":"+cfg.Port, orderService, ledgerService)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting ovenbook server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
