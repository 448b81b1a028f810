package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/summary"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentHTTP)
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitStore(context.Background(), logger, cfg)
	amqpClient := cli.InitAMQP(logger, cfg)

	// a nil *amqp.Client must not become a non-nil interface
	var publisher services.EventPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}

	reports := summary.NewService(ledger.NewAccessor(store.Store))
	transactions := services.NewTransactionService(store.Store, publisher)

	opts := apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
		Logger:             logger,
	}
	if p, ok := store.Store.(apphttp.Pinger); ok {
		opts.Pinger = p
	}
	srv := apphttp.NewServer(":"+cfg.Port, reports, transactions, opts)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.MaxHeaderBytes = 1 << 16

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		cli.Close(store, amqpClient)
		os.Exit(1)
	}

	<-done
	cli.Close(store, amqpClient)
	logger.Info("Server stopped gracefully")
}
