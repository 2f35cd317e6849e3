package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/backend"
	"salesdash/internal/cache"
	"salesdash/internal/cli"
	"salesdash/internal/core"
	"salesdash/internal/dashboard"
	apphttp "salesdash/internal/http"
	"salesdash/internal/log"
	"salesdash/internal/sheets"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()
	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)
	result, err := factory.CreateReader(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Failed to close data backend", log.FieldError, err)
		}
	}()

	reader := sheets.NewCachedReader(result.Reader, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(reader)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	svc := dashboard.NewService(reader, dashboard.NewSettings(cfg), logger)

	// A header that does not match the configured columns will not fix
	// itself; an unreachable source might.
	checkCtx, cancelCheck := context.WithTimeout(ctx, 30*time.Second)
	if err := svc.Check(checkCtx); err != nil {
		if core.KindOf(err) == core.KindSchemaMismatch {
			logger.Error("Source columns do not match configuration", log.FieldError, err, log.FieldSource, svc.Source())
			os.Exit(1)
		}
		logger.Warn("Source not available at startup", log.FieldError, err, log.FieldSource, svc.Source())
	}
	cancelCheck()

	opts := apphttp.Options{
		Invalidator: reader,
		Logger:      logger,
	}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, refresh will only drop the cache", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			opts.Publisher = amqpClient
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, opts)
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting salesdash server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		log.FieldSource, svc.Source(),
		"cache_ttl", cfg.CacheTTL.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-shutdownCtx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
