package main

import (
	"context"
	"errors"
	"os"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/backend"
	"salesdash/internal/cli"
	"salesdash/internal/dashboard"
	"salesdash/internal/log"
	"salesdash/internal/storage"
	"salesdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting salesdash-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)
	live, err := factory.CreateLiveReader(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize live source", log.FieldError, err, log.FieldBackend, backendCfg.LiveType().String())
		os.Exit(1)
	}
	defer live.Close()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	settings := dashboard.NewSettings(cfg)
	mirror := worker.NewMirrorWorker(live.Reader, repo, settings.ValidateSchema, cfg.RefreshInterval, logger)

	var consumer worker.RefreshConsumer
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		consumer = amqpClient
	} else {
		logger.Info("AMQP disabled, mirroring on interval only", "interval", cfg.RefreshInterval.String())
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	logger.Info("Mirror worker running",
		log.FieldSource, live.Reader.SourceID(),
		"mirror", repo.SourceID(),
		"interval", cfg.RefreshInterval.String())
	if err := mirror.Run(ctx, consumer); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Mirror worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}
