package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvloznov/vehicle-tracker/internal/bootstrap"
	"github.com/dvloznov/vehicle-tracker/internal/config"
	"github.com/dvloznov/vehicle-tracker/internal/jobs"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
	"github.com/dvloznov/vehicle-tracker/internal/pipeline"
)

func main() {
	log := logger.New()
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}

	cfg := config.Load()
	log = logger.Configure(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.QueueBackend != config.QueueAMQP {
		log.Fatal().Str("queue", cfg.QueueBackend).Msg("The worker needs QUEUE_BACKEND=amqp; the in-memory queue runs inside the API")
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	st, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	completer, err := bootstrap.NewCompleter(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create LLM client")
	}

	jobStore, closeJobStore, err := bootstrap.OpenJobStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open job store")
	}
	defer closeJobStore()

	queue, err := bootstrap.OpenQueue(cfg, jobStore, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to job queue")
	}

	processor := jobs.NewProcessor(
		bootstrap.NewParser(cfg, completer, st),
		pipeline.NewBulkPersister(st, cfg.BulkConcurrency),
	)
	if err := queue.Start(ctx, processor.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().
		Str("exchange", cfg.AMQPExchange).
		Str("queue", cfg.AMQPQueue).
		Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()
	if err := queue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
