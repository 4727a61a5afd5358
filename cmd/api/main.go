package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/api"
	"github.com/dvloznov/vehicle-tracker/internal/bootstrap"
	"github.com/dvloznov/vehicle-tracker/internal/config"
	"github.com/dvloznov/vehicle-tracker/internal/dashboard"
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

	ctx := logger.WithContext(context.Background(), log)

	st, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	completer, err := bootstrap.NewCompleter(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create LLM client")
	}
	authn, err := bootstrap.NewAuthenticator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create authenticator")
	}
	if cfg.APIKeyFallback() == "" {
		log.Warn().Str("provider", cfg.LLMProvider).Msg("No default LLM key; users must set their own")
	}

	parser := bootstrap.NewParser(cfg, completer, st)
	bulk := pipeline.NewBulkPersister(st, cfg.BulkConcurrency)

	attachments, closeAttachments, err := bootstrap.OpenAttachments(ctx, cfg, st, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open attachment storage")
	}
	defer closeAttachments()

	jobStore, closeJobStore, err := bootstrap.OpenJobStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open job store")
	}
	defer closeJobStore()

	queue, err := bootstrap.OpenQueue(cfg, jobStore, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open job queue")
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// With the in-memory queue the API process runs the workers itself;
	// with AMQP they run in cmd/worker.
	if cfg.QueueBackend == config.QueueMemory {
		processor := jobs.NewProcessor(parser, bulk)
		if err := queue.Start(workerCtx, processor.Handle); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job workers")
		}
	}

	deps := api.Deps{
		Store:         st,
		Parser:        parser,
		Bulk:          bulk,
		Dashboard:     dashboard.NewService(st),
		Publisher:     queue,
		JobStore:      jobStore,
		Authenticator: authn,
	}
	// A nil *attachments.Service must stay a nil interface.
	if attachments != nil {
		deps.Attachments = attachments
	}

	handler := api.NewHandler(deps, api.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		MaxUploadBytes: cfg.MaxUploadBytes,
		HasDefaultKey:  cfg.APIKeyFallback() != "",
		JobMaxRetries:  cfg.JobMaxRetries,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreBackend).
			Str("llm_provider", cfg.LLMProvider).
			Str("queue", cfg.QueueBackend).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()
	if err := queue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
