// Package bootstrap builds the configured backends for the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/vehicle-tracker/internal/attachments"
	"github.com/dvloznov/vehicle-tracker/internal/auth"
	"github.com/dvloznov/vehicle-tracker/internal/config"
	infraBQ "github.com/dvloznov/vehicle-tracker/internal/infra/bigquery"
	"github.com/dvloznov/vehicle-tracker/internal/jobs"
	jobsamqp "github.com/dvloznov/vehicle-tracker/internal/jobs/amqp"
	"github.com/dvloznov/vehicle-tracker/internal/jobs/inmemory"
	jobssqlite "github.com/dvloznov/vehicle-tracker/internal/jobs/sqlite"
	"github.com/dvloznov/vehicle-tracker/internal/llm"
	"github.com/dvloznov/vehicle-tracker/internal/pipeline"
	"github.com/dvloznov/vehicle-tracker/internal/store"
	"github.com/dvloznov/vehicle-tracker/internal/store/memory"
	"github.com/dvloznov/vehicle-tracker/internal/store/mongostore"
)

// Queue both publishes and consumes parse jobs.
type Queue interface {
	jobs.Publisher
	jobs.Consumer
}

// Cleanup releases a backend. It is never nil.
type Cleanup func() error

func noop() error { return nil }

// OpenStore connects the persistence backend named by cfg.StoreBackend.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		return memory.New(), nil

	case config.StoreMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		provider := mongostore.NewMongoProvider(client, cfg.MongoDatabase)
		if err := provider.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		log.Info().Str("database", cfg.MongoDatabase).Msg("Initialized MongoDB store")
		return mongostore.NewRepository(provider, func() error {
			return client.Disconnect(context.Background())
		}), nil

	case config.StoreBigQuery:
		repo, err := infraBQ.New(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		log.Info().
			Str("project", cfg.BigQueryProject).
			Str("dataset", cfg.BigQueryDataset).
			Msg("Initialized BigQuery store")
		return repo, nil
	}
	return nil, fmt.Errorf("OpenStore: unsupported store backend %q", cfg.StoreBackend)
}

// NewCompleter returns the LLM client for cfg.LLMProvider.
func NewCompleter(cfg *config.Config) (llm.Completer, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(cfg.OpenAIBaseURL, nil), nil
	case config.ProviderGemini:
		return llm.NewGeminiClient(cfg.GeminiBaseURL), nil
	}
	return nil, fmt.Errorf("NewCompleter: unsupported provider %q", cfg.LLMProvider)
}

// NewParser wires the transaction parser with the provider's fallback key
// and model.
func NewParser(cfg *config.Config, completer llm.Completer, settings pipeline.SettingsReader) *pipeline.TransactionParser {
	return pipeline.NewTransactionParser(completer, settings, pipeline.ParserConfig{
		DefaultAPIKey: cfg.APIKeyFallback(),
		Model:         cfg.Model(),
		Currency:      cfg.Currency,
	})
}

// NewAuthenticator returns the request authenticator for cfg.AuthMode.
func NewAuthenticator(cfg *config.Config) (auth.Authenticator, error) {
	switch cfg.AuthMode {
	case config.AuthGoogle:
		return auth.NewGoogleIDTokenAuthenticator(cfg.GoogleClientID), nil
	case config.AuthHeader:
		return auth.HeaderAuthenticator{Header: cfg.UserHeader}, nil
	}
	return nil, fmt.Errorf("NewAuthenticator: unsupported auth mode %q", cfg.AuthMode)
}

// OpenJobStore opens the job state store named by cfg.JobStoreBackend.
func OpenJobStore(cfg *config.Config, log zerolog.Logger) (jobs.JobStore, Cleanup, error) {
	switch cfg.JobStoreBackend {
	case config.JobStoreMemory:
		return inmemory.NewStore(), noop, nil
	case config.JobStoreSQLite:
		st, err := jobssqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenJobStore: %w", err)
		}
		log.Info().Str("db_path", cfg.SQLitePath).Msg("Initialized SQLite job store")
		return st, st.Close, nil
	}
	return nil, nil, fmt.Errorf("OpenJobStore: unsupported job store %q", cfg.JobStoreBackend)
}

// OpenQueue creates the parse job queue named by cfg.QueueBackend.
func OpenQueue(cfg *config.Config, jobStore jobs.JobStore, log zerolog.Logger) (Queue, error) {
	switch cfg.QueueBackend {
	case config.QueueMemory:
		return inmemory.NewQueue(cfg.QueueBuffer, cfg.QueueWorkers, jobStore), nil
	case config.QueueAMQP:
		client, err := jobsamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, jobStore)
		if err != nil {
			return nil, fmt.Errorf("OpenQueue: %w", err)
		}
		log.Info().
			Str("exchange", cfg.AMQPExchange).
			Str("queue", cfg.AMQPQueue).
			Msg("Initialized AMQP queue")
		return client, nil
	}
	return nil, fmt.Errorf("OpenQueue: unsupported queue backend %q", cfg.QueueBackend)
}

// OpenAttachments returns the attachment service, or nil when no bucket is
// configured.
func OpenAttachments(ctx context.Context, cfg *config.Config, txs attachments.TransactionStore, log zerolog.Logger) (*attachments.Service, Cleanup, error) {
	if cfg.AttachmentsBucket == "" {
		log.Warn().Msg("No attachments bucket configured; uploads are disabled")
		return nil, noop, nil
	}
	objects, err := attachments.NewGCSObjectStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("OpenAttachments: %w", err)
	}
	log.Info().Str("bucket", cfg.AttachmentsBucket).Msg("Initialized attachment storage")
	return attachments.NewService(objects, txs, cfg.AttachmentsBucket), objects.Close, nil
}
