package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/vehicle-tracker/internal/auth"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
	"github.com/dvloznov/vehicle-tracker/internal/pipeline"
)

// Parser is satisfied by *pipeline.TransactionParser.
type Parser interface {
	ParseTransactions(ctx context.Context, text string) ([]domain.ParsedTransaction, error)
}

// BulkSaver is satisfied by *pipeline.BulkPersister.
type BulkSaver interface {
	AddBulkTransactions(ctx context.Context, userID, vehicleID string, parsed []domain.ParsedTransaction) (pipeline.BulkResult, error)
}

// Processor executes parse jobs. It is a JobHandler via Handle.
type Processor struct {
	parser Parser
	saver  BulkSaver
}

// NewProcessor creates a processor. saver may be nil when auto-save is not offered.
func NewProcessor(parser Parser, saver BulkSaver) *Processor {
	return &Processor{parser: parser, saver: saver}
}

// Handle parses the job text as the job's user and stores the results on job.
func (p *Processor) Handle(ctx context.Context, job *ParseTextJob) error {
	if job.UserID == "" {
		return Permanent(fmt.Errorf("Handle: %w", domain.ErrNotAuthenticated))
	}
	ctx = auth.WithUserID(ctx, job.UserID)
	log := logger.FromContext(ctx).With().Str("job_id", job.ID).Str("user_id", job.UserID).Logger()

	parsed, err := p.parser.ParseTransactions(ctx, job.Text)
	if err != nil {
		log.Warn().Err(err).Int("retry_count", job.RetryCount).Msg("Parse job attempt failed")
		return fmt.Errorf("Handle: %w", err)
	}
	job.Results = parsed

	if job.AutoSave && job.VehicleID != "" && p.saver != nil && len(parsed) > 0 {
		res, err := p.saver.AddBulkTransactions(ctx, job.UserID, job.VehicleID, parsed)
		if err != nil {
			return Permanent(fmt.Errorf("Handle: save: %w", err))
		}
		job.Bulk = &res
	}

	log.Info().Int("transactions", len(parsed)).Bool("saved", job.Bulk != nil).Msg("Parse job processed")
	return nil
}
