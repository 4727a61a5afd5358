package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/auth"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/llm"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
)

// ParserConfig holds the process-wide parse settings.
type ParserConfig struct {
	// DefaultAPIKey is used when the user has no key in settings.
	DefaultAPIKey string
	Model         string
	Currency      string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// TransactionParser turns free text into normalized transactions using an LLM.
type TransactionParser struct {
	completer llm.Completer
	settings  SettingsReader
	cfg       ParserConfig
}

// NewTransactionParser creates a parser. settings may be nil, in which case
// only the default key is used.
func NewTransactionParser(completer llm.Completer, settings SettingsReader, cfg ParserConfig) *TransactionParser {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	return &TransactionParser{completer: completer, settings: settings, cfg: cfg}
}

// ParseTransactions extracts transactions from text for the user in ctx.
// Relative dates resolve against the parser clock at call time.
func (p *TransactionParser) ParseTransactions(ctx context.Context, text string) ([]domain.ParsedTransaction, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("ParseTransactions: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("ParseTransactions: %w: text is empty", domain.ErrInvalidInput)
	}

	log := logger.FromContext(ctx).With().Str("user_id", userID).Logger()

	apiKey, err := p.ResolveAPIKey(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ParseTransactions: %w", err)
	}

	now := p.cfg.Now()
	content, err := p.completer.Complete(ctx, llm.CompletionRequest{
		APIKey:       apiKey,
		Model:        p.cfg.Model,
		SystemPrompt: BuildSystemPrompt(p.cfg.Currency, now),
		UserPrompt:   text,
		JSONMode:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("ParseTransactions: %w", err)
	}

	decoded, err := DecodeModelResponse(content)
	if err != nil {
		log.Warn().Int("content_length", len(content)).Msg("Model returned undecodable content")
		return nil, fmt.Errorf("ParseTransactions: %w", err)
	}

	records, err := ExtractRecords(decoded)
	if err != nil {
		return nil, fmt.Errorf("ParseTransactions: %w", err)
	}

	parsed := NormalizeBatch(records, now)
	log.Info().Int("transactions", len(parsed)).Msg("Parsed transactions from text")
	return parsed, nil
}

// ResolveAPIKey returns the user's stored key, else the configured default,
// else ErrAPIKeyMissing.
func (p *TransactionParser) ResolveAPIKey(ctx context.Context, userID string) (string, error) {
	if p.settings != nil {
		key, err := p.settings.GetAPIKey(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("ResolveAPIKey: load settings: %w", err)
		}
		if key = strings.TrimSpace(key); key != "" {
			return key, nil
		}
	}
	if p.cfg.DefaultAPIKey != "" {
		return p.cfg.DefaultAPIKey, nil
	}
	return "", domain.ErrAPIKeyMissing
}
