package pipeline

import (
	"context"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

// SettingsReader looks up a user's stored LLM API key. An empty key with a
// nil error means the user has not configured one.
type SettingsReader interface {
	GetAPIKey(ctx context.Context, userID string) (string, error)
}

// TransactionWriter persists one transaction under a user and returns its id.
type TransactionWriter interface {
	AddTransaction(ctx context.Context, userID string, tx domain.Transaction) (string, error)
}
