package notionsync

import (
	"context"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

// NotionService is the subset of the Notion API the export uses.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	ArchivePage(ctx context.Context, pageID string) error
}

// Source reads the user's data to export. store.Store satisfies it.
type Source interface {
	ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	ListReminders(ctx context.Context, userID string) ([]domain.Reminder, error)
	ListVehicles(ctx context.Context, userID string) ([]domain.Vehicle, error)
}
