// Package notionsync exports a user's transactions and reminders to Notion
// databases. The export is one way: each entity is upserted by its id.
package notionsync

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jomei/notionapi"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/vehicle-tracker/internal/logger"
)

// notionConcurrency stays under Notion's rate limit of about three requests per second.
const notionConcurrency = 3

// Options configures an export run. An empty database id skips that entity kind.
type Options struct {
	TransactionsDB string
	RemindersDB    string
	DryRun         bool
	// Prune archives the user's pages whose entity no longer exists.
	Prune bool
}

// Counts reports what an export did, or would do in dry-run mode.
type Counts struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// Report holds per-database counts.
type Report struct {
	Transactions Counts `json:"transactions"`
	Reminders    Counts `json:"reminders"`
}

type Syncer struct {
	notion NotionService
	source Source
	opts   Options
}

func NewSyncer(notion NotionService, source Source, opts Options) *Syncer {
	return &Syncer{notion: notion, source: source, opts: opts}
}

type entity struct {
	id    string
	props notionapi.Properties
}

// Sync exports userID's data. Individual page failures are counted, not returned.
func (s *Syncer) Sync(ctx context.Context, userID string) (Report, error) {
	if userID == "" {
		return Report{}, fmt.Errorf("Sync: user id is required")
	}
	log := logger.FromContext(ctx)
	log.Info().Str("user_id", userID).Bool("dry_run", s.opts.DryRun).Msg("Starting Notion export")

	vehicles, err := s.source.ListVehicles(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf("Sync: list vehicles: %w", err)
	}
	plates := make(map[string]string, len(vehicles))
	for _, v := range vehicles {
		plates[v.ID] = v.LicensePlate
	}

	var report Report

	if s.opts.TransactionsDB != "" {
		txs, err := s.source.ListTransactions(ctx, userID)
		if err != nil {
			return report, fmt.Errorf("Sync: list transactions: %w", err)
		}
		entities := make([]entity, 0, len(txs))
		for _, tx := range txs {
			entities = append(entities, entity{id: tx.ID, props: TransactionToProperties(tx, userID, plates[tx.VehicleID])})
		}
		if report.Transactions, err = s.syncDatabase(ctx, s.opts.TransactionsDB, "transaction", userID, entities); err != nil {
			return report, fmt.Errorf("Sync: %w", err)
		}
	}

	if s.opts.RemindersDB != "" {
		reminders, err := s.source.ListReminders(ctx, userID)
		if err != nil {
			return report, fmt.Errorf("Sync: list reminders: %w", err)
		}
		entities := make([]entity, 0, len(reminders))
		for _, r := range reminders {
			entities = append(entities, entity{id: r.ID, props: ReminderToProperties(r, userID, plates[r.VehicleID])})
		}
		if report.Reminders, err = s.syncDatabase(ctx, s.opts.RemindersDB, "reminder", userID, entities); err != nil {
			return report, fmt.Errorf("Sync: %w", err)
		}
	}

	log.Info().
		Interface("transactions", report.Transactions).
		Interface("reminders", report.Reminders).
		Msg("Notion export completed")
	return report, nil
}

// syncDatabase upserts entities into databaseID. Only pages owned by userID
// are matched or pruned.
func (s *Syncer) syncDatabase(ctx context.Context, databaseID, kind, userID string, entities []entity) (Counts, error) {
	log := logger.FromContext(ctx).With().Str("kind", kind).Str("database_id", databaseID).Logger()

	pages, err := queryAllPages(ctx, s.notion, databaseID, userID)
	if err != nil {
		return Counts{}, fmt.Errorf("syncDatabase: %w", err)
	}

	existing := make(map[string]string, len(pages))
	var stale []string
	for _, page := range pages {
		if ExtractUserID(page) != userID {
			continue
		}
		if id := ExtractEntityID(page); id != "" {
			existing[id] = string(page.ID)
		}
	}
	valid := make(map[string]bool, len(entities))
	for _, e := range entities {
		valid[e.id] = true
	}
	for id, pageID := range existing {
		if !valid[id] {
			stale = append(stale, pageID)
		}
	}

	var created, updated, archived, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(notionConcurrency)

	for _, e := range entities {
		pageID, found := existing[e.id]
		g.Go(func() error {
			if s.opts.DryRun {
				log.Info().Str("id", e.id).Bool("exists", found).Msg("[DRY RUN] Would upsert Notion page")
			} else if found {
				if _, err := s.notion.UpdatePage(ctx, pageID, e.props); err != nil {
					log.Warn().Err(err).Str("id", e.id).Str("page_id", pageID).Msg("Failed to update Notion page")
					failed.Add(1)
					return nil
				}
			} else {
				if _, err := s.notion.CreatePage(ctx, databaseID, e.props); err != nil {
					log.Warn().Err(err).Str("id", e.id).Msg("Failed to create Notion page")
					failed.Add(1)
					return nil
				}
			}
			if found {
				updated.Add(1)
			} else {
				created.Add(1)
			}
			return nil
		})
	}

	if s.opts.Prune {
		for _, pageID := range stale {
			g.Go(func() error {
				if s.opts.DryRun {
					log.Info().Str("page_id", pageID).Msg("[DRY RUN] Would archive stale Notion page")
				} else if err := s.notion.ArchivePage(ctx, pageID); err != nil {
					log.Warn().Err(err).Str("page_id", pageID).Msg("Failed to archive stale Notion page")
					failed.Add(1)
					return nil
				}
				archived.Add(1)
				return nil
			})
		}
	}
	_ = g.Wait()

	return Counts{
		Created:  int(created.Load()),
		Updated:  int(updated.Load()),
		Archived: int(archived.Load()),
		Failed:   int(failed.Load()),
	}, nil
}

// queryAllPages reads userID's pages, following pagination until the
// database is exhausted.
func queryAllPages(ctx context.Context, notion NotionService, databaseID, userID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			Filter: notionapi.PropertyFilter{
				Property: PropUser,
				RichText: &notionapi.TextFilterCondition{Equals: userID},
			},
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
