// Package bigquery implements store.Store on BigQuery tables using DML with
// named query parameters. The schema lives in migrations/bigquery.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/vehicle-tracker/internal/store"
)

const (
	transactionsTable = "transactions"
	vehiclesTable     = "vehicles"
	remindersTable    = "reminders"
	settingsTable     = "user_settings"
)

// Repository holds a shared BigQuery client for all entity tables.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	newID     func() string
	ownClient bool
}

var _ store.Store = (*Repository)(nil)

// New creates a Repository with its own client.
func New(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("New: creating client: %w", err)
	}
	r := NewWithClient(client, projectID, datasetID)
	r.ownClient = true
	return r, nil
}

// NewWithClient creates a Repository on an existing client. Close does not
// close a client passed in here.
func NewWithClient(client *bigquery.Client, projectID, datasetID string) *Repository {
	return &Repository{client: client, projectID: projectID, datasetID: datasetID, newID: newUUID}
}

// Close closes the BigQuery client connection if the repository created it.
func (r *Repository) Close() error {
	if r.ownClient && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// table returns the backtick-quoted fully qualified table name.
func (r *Repository) table(name string) string {
	return qualifiedTable(r.projectID, r.datasetID, name)
}

func qualifiedTable(projectID, datasetID, name string) string {
	return fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, name)
}

// exec runs a DML statement and returns the number of affected rows.
func (r *Repository) exec(ctx context.Context, sql string, params []bigquery.QueryParameter) (int64, error) {
	q := r.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

// readAll runs a SELECT and loads every row into T.
func readAll[T any](ctx context.Context, client *bigquery.Client, sql string, params []bigquery.QueryParameter) ([]T, error) {
	q := client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}

	out := []T{}
	for {
		var row T
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}
		out = append(out, row)
	}
	return out, nil
}
