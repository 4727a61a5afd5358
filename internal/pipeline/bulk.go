package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
)

// BulkItemResult is the outcome of persisting one record of a batch.
type BulkItemResult struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`

	err error
}

// Err returns the write error for this item, if any.
func (r BulkItemResult) Err() error { return r.err }

// BulkResult reports which records of a batch were stored. Items are in
// input order.
type BulkResult struct {
	Items     []BulkItemResult `json:"items"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// FailedIndexes lists the input positions that were not stored.
func (r BulkResult) FailedIndexes() []int {
	var idx []int
	for _, it := range r.Items {
		if it.err != nil {
			idx = append(idx, it.Index)
		}
	}
	return idx
}

// BulkPersister writes a batch of parsed transactions concurrently. Writes
// are independent: there is no ordering between them, a failure does not
// cancel the others, and nothing is rolled back.
type BulkPersister struct {
	writer      TransactionWriter
	concurrency int
}

// NewBulkPersister creates a persister. concurrency <= 0 selects DefaultBulkConcurrency.
func NewBulkPersister(writer TransactionWriter, concurrency int) *BulkPersister {
	if concurrency <= 0 {
		concurrency = DefaultBulkConcurrency
	}
	return &BulkPersister{writer: writer, concurrency: concurrency}
}

// AddBulkTransactions stores every parsed transaction for vehicleID under
// userID. The returned error is non-nil only when the batch cannot start;
// per-record failures are reported in the result.
func (b *BulkPersister) AddBulkTransactions(ctx context.Context, userID, vehicleID string, parsed []domain.ParsedTransaction) (BulkResult, error) {
	if userID == "" {
		return BulkResult{}, fmt.Errorf("AddBulkTransactions: %w", domain.ErrNotAuthenticated)
	}

	log := logger.FromContext(ctx)
	items := make([]BulkItemResult, len(parsed))

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, p := range parsed {
		g.Go(func() error {
			items[i] = b.persistOne(ctx, userID, i, p.ToTransaction(vehicleID))
			return nil
		})
	}
	_ = g.Wait()

	res := BulkResult{Items: items}
	for _, it := range items {
		if it.err != nil {
			res.Failed++
			log.Warn().Err(it.err).Int("index", it.Index).Msg("Bulk transaction write failed")
		} else {
			res.Succeeded++
		}
	}

	log.Info().
		Str("user_id", userID).
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Msg("Bulk transaction write finished")

	return res, nil
}

func (b *BulkPersister) persistOne(ctx context.Context, userID string, index int, tx domain.Transaction) BulkItemResult {
	if err := tx.Validate(); err != nil {
		return BulkItemResult{Index: index, Error: err.Error(), err: err}
	}
	id, err := b.writer.AddTransaction(ctx, userID, tx)
	if err != nil {
		return BulkItemResult{Index: index, Error: err.Error(), err: err}
	}
	return BulkItemResult{Index: index, ID: id}
}
