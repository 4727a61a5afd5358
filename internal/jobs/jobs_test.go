package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/auth"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/pipeline"
)

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("timeout"), want: false},
		{name: "upstream", err: fmt.Errorf("x: %w", domain.ErrUpstreamRequestFailed), want: false},
		{name: "key missing", err: fmt.Errorf("x: %w", domain.ErrAPIKeyMissing), want: true},
		{name: "shape", err: domain.ErrInvalidResponseShape, want: true},
		{name: "not authenticated", err: domain.ErrNotAuthenticated, want: true},
		{name: "wrapped permanent", err: fmt.Errorf("outer: %w", Permanent(errors.New("bad"))), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	if Permanent(nil) != nil {
		t.Error("Expected Permanent(nil) to be nil")
	}
}

func TestLifecycle(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	job := &ParseTextJob{}
	job.Prepare(now)

	if job.ID == "" || job.Status != JobStatusQueued || !job.CreatedAt.Equal(now) || job.MaxRetries != DefaultMaxRetries {
		t.Fatalf("Unexpected prepared job %+v", job)
	}

	job.Begin(now)
	if job.Status != JobStatusProcessing || job.StartedAt == nil {
		t.Errorf("Expected processing with start time, got %+v", job)
	}

	if retry := job.Finish(domain.ErrUpstreamRequestFailed, now); !retry {
		t.Error("Expected upstream failure to be retried")
	}
	if job.Status != JobStatusRetrying || job.RetryCount != 1 {
		t.Errorf("Expected retrying/1, got %s/%d", job.Status, job.RetryCount)
	}

	if retry := job.Finish(domain.ErrInvalidResponseShape, now); retry {
		t.Error("Expected shape error not to be retried")
	}
	if job.Status != JobStatusFailed || !job.Status.IsTerminal() {
		t.Errorf("Expected terminal failure, got %s", job.Status)
	}

	job.Finish(nil, now)
	if job.Status != JobStatusCompleted || job.Error != "" || job.CompletedAt == nil {
		t.Errorf("Expected clean completion, got %+v", job)
	}
}

func TestClone(t *testing.T) {
	started := time.Now()
	job := &ParseTextJob{
		ID:        "j1",
		Results:   []domain.ParsedTransaction{{Description: "a"}},
		Bulk:      &pipeline.BulkResult{Items: []pipeline.BulkItemResult{{Index: 0, ID: "t1"}}, Succeeded: 1},
		StartedAt: &started,
	}
	c := job.Clone()
	c.Results[0].Description = "b"
	c.Bulk.Items[0].ID = "t2"

	if job.Results[0].Description != "a" || job.Bulk.Items[0].ID != "t1" {
		t.Error("Expected clone to share no slices with the original")
	}
	if c.StartedAt == job.StartedAt {
		t.Error("Expected StartedAt to be copied")
	}
}

type MockParser struct {
	ParseTransactionsFunc func(ctx context.Context, text string) ([]domain.ParsedTransaction, error)
}

func (m *MockParser) ParseTransactions(ctx context.Context, text string) ([]domain.ParsedTransaction, error) {
	return m.ParseTransactionsFunc(ctx, text)
}

type MockBulkSaver struct {
	AddBulkTransactionsFunc func(ctx context.Context, userID, vehicleID string, parsed []domain.ParsedTransaction) (pipeline.BulkResult, error)
}

func (m *MockBulkSaver) AddBulkTransactions(ctx context.Context, userID, vehicleID string, parsed []domain.ParsedTransaction) (pipeline.BulkResult, error) {
	return m.AddBulkTransactionsFunc(ctx, userID, vehicleID, parsed)
}

func TestProcessor_Handle(t *testing.T) {
	parsed := []domain.ParsedTransaction{{Description: "fuel", Amount: 100000, Date: "2024-03-01", Category: domain.CategoryFuel, TransactionType: domain.TransactionTypeExpense}}

	parser := &MockParser{
		ParseTransactionsFunc: func(ctx context.Context, text string) ([]domain.ParsedTransaction, error) {
			userID, err := auth.UserIDFromContext(ctx)
			if err != nil || userID != "user-1" {
				t.Errorf("Expected user-1 in context, got %q (%v)", userID, err)
			}
			return parsed, nil
		},
	}

	var savedVehicle string
	saver := &MockBulkSaver{
		AddBulkTransactionsFunc: func(ctx context.Context, userID, vehicleID string, p []domain.ParsedTransaction) (pipeline.BulkResult, error) {
			savedVehicle = vehicleID
			return pipeline.BulkResult{Succeeded: len(p)}, nil
		},
	}

	p := NewProcessor(parser, saver)

	t.Run("parse only", func(t *testing.T) {
		job := &ParseTextJob{ID: "j1", UserID: "user-1", Text: "fuel 100k"}
		if err := p.Handle(context.Background(), job); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if len(job.Results) != 1 || job.Bulk != nil {
			t.Errorf("Expected results without save, got %+v", job)
		}
	})

	t.Run("auto save", func(t *testing.T) {
		job := &ParseTextJob{ID: "j2", UserID: "user-1", Text: "fuel 100k", VehicleID: "v1", AutoSave: true}
		if err := p.Handle(context.Background(), job); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if job.Bulk == nil || job.Bulk.Succeeded != 1 || savedVehicle != "v1" {
			t.Errorf("Expected bulk save for v1, got %+v (vehicle %q)", job.Bulk, savedVehicle)
		}
	})

	t.Run("missing user is permanent", func(t *testing.T) {
		err := p.Handle(context.Background(), &ParseTextJob{ID: "j3", Text: "x"})
		if !IsPermanent(err) || !errors.Is(err, domain.ErrNotAuthenticated) {
			t.Errorf("Expected permanent ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("parse error is wrapped", func(t *testing.T) {
		failing := NewProcessor(&MockParser{
			ParseTransactionsFunc: func(ctx context.Context, text string) ([]domain.ParsedTransaction, error) {
				return nil, domain.ErrUpstreamRequestFailed
			},
		}, nil)
		err := failing.Handle(context.Background(), &ParseTextJob{ID: "j4", UserID: "user-1", Text: "x"})
		if !errors.Is(err, domain.ErrUpstreamRequestFailed) || IsPermanent(err) {
			t.Errorf("Expected retryable upstream error, got %v", err)
		}
	})
}
