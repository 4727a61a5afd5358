package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
	"github.com/dvloznov/vehicle-tracker/internal/store"
)

// Repositories is the read access the dashboard needs.
type Repositories interface {
	ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	ListReminders(ctx context.Context, userID string) ([]domain.Reminder, error)
}

var _ Repositories = store.Store(nil)

// Service loads a user's data and computes dashboard statistics.
type Service struct {
	repos Repositories
	now   func() time.Time
}

func NewService(repos Repositories) *Service {
	return &Service{repos: repos, now: time.Now}
}

// NewServiceWithClock is used by tests to pin the current time.
func NewServiceWithClock(repos Repositories, now func() time.Time) *Service {
	return &Service{repos: repos, now: now}
}

// Stats returns statistics for userID over range r, optionally for one vehicle.
// An empty range means "month".
func (s *Service) Stats(ctx context.Context, userID string, r domain.TimeRange, vehicleID string) (domain.DashboardStats, error) {
	if userID == "" {
		return domain.DashboardStats{}, fmt.Errorf("Stats: %w", domain.ErrNotAuthenticated)
	}
	if r == "" {
		r = domain.TimeRangeMonth
	}
	if !r.IsValid() {
		return domain.DashboardStats{}, fmt.Errorf("Stats: %w: unknown range %q", domain.ErrInvalidInput, r)
	}

	txs, err := s.repos.ListTransactions(ctx, userID)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("Stats: list transactions: %w", err)
	}
	reminders, err := s.repos.ListReminders(ctx, userID)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("Stats: list reminders: %w", err)
	}

	stats := ComputeStats(txs, reminders, r, s.now(), Options{VehicleID: vehicleID})
	log := logger.FromContext(ctx)
	log.Debug().
		Str("user_id", userID).
		Str("range", string(r)).
		Int("transactions", len(txs)).
		Msg("Computed dashboard stats")
	return stats, nil
}
