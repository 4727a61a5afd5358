// Package store defines user-scoped persistence for transactions, vehicles,
// reminders and settings. Every operation is scoped to one user id; records
// of other users are invisible.
package store

import (
	"context"
	"sort"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

// TransactionRepository stores a user's transactions.
type TransactionRepository interface {
	// ListTransactions returns transactions newest first.
	ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (domain.Transaction, error)
	// AddTransaction assigns a new id, ignoring tx.ID.
	AddTransaction(ctx context.Context, userID string, tx domain.Transaction) (string, error)
	// UpdateTransaction replaces every field except Attachments.
	UpdateTransaction(ctx context.Context, userID string, tx domain.Transaction) error
	// AddAttachment appends uri to the transaction's attachments atomically.
	AddAttachment(ctx context.Context, userID, id, uri string) error
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// VehicleRepository stores a user's vehicles.
type VehicleRepository interface {
	ListVehicles(ctx context.Context, userID string) ([]domain.Vehicle, error)
	GetVehicle(ctx context.Context, userID, id string) (domain.Vehicle, error)
	AddVehicle(ctx context.Context, userID string, v domain.Vehicle) (string, error)
	UpdateVehicle(ctx context.Context, userID string, v domain.Vehicle) error
	DeleteVehicle(ctx context.Context, userID, id string) error
}

// ReminderRepository stores a user's reminders.
type ReminderRepository interface {
	// ListReminders returns reminders by due date, earliest first.
	ListReminders(ctx context.Context, userID string) ([]domain.Reminder, error)
	GetReminder(ctx context.Context, userID, id string) (domain.Reminder, error)
	AddReminder(ctx context.Context, userID string, r domain.Reminder) (string, error)
	UpdateReminder(ctx context.Context, userID string, r domain.Reminder) error
	DeleteReminder(ctx context.Context, userID, id string) error
}

// SettingsRepository stores per-user settings.
type SettingsRepository interface {
	// GetAPIKey returns "" and no error when the user has no key.
	GetAPIKey(ctx context.Context, userID string) (string, error)
	SetAPIKey(ctx context.Context, userID, key string) error
}

// Store bundles every repository of one backend.
type Store interface {
	TransactionRepository
	VehicleRepository
	ReminderRepository
	SettingsRepository
	Close() error
}

// CompleteReminder marks a reminder as done.
func CompleteReminder(ctx context.Context, repo ReminderRepository, userID, id string) (domain.Reminder, error) {
	r, err := repo.GetReminder(ctx, userID, id)
	if err != nil {
		return domain.Reminder{}, err
	}
	if r.IsCompleted {
		return r, nil
	}
	r.IsCompleted = true
	if err := repo.UpdateReminder(ctx, userID, r); err != nil {
		return domain.Reminder{}, err
	}
	return r, nil
}

// SortTransactions orders transactions newest first, breaking ties by id.
func SortTransactions(txs []domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date > txs[j].Date
		}
		return txs[i].ID < txs[j].ID
	})
}

// SortReminders orders reminders by due date, earliest first.
func SortReminders(rs []domain.Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].DueDate != rs[j].DueDate {
			return rs[i].DueDate < rs[j].DueDate
		}
		return rs[i].ID < rs[j].ID
	})
}
