// Package memory is an in-process Store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/store"
)

// Store keeps every user's data in maps guarded by one mutex. Values are
// copied on the way in and out so callers cannot mutate stored state.
type Store struct {
	mu           sync.RWMutex
	transactions map[string]map[string]domain.Transaction
	vehicles     map[string]map[string]domain.Vehicle
	reminders    map[string]map[string]domain.Reminder
	apiKeys      map[string]string
	newID        func() string
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		transactions: make(map[string]map[string]domain.Transaction),
		vehicles:     make(map[string]map[string]domain.Vehicle),
		reminders:    make(map[string]map[string]domain.Reminder),
		apiKeys:      make(map[string]string),
		newID:        uuid.NewString,
	}
}

func (s *Store) Close() error { return nil }

// Transactions

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(s.transactions[userID]))
	for _, tx := range s.transactions[userID] {
		out = append(out, copyTransaction(tx))
	}
	store.SortTransactions(out)
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[userID][id]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: %s: %w", id, domain.ErrNotFound)
	}
	return copyTransaction(tx), nil
}

func (s *Store) AddTransaction(ctx context.Context, userID string, tx domain.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx = copyTransaction(tx)
	tx.ID = s.newID()
	if s.transactions[userID] == nil {
		s.transactions[userID] = make(map[string]domain.Transaction)
	}
	s.transactions[userID][tx.ID] = tx
	return tx.ID, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, userID string, tx domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("UpdateTransaction: %w: id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[userID][tx.ID]
	if !ok {
		return fmt.Errorf("UpdateTransaction: %s: %w", tx.ID, domain.ErrNotFound)
	}
	tx.Attachments = existing.Attachments
	s.transactions[userID][tx.ID] = copyTransaction(tx)
	return nil
}

func (s *Store) AddAttachment(ctx context.Context, userID, id, uri string) error {
	if id == "" {
		return fmt.Errorf("AddAttachment: %w: id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[userID][id]
	if !ok {
		return fmt.Errorf("AddAttachment: %s: %w", id, domain.ErrNotFound)
	}
	tx = copyTransaction(tx)
	tx.Attachments = append(tx.Attachments, uri)
	s.transactions[userID][id] = tx
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	if id == "" {
		return fmt.Errorf("DeleteTransaction: %w: id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[userID][id]; !ok {
		return fmt.Errorf("DeleteTransaction: %s: %w", id, domain.ErrNotFound)
	}
	delete(s.transactions[userID], id)
	return nil
}

// Vehicles

func (s *Store) ListVehicles(ctx context.Context, userID string) ([]domain.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Vehicle, 0, len(s.vehicles[userID]))
	for _, v := range s.vehicles[userID] {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LicensePlate < out[j].LicensePlate })
	return out, nil
}

func (s *Store) GetVehicle(ctx context.Context, userID, id string) (domain.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[userID][id]
	if !ok {
		return domain.Vehicle{}, fmt.Errorf("GetVehicle: %s: %w", id, domain.ErrNotFound)
	}
	return v, nil
}

func (s *Store) AddVehicle(ctx context.Context, userID string, v domain.Vehicle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v.ID = s.newID()
	if s.vehicles[userID] == nil {
		s.vehicles[userID] = make(map[string]domain.Vehicle)
	}
	s.vehicles[userID][v.ID] = v
	return v.ID, nil
}

func (s *Store) UpdateVehicle(ctx context.Context, userID string, v domain.Vehicle) error {
	if v.ID == "" {
		return fmt.Errorf("UpdateVehicle: %w: id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[userID][v.ID]; !ok {
		return fmt.Errorf("UpdateVehicle: %s: %w", v.ID, domain.ErrNotFound)
	}
	s.vehicles[userID][v.ID] = v
	return nil
}

func (s *Store) DeleteVehicle(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[userID][id]; !ok {
		return fmt.Errorf("DeleteVehicle: %s: %w", id, domain.ErrNotFound)
	}
	delete(s.vehicles[userID], id)
	return nil
}

// Reminders

func (s *Store) ListReminders(ctx context.Context, userID string) ([]domain.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Reminder, 0, len(s.reminders[userID]))
	for _, r := range s.reminders[userID] {
		out = append(out, r)
	}
	store.SortReminders(out)
	return out, nil
}

func (s *Store) GetReminder(ctx context.Context, userID, id string) (domain.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reminders[userID][id]
	if !ok {
		return domain.Reminder{}, fmt.Errorf("GetReminder: %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (s *Store) AddReminder(ctx context.Context, userID string, r domain.Reminder) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.newID()
	if s.reminders[userID] == nil {
		s.reminders[userID] = make(map[string]domain.Reminder)
	}
	s.reminders[userID][r.ID] = r
	return r.ID, nil
}

func (s *Store) UpdateReminder(ctx context.Context, userID string, r domain.Reminder) error {
	if r.ID == "" {
		return fmt.Errorf("UpdateReminder: %w: id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reminders[userID][r.ID]; !ok {
		return fmt.Errorf("UpdateReminder: %s: %w", r.ID, domain.ErrNotFound)
	}
	s.reminders[userID][r.ID] = r
	return nil
}

func (s *Store) DeleteReminder(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reminders[userID][id]; !ok {
		return fmt.Errorf("DeleteReminder: %s: %w", id, domain.ErrNotFound)
	}
	delete(s.reminders[userID], id)
	return nil
}

// Settings

func (s *Store) GetAPIKey(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKeys[userID], nil
}

func (s *Store) SetAPIKey(ctx context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		delete(s.apiKeys, userID)
		return nil
	}
	s.apiKeys[userID] = key
	return nil
}

func copyTransaction(tx domain.Transaction) domain.Transaction {
	if tx.Attachments != nil {
		tx.Attachments = append([]string(nil), tx.Attachments...)
	}
	return tx
}
