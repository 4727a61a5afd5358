package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/store"
)

// Repository implements store.Store over a CollectionProvider.
type Repository struct {
	provider CollectionProvider
	closer   func() error
	newID    func() string
	now      func() time.Time
}

var _ store.Store = (*Repository)(nil)

// NewRepository creates a Repository. closer runs on Close and may be nil.
func NewRepository(provider CollectionProvider, closer func() error) *Repository {
	return &Repository{provider: provider, closer: closer, newID: uuid.NewString, now: time.Now}
}

func (r *Repository) Close() error {
	if r.closer != nil {
		return r.closer()
	}
	return nil
}

func ownedBy(userID, id string) bson.M {
	return bson.M{"_id": id, "user_id": userID}
}

// findAll decodes every document matching the user into T.
func findAll[T any](ctx context.Context, coll DataStore, userID string, sort bson.D) ([]T, error) {
	cur, err := coll.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	docs := []T{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func findOne[T any](ctx context.Context, coll DataStore, userID, id string) (T, error) {
	var doc T
	err := coll.FindOne(ctx, ownedBy(userID, id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	return doc, err
}

func updateOwned(ctx context.Context, coll DataStore, userID, id string, set bson.M) error {
	return modifyOwned(ctx, coll, userID, id, bson.M{"$set": set})
}

func modifyOwned(ctx context.Context, coll DataStore, userID, id string, update bson.M) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	res, err := coll.UpdateOne(ctx, ownedBy(userID, id), update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func deleteOwned(ctx context.Context, coll DataStore, userID, id string) error {
	res, err := coll.DeleteOne(ctx, ownedBy(userID, id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Transactions

func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	docs, err := findAll[transactionDoc](ctx, r.provider.Collection(TransactionsCollection), userID,
		bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}})
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	out := make([]domain.Transaction, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id string) (domain.Transaction, error) {
	doc, err := findOne[transactionDoc](ctx, r.provider.Collection(TransactionsCollection), userID, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *Repository) AddTransaction(ctx context.Context, userID string, tx domain.Transaction) (string, error) {
	tx.ID = r.newID()
	if _, err := r.provider.Collection(TransactionsCollection).InsertOne(ctx, newTransactionDoc(userID, tx)); err != nil {
		return "", fmt.Errorf("AddTransaction: %w", err)
	}
	return tx.ID, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, userID string, tx domain.Transaction) error {
	set := bson.M{
		"vehicle_id":       tx.VehicleID,
		"amount":           tx.Amount,
		"date":             tx.Date,
		"description":      tx.Description,
		"category":         string(tx.Category),
		"transaction_type": string(tx.TransactionType),
	}
	if err := updateOwned(ctx, r.provider.Collection(TransactionsCollection), userID, tx.ID, set); err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	return nil
}

func (r *Repository) AddAttachment(ctx context.Context, userID, id, uri string) error {
	update := bson.M{"$push": bson.M{"attachments": uri}}
	if err := modifyOwned(ctx, r.provider.Collection(TransactionsCollection), userID, id, update); err != nil {
		return fmt.Errorf("AddAttachment: %w", err)
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := deleteOwned(ctx, r.provider.Collection(TransactionsCollection), userID, id); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// Vehicles

func (r *Repository) ListVehicles(ctx context.Context, userID string) ([]domain.Vehicle, error) {
	docs, err := findAll[vehicleDoc](ctx, r.provider.Collection(VehiclesCollection), userID,
		bson.D{{Key: "license_plate", Value: 1}})
	if err != nil {
		return nil, fmt.Errorf("ListVehicles: %w", err)
	}
	out := make([]domain.Vehicle, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

func (r *Repository) GetVehicle(ctx context.Context, userID, id string) (domain.Vehicle, error) {
	doc, err := findOne[vehicleDoc](ctx, r.provider.Collection(VehiclesCollection), userID, id)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("GetVehicle: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *Repository) AddVehicle(ctx context.Context, userID string, v domain.Vehicle) (string, error) {
	v.ID = r.newID()
	if _, err := r.provider.Collection(VehiclesCollection).InsertOne(ctx, newVehicleDoc(userID, v)); err != nil {
		return "", fmt.Errorf("AddVehicle: %w", err)
	}
	return v.ID, nil
}

func (r *Repository) UpdateVehicle(ctx context.Context, userID string, v domain.Vehicle) error {
	set := bson.M{
		"license_plate": v.LicensePlate,
		"brand":         v.Brand,
		"model":         v.Model,
		"year":          v.Year,
	}
	if err := updateOwned(ctx, r.provider.Collection(VehiclesCollection), userID, v.ID, set); err != nil {
		return fmt.Errorf("UpdateVehicle: %w", err)
	}
	return nil
}

func (r *Repository) DeleteVehicle(ctx context.Context, userID, id string) error {
	if err := deleteOwned(ctx, r.provider.Collection(VehiclesCollection), userID, id); err != nil {
		return fmt.Errorf("DeleteVehicle: %w", err)
	}
	return nil
}

// Reminders

func (r *Repository) ListReminders(ctx context.Context, userID string) ([]domain.Reminder, error) {
	docs, err := findAll[reminderDoc](ctx, r.provider.Collection(RemindersCollection), userID,
		bson.D{{Key: "due_date", Value: 1}, {Key: "_id", Value: 1}})
	if err != nil {
		return nil, fmt.Errorf("ListReminders: %w", err)
	}
	out := make([]domain.Reminder, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

func (r *Repository) GetReminder(ctx context.Context, userID, id string) (domain.Reminder, error) {
	doc, err := findOne[reminderDoc](ctx, r.provider.Collection(RemindersCollection), userID, id)
	if err != nil {
		return domain.Reminder{}, fmt.Errorf("GetReminder: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *Repository) AddReminder(ctx context.Context, userID string, rem domain.Reminder) (string, error) {
	rem.ID = r.newID()
	if _, err := r.provider.Collection(RemindersCollection).InsertOne(ctx, newReminderDoc(userID, rem)); err != nil {
		return "", fmt.Errorf("AddReminder: %w", err)
	}
	return rem.ID, nil
}

func (r *Repository) UpdateReminder(ctx context.Context, userID string, rem domain.Reminder) error {
	set := bson.M{
		"vehicle_id":   rem.VehicleID,
		"type":         string(rem.Type),
		"due_date":     rem.DueDate,
		"description":  rem.Description,
		"is_completed": rem.IsCompleted,
	}
	if err := updateOwned(ctx, r.provider.Collection(RemindersCollection), userID, rem.ID, set); err != nil {
		return fmt.Errorf("UpdateReminder: %w", err)
	}
	return nil
}

func (r *Repository) DeleteReminder(ctx context.Context, userID, id string) error {
	if err := deleteOwned(ctx, r.provider.Collection(RemindersCollection), userID, id); err != nil {
		return fmt.Errorf("DeleteReminder: %w", err)
	}
	return nil
}

// Settings

func (r *Repository) GetAPIKey(ctx context.Context, userID string) (string, error) {
	var doc settingsDoc
	err := r.provider.Collection(SettingsCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("GetAPIKey: %w", err)
	}
	return doc.OpenAIKey, nil
}

func (r *Repository) SetAPIKey(ctx context.Context, userID, key string) error {
	update := bson.M{"$set": bson.M{"open_ai_key": key, "updated_at": r.now().UTC()}}
	_, err := r.provider.Collection(SettingsCollection).UpdateOne(ctx, bson.M{"_id": userID}, update,
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("SetAPIKey: %w", err)
	}
	return nil
}
