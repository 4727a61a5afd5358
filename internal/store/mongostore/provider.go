// Package mongostore implements store.Store on MongoDB. Each entity kind lives in
// its own collection and every document carries the owning user_id.
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dvloznov/vehicle-tracker/internal/logger"
)

const (
	TransactionsCollection = "transactions"
	VehiclesCollection     = "vehicles"
	RemindersCollection    = "reminders"
	SettingsCollection     = "settings"
)

// DataStore is the subset of *mongo.Collection the repository uses.
type DataStore interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// CollectionProvider defines the interface for obtaining a collection.
type CollectionProvider interface {
	Collection(name string) DataStore
}

// MongoProvider adapts *mongo.Client to CollectionProvider.
type MongoProvider struct {
	client   *mongo.Client
	database string
}

// NewMongoProvider creates a provider for one database.
func NewMongoProvider(client *mongo.Client, database string) *MongoProvider {
	return &MongoProvider{client: client, database: database}
}

// Collection returns a DataStore for the given collection name.
func (p *MongoProvider) Collection(name string) DataStore {
	return p.client.Database(p.database).Collection(name)
}

// EnsureIndexes creates the per-user lookup indexes. It is idempotent.
func (p *MongoProvider) EnsureIndexes(ctx context.Context) error {
	db := p.client.Database(p.database)
	specs := map[string]bson.D{
		TransactionsCollection: {{Key: "user_id", Value: 1}, {Key: "date", Value: -1}},
		VehiclesCollection:     {{Key: "user_id", Value: 1}},
		RemindersCollection:    {{Key: "user_id", Value: 1}, {Key: "due_date", Value: 1}},
	}
	for coll, keys := range specs {
		if _, err := db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys}); err != nil {
			return fmt.Errorf("EnsureIndexes: %s: %w", coll, err)
		}
	}
	return nil
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	log := logger.FromContext(ctx)
	log.Debug().Msg("Connecting to MongoDB")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("Connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("Connect: ping: %w", err)
	}

	log.Info().Msg("Connected to MongoDB")
	return client, nil
}
