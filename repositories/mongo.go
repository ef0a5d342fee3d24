package repositories

import (
	"context"
	"fmt"
	"time"

	"workhub-manager/server/logging"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection   = "users"
	TasksCollection   = "tasks"
	NoticesCollection = "notices"
)

// Connect opens a client and pings the deployment.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(50*time.Second))
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"email": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create unique index on user email: %w", err)
	}

	_, err = db.Collection(TasksCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "isTrashed", Value: 1}, {Key: "stage", Value: 1}}},
		{Keys: bson.M{"team": 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create task indexes: %w", err)
	}

	_, err = db.Collection(NoticesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.M{"team": 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create notice index: %w", err)
	}

	logging.Logger.Info("Event ID: DB_INDEXES_READY, Description: MongoDB indexes ensured")
	return nil
}

// MongoTransactor uses multi-document transactions when enabled. Standalone
// servers do not support them, so it can be switched off.
type MongoTransactor struct {
	client  *mongo.Client
	enabled bool
}

func NewMongoTransactor(client *mongo.Client, enabled bool) *MongoTransactor {
	return &MongoTransactor{client: client, enabled: enabled}
}

func (t *MongoTransactor) Atomic() bool {
	return t.enabled
}

func (t *MongoTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func notFoundIfNone(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
