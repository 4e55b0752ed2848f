package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Connect dials MongoDB and verifies the connection with a ping, retrying
// with exponential backoff before giving up.
func Connect(ctx context.Context, uri string, log *zap.SugaredLogger) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetMinPoolSize(5).
		SetMaxPoolSize(100).
		SetMaxConnIdleTime(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	const maxAttempts = 5
	backoff := 500 * time.Millisecond

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, connErr := mongo.Connect(connCtx, clientOptions)
		cancel()

		if connErr == nil {
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			connErr = client.Ping(pingCtx, readpref.Primary())
			pingCancel()
			if connErr == nil {
				log.Infow("Connected to MongoDB", "attempt", attempt)
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}
		err = connErr

		log.Warnw("MongoDB connection failed, retrying",
			"attempt", attempt, "maxAttempts", maxAttempts, "backoff", backoff, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, fmt.Errorf("connecting to MongoDB: %w", ctx.Err())
		}
		if backoff *= 2; backoff > 8*time.Second {
			backoff = 8 * time.Second
		}
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", maxAttempts, err)
}

// CreateIndexes creates the indexes the game store queries rely on: room
// code lookup and the active-game scan on startup.
func CreateIndexes(ctx context.Context, client *mongo.Client, dbName, gamesColl string) error {
	games := client.Database(dbName).Collection(gamesColl)
	_, err := games.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"code": 1}},
		{Keys: bson.M{"status": 1}},
	})
	return err
}
