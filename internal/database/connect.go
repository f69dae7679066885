package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func Connect(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	log.Println("[DB] [INFO] MongoDB connection established")
	return client, nil
}

// EnsureIndexes creates every index the repositories rely on. Failures are
// returned so startup can decide whether to continue.
func EnsureIndexes(db *mongo.Database) []error {
	var errs []error
	for _, ensure := range []func(*mongo.Database) error{
		EnsureProductIndexes,
		EnsureUserIndexes,
		EnsureOrderIndexes,
	} {
		if err := ensure(db); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
