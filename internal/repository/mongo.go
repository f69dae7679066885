package repository

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NewMongoStore wires the MongoDB repositories against db. With
// transactions disabled (standalone servers) WithTransaction runs fn directly.
func NewMongoStore(db *mongo.Database, transactions bool) *Store {
	return &Store{
		Products: &mongoProducts{coll: db.Collection("products")},
		Orders:   &mongoOrders{coll: db.Collection("orders")},
		Users:    &mongoUsers{coll: db.Collection("users")},
		Tx:       &mongoTransactor{client: db.Client(), enabled: transactions},
		Ping: func(ctx context.Context) error {
			checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return db.Client().Ping(checkCtx, readpref.Primary())
		},
	}
}

type mongoTransactor struct {
	client  *mongo.Client
	enabled bool
}

func (t *mongoTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		log.Println("[DB] [ERROR] start session failed:", err)
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
