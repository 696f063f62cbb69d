package mongo

import (
	"context"
	"fitcoach/coaching-api/internal/repository"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

// ConnectDB opens a client for uri and pings the primary. A client that
// connects but cannot reach the primary is closed again.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), pingTimeout)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = DisconnectDB(client)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// mongoTransactor implements repository.Transactor with client sessions.
type mongoTransactor struct {
	client  *mongo.Client
	enabled bool
}

// NewMongoTransactor returns a Transactor backed by multi-document transactions.
// Transactions require a replica set; with enabled=false fn runs without one
// (standalone development servers).
func NewMongoTransactor(client *mongo.Client, enabled bool) repository.Transactor {
	return &mongoTransactor{client: client, enabled: enabled}
}

// WithTransaction runs fn inside a session transaction. The driver retries fn
// on transient errors such as write conflicts, so fn must be safe to re-run.
func (t *mongoTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the indexes of every collection. Failures are logged
// by each helper and do not stop startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	EnsureUserIndexes(ctx, db.Collection(userCollectionName))
	EnsureCoachingIndexes(ctx, db.Collection(coachingCollectionName))
	EnsurePlanTemplateIndexes(ctx, db.Collection(planTemplateCollectionName))
	EnsurePlanAssignmentIndexes(ctx, db.Collection(planAssignmentCollectionName))
	EnsureTrackingIndexes(ctx, db.Collection(trackingCollectionName))
	EnsureDocumentIndexes(ctx, db.Collection(documentCollectionName))
}
