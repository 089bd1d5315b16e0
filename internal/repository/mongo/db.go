package mongo

import (
	"context"
	"time"

	"sweatpoints/fitness-app/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary node to verify the connection.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	err = client.Ping(pingCtx, readpref.Primary())
	if err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// mongoTxRunner implements repository.TxRunner over a mongo session.
// Multi-document transactions require a replica set or mongos; on a
// standalone mongod use NewNoTxRunner instead and accept the documented
// partial-write risk on import.
type mongoTxRunner struct {
	client *mongo.Client
}

// NewTxRunner creates a TxRunner backed by mongo multi-document transactions.
func NewTxRunner(client *mongo.Client) repository.TxRunner {
	return &mongoTxRunner{client: client}
}

func (r *mongoTxRunner) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// noTxRunner runs fn without transactional guarantees. For standalone
// deployments that cannot open multi-document transactions.
type noTxRunner struct{}

// NewNoTxRunner creates a TxRunner that provides no atomicity.
func NewNoTxRunner() repository.TxRunner {
	return noTxRunner{}
}

func (noTxRunner) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
