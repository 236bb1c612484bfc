package db

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/angelmondragon/socshift-backend/pkg/config"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

// Client wraps the shared Firestore connection.
type Client struct {
	fs *firestore.Client
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MaxTxWrites is the most writes Firestore accepts in one transaction commit.
const MaxTxWrites = 500

// TxFunc runs inside a Firestore transaction. All reads must happen before
// the first write, and the function may be retried on contention.
type TxFunc func(ctx context.Context, tx *firestore.Transaction) error

// New boots a Firestore client for the configured project and database.
func New(ctx context.Context, gcp config.GCPConfig, cfg config.FirebaseConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, fmt.Errorf("gcp project id is required")
	}
	databaseID := strings.TrimSpace(cfg.DatabaseID)
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	fs, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("opening firestore client: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "firestore_database", databaseID), "firestore client established")
	}

	return &Client{fs: fs}, nil
}

// NewFromFirestore wraps an already constructed Firestore client.
func NewFromFirestore(fs *firestore.Client) *Client {
	return &Client{fs: fs}
}

// Firestore returns the underlying Firestore client.
func (c *Client) Firestore() *firestore.Client {
	return c.fs
}

// Collection is shorthand for Firestore().Collection(name).
func (c *Client) Collection(name string) *firestore.CollectionRef {
	return c.fs.Collection(name)
}

// Ping verifies the datastore is reachable by reading the config singleton.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.fs.Collection(CollectionConfig).Doc(DocShiftConfiguration).Get(ctx)
	if err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.fs.Close()
}

// WithTx executes fn inside a Firestore transaction. Firestore rolls back
// when fn returns an error and retries fn when the commit hits contention.
func (c *Client) WithTx(ctx context.Context, fn TxFunc) error {
	return c.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, tx)
	})
}
