package shiftconfig

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
)

// Repository reads and writes the config/shiftConfiguration singleton.
type Repository struct {
	client *db.Client
}

// NewRepository binds the repository to Firestore.
func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) doc() *firestore.DocumentRef {
	return r.client.Collection(db.CollectionConfig).Doc(db.DocShiftConfiguration)
}

// Get returns db.ErrNotFound when nothing has been persisted yet.
func (r *Repository) Get(ctx context.Context) (*models.ShiftConfiguration, error) {
	snap, err := r.doc().Get(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	var cfg models.ShiftConfiguration
	if err := db.Decode(snap, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save overwrites the singleton.
func (r *Repository) Save(ctx context.Context, cfg models.ShiftConfiguration) error {
	if err := db.Validate(&cfg); err != nil {
		return err
	}
	_, err := r.doc().Set(ctx, cfg)
	return err
}
