package users

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
)

// Repository is the Firestore access layer for users/{uid}.
type Repository struct {
	client *db.Client
}

// NewRepository binds the repository to Firestore.
func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) collection() *firestore.CollectionRef {
	return r.client.Collection(db.CollectionUsers)
}

// Get loads one user by auth uid.
func (r *Repository) Get(ctx context.Context, id string) (*models.User, error) {
	snap, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	var user models.User
	if err := db.Decode(snap, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetTx loads one user inside tx.
func (r *Repository) GetTx(tx *firestore.Transaction, id string) (*models.User, error) {
	snap, err := tx.Get(r.collection().Doc(id))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	var user models.User
	if err := db.Decode(snap, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns every user ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	snaps, err := r.collection().OrderBy("name", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.User](snaps)
}

// ListActive returns users that may be scheduled.
func (r *Repository) ListActive(ctx context.Context) ([]models.User, error) {
	snaps, err := r.collection().Where("isActive", "==", true).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.User](snaps)
}

// Create writes a new user document keyed by user.ID. It fails when the
// document already exists.
func (r *Repository) Create(ctx context.Context, user models.User) error {
	if err := db.Validate(&user); err != nil {
		return err
	}
	_, err := r.collection().Doc(user.ID).Create(ctx, user)
	return err
}

// Save overwrites the user document.
func (r *Repository) Save(ctx context.Context, user models.User) error {
	if err := db.Validate(&user); err != nil {
		return err
	}
	_, err := r.collection().Doc(user.ID).Set(ctx, user)
	return err
}

// DeleteTx removes the user document inside tx.
func (r *Repository) DeleteTx(tx *firestore.Transaction, id string) error {
	return tx.Delete(r.collection().Doc(id))
}
