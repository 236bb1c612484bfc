package availability

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
)

// Repository persists userAvailability documents.
type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) collection() *firestore.CollectionRef {
	return r.client.Collection(db.CollectionUserAvailability)
}

func rangeQuery(q firestore.Query, from, to string) firestore.Query {
	if from != "" {
		q = q.Where("date", ">=", from)
	}
	if to != "" {
		q = q.Where("date", "<=", to)
	}
	return q.OrderBy("date", firestore.Asc)
}

func (r *Repository) Get(ctx context.Context, id string) (*models.UserAvailability, error) {
	snap, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	var entry models.UserAvailability
	if err := db.Decode(snap, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByUser returns the user's entries within [from, to]. Empty bounds are open.
func (r *Repository) ListByUser(ctx context.Context, userID, from, to string) ([]models.UserAvailability, error) {
	q := r.collection().Where("userId", "==", userID)
	snaps, err := rangeQuery(q, from, to).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.UserAvailability](snaps)
}

// ListRange returns every entry within [from, to].
func (r *Repository) ListRange(ctx context.Context, from, to string) ([]models.UserAvailability, error) {
	snaps, err := rangeQuery(r.collection().Query, from, to).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.UserAvailability](snaps)
}

func (r *Repository) Create(ctx context.Context, entry *models.UserAvailability) error {
	if err := db.Validate(entry); err != nil {
		return err
	}
	ref := r.collection().NewDoc()
	if _, err := ref.Create(ctx, entry); err != nil {
		return err
	}
	entry.ID = ref.ID
	return nil
}

// CreateTx inserts entry inside tx. Leave approval uses it to block the day
// in the same commit as the review.
func (r *Repository) CreateTx(tx *firestore.Transaction, entry *models.UserAvailability) error {
	if err := db.Validate(entry); err != nil {
		return err
	}
	ref := r.collection().NewDoc()
	if err := tx.Create(ref, entry); err != nil {
		return err
	}
	entry.ID = ref.ID
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.collection().Doc(id).Delete(ctx)
	return err
}
