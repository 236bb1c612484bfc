package clock

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
)

// Repository persists clockEntries documents.
type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) collection() *firestore.CollectionRef {
	return r.client.Collection(db.CollectionClockEntries)
}

// OpenForUserTx returns the user's entries that have no clock-out.
func (r *Repository) OpenForUserTx(tx *firestore.Transaction, userID string) ([]models.ClockEntry, error) {
	q := r.collection().Where("userId", "==", userID).Where("clockOut", "==", nil)
	snaps, err := tx.Documents(q).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.ClockEntry](snaps)
}

// ListByUser returns the user's entries clocked in within [from, to).
// Zero bounds are open.
func (r *Repository) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]models.ClockEntry, error) {
	return r.list(ctx, r.collection().Where("userId", "==", userID), from, to)
}

// ListBetween returns every entry clocked in within [from, to).
func (r *Repository) ListBetween(ctx context.Context, from, to time.Time) ([]models.ClockEntry, error) {
	return r.list(ctx, r.collection().Query, from, to)
}

func (r *Repository) list(ctx context.Context, q firestore.Query, from, to time.Time) ([]models.ClockEntry, error) {
	if !from.IsZero() {
		q = q.Where("clockIn", ">=", from)
	}
	if !to.IsZero() {
		q = q.Where("clockIn", "<", to)
	}
	snaps, err := q.OrderBy("clockIn", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.ClockEntry](snaps)
}

func (r *Repository) CreateTx(tx *firestore.Transaction, entry *models.ClockEntry) error {
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

func (r *Repository) UpdateTx(tx *firestore.Transaction, entry models.ClockEntry) error {
	if err := db.Validate(&entry); err != nil {
		return err
	}
	return tx.Set(r.collection().Doc(entry.ID), entry)
}
