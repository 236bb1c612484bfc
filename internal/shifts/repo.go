package shifts

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// Repository is the Firestore access layer for the shifts collection.
// Methods taking a transaction must be called before any write in that
// transaction when they read.
type Repository struct {
	client *db.Client
}

// NewRepository binds the repository to Firestore.
func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) collection() *firestore.CollectionRef {
	return r.client.Collection(db.CollectionShifts)
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

// Get loads a single shift.
func (r *Repository) Get(ctx context.Context, id string) (*models.Shift, error) {
	snap, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	var shift models.Shift
	if err := db.Decode(snap, &shift); err != nil {
		return nil, err
	}
	return &shift, nil
}

// GetTx loads a single shift inside tx.
func (r *Repository) GetTx(tx *firestore.Transaction, id string) (*models.Shift, error) {
	snap, err := tx.Get(r.collection().Doc(id))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	var shift models.Shift
	if err := db.Decode(snap, &shift); err != nil {
		return nil, err
	}
	return &shift, nil
}

// ListRange returns every shift dated within [from, to]. Empty bounds are open.
func (r *Repository) ListRange(ctx context.Context, from, to string) ([]models.Shift, error) {
	snaps, err := rangeQuery(r.collection().Query, from, to).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.Shift](snaps)
}

// ListRangeTx is ListRange inside tx.
func (r *Repository) ListRangeTx(tx *firestore.Transaction, from, to string) ([]models.Shift, error) {
	snaps, err := tx.Documents(rangeQuery(r.collection().Query, from, to)).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.Shift](snaps)
}

// ListByUser returns the user's shifts within [from, to].
func (r *Repository) ListByUser(ctx context.Context, userID, from, to string) ([]models.Shift, error) {
	q := r.collection().Where("userId", "==", userID)
	snaps, err := rangeQuery(q, from, to).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.Shift](snaps)
}

// ListByUserTx returns all of the user's shifts inside tx.
func (r *Repository) ListByUserTx(tx *firestore.Transaction, userID string) ([]models.Shift, error) {
	snaps, err := tx.Documents(r.collection().Where("userId", "==", userID)).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.Shift](snaps)
}

// FindSlotTx returns the shifts occupying (date, type).
func (r *Repository) FindSlotTx(tx *firestore.Transaction, date string, shiftType enums.ShiftType) ([]models.Shift, error) {
	q := r.collection().Where("date", "==", date).Where("type", "==", string(shiftType))
	snaps, err := tx.Documents(q).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.Shift](snaps)
}

// CreateTx inserts shift under a generated id and assigns it back.
func (r *Repository) CreateTx(tx *firestore.Transaction, shift *models.Shift) error {
	if err := db.Validate(shift); err != nil {
		return err
	}
	ref := r.collection().NewDoc()
	if err := tx.Create(ref, shift); err != nil {
		return err
	}
	shift.ID = ref.ID
	return nil
}

// UpdateTx overwrites an existing shift.
func (r *Repository) UpdateTx(tx *firestore.Transaction, shift models.Shift) error {
	if err := db.Validate(&shift); err != nil {
		return err
	}
	return tx.Set(r.collection().Doc(shift.ID), shift)
}

// DeleteTx removes a shift.
func (r *Repository) DeleteTx(tx *firestore.Transaction, id string) error {
	return tx.Delete(r.collection().Doc(id))
}
