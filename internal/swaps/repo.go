package swaps

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// Repository persists swapRequests documents.
type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) collection() *firestore.CollectionRef {
	return r.client.Collection(db.CollectionSwapRequests)
}

// GetTx reads the swap inside tx so the status check and the write commit
// together.
func (r *Repository) GetTx(tx *firestore.Transaction, id string) (*models.SwapRequest, error) {
	snap, err := tx.Get(r.collection().Doc(id))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	var swap models.SwapRequest
	if err := db.Decode(snap, &swap); err != nil {
		return nil, err
	}
	return &swap, nil
}

// List returns swaps newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status enums.SwapStatus) ([]models.SwapRequest, error) {
	q := r.collection().Query
	if status != "" {
		q = q.Where("status", "==", string(status))
	}
	snaps, err := q.OrderBy("createdAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.SwapRequest](snaps)
}

// ListPendingForShiftTx returns open swaps offering shiftID.
func (r *Repository) ListPendingForShiftTx(tx *firestore.Transaction, shiftID string) ([]models.SwapRequest, error) {
	q := r.collection().
		Where("shiftId", "==", shiftID).
		Where("status", "==", string(enums.SwapStatusPending))
	snaps, err := tx.Documents(q).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.SwapRequest](snaps)
}

func (r *Repository) CreateTx(tx *firestore.Transaction, swap *models.SwapRequest) error {
	if err := db.Validate(swap); err != nil {
		return err
	}
	ref := r.collection().NewDoc()
	if err := tx.Create(ref, swap); err != nil {
		return err
	}
	swap.ID = ref.ID
	return nil
}

func (r *Repository) UpdateTx(tx *firestore.Transaction, swap models.SwapRequest) error {
	if err := db.Validate(&swap); err != nil {
		return err
	}
	return tx.Set(r.collection().Doc(swap.ID), swap)
}
