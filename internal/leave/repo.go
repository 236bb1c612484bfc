package leave

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// Repository persists leaveRequests documents.
type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) collection() *firestore.CollectionRef {
	return r.client.Collection(db.CollectionLeaveRequests)
}

func (r *Repository) GetTx(tx *firestore.Transaction, id string) (*models.LeaveRequest, error) {
	snap, err := tx.Get(r.collection().Doc(id))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	var req models.LeaveRequest
	if err := db.Decode(snap, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests newest first, optionally filtered by user and status.
func (r *Repository) List(ctx context.Context, userID string, status enums.LeaveStatus) ([]models.LeaveRequest, error) {
	q := r.collection().Query
	if userID != "" {
		q = q.Where("userId", "==", userID)
	}
	if status != "" {
		q = q.Where("status", "==", string(status))
	}
	snaps, err := q.OrderBy("createdAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.LeaveRequest](snaps)
}

// ListForDateTx returns the user's requests for date inside tx.
func (r *Repository) ListForDateTx(tx *firestore.Transaction, userID, date string) ([]models.LeaveRequest, error) {
	q := r.collection().Where("userId", "==", userID).Where("date", "==", date)
	snaps, err := tx.Documents(q).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.LeaveRequest](snaps)
}

func (r *Repository) CreateTx(tx *firestore.Transaction, req *models.LeaveRequest) error {
	if err := db.Validate(req); err != nil {
		return err
	}
	ref := r.collection().NewDoc()
	if err := tx.Create(ref, req); err != nil {
		return err
	}
	req.ID = ref.ID
	return nil
}

func (r *Repository) UpdateTx(tx *firestore.Transaction, req models.LeaveRequest) error {
	if err := db.Validate(&req); err != nil {
		return err
	}
	return tx.Set(r.collection().Doc(req.ID), req)
}
