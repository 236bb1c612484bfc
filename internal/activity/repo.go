package activity

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	"github.com/angelmondragon/socshift-backend/pkg/pagination"
)

type listParams struct {
	Limit  int
	Cursor *pagination.Cursor
	Type   enums.ActivityType
	UserID string
}

// Repository persists activity log entries in Firestore.
type Repository struct {
	client *db.Client
}

// NewRepository binds the repository to a Firestore client.
func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) collection() *firestore.CollectionRef {
	return r.client.Collection(db.CollectionActivityLogs)
}

// Create stores entry under a generated id and assigns it back.
func (r *Repository) Create(ctx context.Context, entry *models.ActivityLogEntry) error {
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

// List returns newest-first entries. The returned cursor is nil on the last page.
func (r *Repository) List(ctx context.Context, params listParams) ([]models.ActivityLogEntry, *pagination.Cursor, error) {
	q := r.collection().Query
	if params.Type != "" {
		q = q.Where("type", "==", string(params.Type))
	}
	if params.UserID != "" {
		q = q.Where("userId", "==", params.UserID)
	}
	q = q.OrderBy("timestamp", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
	if params.Cursor != nil {
		q = q.StartAfter(params.Cursor.Timestamp, params.Cursor.ID)
	}

	snaps, err := q.Limit(params.Limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, nil, err
	}
	rows, err := db.DecodeAll[models.ActivityLogEntry](snaps)
	if err != nil {
		return nil, nil, err
	}

	page, next := pagination.Split(rows, params.Limit-1, func(e models.ActivityLogEntry) pagination.Cursor {
		return pagination.Cursor{Timestamp: e.Timestamp, ID: e.ID}
	})
	return page, next, nil
}
