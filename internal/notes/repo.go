package notes

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
)

// Repository persists shiftNotes documents.
type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) collection() *firestore.CollectionRef {
	return r.client.Collection(db.CollectionShiftNotes)
}

func (r *Repository) Get(ctx context.Context, id string) (*models.ShiftNote, error) {
	snap, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	var note models.ShiftNote
	if err := db.Decode(snap, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// ListByShift returns the shift's notes oldest first.
func (r *Repository) ListByShift(ctx context.Context, shiftID string) ([]models.ShiftNote, error) {
	q := r.collection().Where("shiftId", "==", shiftID).OrderBy("createdAt", firestore.Asc)
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return db.DecodeAll[models.ShiftNote](snaps)
}

func (r *Repository) Create(ctx context.Context, note *models.ShiftNote) error {
	if err := db.Validate(note); err != nil {
		return err
	}
	ref := r.collection().NewDoc()
	if _, err := ref.Create(ctx, note); err != nil {
		return err
	}
	note.ID = ref.ID
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.collection().Doc(id).Delete(ctx)
	return err
}
