package activity

import (
	"context"
	"time"

	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// EventType is the Pub/Sub event type used for activity envelopes.
const EventType = "activity.recorded"

// Entry describes a mutation worth recording in the activity log.
type Entry struct {
	Actor   auth.Actor
	Type    enums.ActivityType
	Action  string
	Details string
}

// Recorder appends activity entries. Implementations never fail the caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Event is the envelope payload published for every recorded entry.
type Event struct {
	EntryID   string             `json:"entryId"`
	UserID    string             `json:"userId"`
	UserName  string             `json:"userName"`
	Action    string             `json:"action"`
	Details   string             `json:"details,omitempty"`
	Type      enums.ActivityType `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
}

// Nop discards entries. Useful for jobs and tests.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) {}
