package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the envelope version written by this service.
const CurrentVersion = 1

// Attribute names set on published Pub/Sub messages.
const (
	AttrEventID   = "event_id"
	AttrEventType = "event_type"
	AttrVersion   = "version"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
}

// Envelope is the stable payload structure published for domain events.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    uuid.UUID       `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope wraps data in a fresh envelope.
func NewEnvelope(eventType string, occurredAt time.Time, actor *ActorRef, data any) (Envelope, error) {
	if eventType == "" {
		return Envelope{}, errors.New("event type is required")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal event data: %w", err)
	}
	return Envelope{
		Version:    CurrentVersion,
		EventID:    uuid.New(),
		EventType:  eventType,
		OccurredAt: occurredAt.UTC(),
		Actor:      actor,
		Data:       raw,
	}, nil
}

// Attributes returns the message attributes used for routing and dedupe.
func (e Envelope) Attributes() map[string]string {
	return map[string]string{
		AttrEventID:   e.EventID.String(),
		AttrEventType: e.EventType,
		AttrVersion:   fmt.Sprintf("%d", e.Version),
	}
}

// DecodeEnvelope parses a published message body.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version <= 0 || env.Version > CurrentVersion {
		return Envelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	if env.EventID == uuid.Nil {
		return Envelope{}, errors.New("envelope missing event id")
	}
	if env.EventType == "" {
		return Envelope{}, errors.New("envelope missing event type")
	}
	return env, nil
}
