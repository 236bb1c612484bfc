package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/socshift-backend/pkg/events"
)

// PubSubPublisher publishes activity envelopes to the activity topic.
type PubSubPublisher struct {
	publisher *gcppubsub.Publisher
}

// NewPubSubPublisher wraps a topic publisher.
func NewPubSubPublisher(publisher *gcppubsub.Publisher) (*PubSubPublisher, error) {
	if publisher == nil {
		return nil, errors.New("activity publisher is required")
	}
	return &PubSubPublisher{publisher: publisher}, nil
}

// Publish sends the envelope and waits for the server acknowledgement.
func (p *PubSubPublisher) Publish(ctx context.Context, env events.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	result := p.publisher.Publish(ctx, &gcppubsub.Message{
		Data:       payload,
		Attributes: env.Attributes(),
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", env.EventType, err)
	}
	return nil
}

// Stop flushes pending messages.
func (p *PubSubPublisher) Stop() {
	if p != nil && p.publisher != nil {
		p.publisher.Stop()
	}
}
