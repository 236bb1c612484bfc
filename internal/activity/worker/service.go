package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/internal/activity/writer"
	"github.com/angelmondragon/socshift-backend/pkg/events"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
	"github.com/angelmondragon/socshift-backend/pkg/metrics"
)

const consumerName = "activity-bigquery"

// Handler errors wrapping these are permanent: the message is acked and
// dropped instead of redelivered.
var (
	ErrUnsupportedEventType = errors.New("unsupported event type")
	ErrInvalidPayload       = errors.New("invalid activity payload")
)

type Handler interface {
	Handle(ctx context.Context, env events.Envelope) error
}

type HandlerFunc func(ctx context.Context, env events.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, env events.Envelope) error {
	return fn(ctx, env)
}

type deduper interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type rowInserter interface {
	Insert(ctx context.Context, row writer.Row) error
}

// disposition is what happens to a message once process returns; it also
// labels the consumer metrics.
type disposition string

const (
	handled   disposition = "handled"
	duplicate disposition = "duplicate"
	dropped   disposition = "dropped"
	retry     disposition = "retry"
)

func (d disposition) ack() bool { return d != retry }

type ServiceParams struct {
	Subscription *gcppubsub.Subscriber
	Handler      Handler
	Dedupe       deduper
	Metrics      *metrics.ConsumerMetrics
	Logger       *logger.Logger
	// MaxAttempts drops a message whose delivery attempt exceeds it. It only
	// takes effect when the subscription has a dead-letter policy, since
	// Pub/Sub reports attempts only then. Zero disables the cut-off.
	MaxAttempts int
}

// Service streams activity envelopes from Pub/Sub into the warehouse. Each
// event id is claimed in Redis before handling so redeliveries are skipped.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	dedupe       deduper
	metrics      *metrics.ConsumerMetrics
	logg         *logger.Logger
	maxAttempts  int
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Subscription == nil:
		return nil, errors.New("activity subscription is required")
	case params.Handler == nil:
		return nil, errors.New("activity handler is required")
	case params.Dedupe == nil:
		return nil, errors.New("idempotency manager is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.MaxAttempts < 0:
		return nil, errors.New("max attempts must be non-negative")
	}
	return &Service{
		subscription: params.Subscription,
		handler:      params.Handler,
		dedupe:       params.Dedupe,
		metrics:      params.Metrics,
		logg:         params.Logger,
		maxAttempts:  params.MaxAttempts,
	}, nil
}

// Run receives until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		start := time.Now()
		d := s.process(msgCtx, msg)
		s.metrics.Observe(string(d), time.Since(start))
		if d.ack() {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) disposition {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	env, err := events.DecodeEnvelope(msg.Data)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "activity.envelope_invalid")
		return dropped
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":    env.EventID.String(),
		"event_type":  env.EventType,
		"occurred_at": env.OccurredAt.Format(time.RFC3339Nano),
	})

	if msg.DeliveryAttempt != nil && s.maxAttempts > 0 && *msg.DeliveryAttempt > s.maxAttempts {
		s.logg.Error(s.logg.WithField(ctx, "delivery_attempt", *msg.DeliveryAttempt), "activity.gave_up",
			fmt.Errorf("event %s exceeded %d delivery attempts", env.EventID, s.maxAttempts))
		return dropped
	}

	seen, err := s.dedupe.CheckAndMarkProcessed(ctx, consumerName, env.EventID)
	if err != nil {
		s.logg.Error(ctx, "activity.dedupe_failed", err)
		return retry
	}
	if seen {
		s.logg.Debug(ctx, "activity.duplicate")
		return duplicate
	}

	err = s.handler.Handle(ctx, env)
	switch {
	case err == nil:
		return handled
	case errors.Is(err, ErrUnsupportedEventType), errors.Is(err, ErrInvalidPayload):
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "activity.dropped")
		return dropped
	default:
		s.logg.Error(ctx, "activity.handle_failed", err)
		if relErr := s.dedupe.Release(context.WithoutCancel(ctx), consumerName, env.EventID); relErr != nil {
			s.logg.Error(ctx, "activity.release_failed", relErr)
		}
		return retry
	}
}

// BigQueryHandler writes each activity envelope as one warehouse row.
func BigQueryHandler(w rowInserter) Handler {
	return HandlerFunc(func(ctx context.Context, env events.Envelope) error {
		row, err := RowFromEnvelope(env)
		if err != nil {
			return err
		}
		return w.Insert(ctx, row)
	})
}

func RowFromEnvelope(env events.Envelope) (writer.Row, error) {
	if env.EventType != activity.EventType {
		return writer.Row{}, fmt.Errorf("%w: %s", ErrUnsupportedEventType, env.EventType)
	}
	var ev activity.Event
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		return writer.Row{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if ev.EntryID == "" || ev.Type == "" {
		return writer.Row{}, fmt.Errorf("%w: entry id and type are required", ErrInvalidPayload)
	}
	payload, err := writer.EncodeJSON(env.Data)
	if err != nil {
		return writer.Row{}, err
	}
	return writer.Row{
		EventID:      env.EventID.String(),
		EventVersion: int64(env.Version),
		OccurredAt:   env.OccurredAt.UTC(),
		EntryID:      ev.EntryID,
		ActivityType: string(ev.Type),
		UserID:       ev.UserID,
		UserName:     writer.NullString(ev.UserName),
		Action:       ev.Action,
		Details:      writer.NullString(ev.Details),
		Payload:      payload,
	}, nil
}
