package writer

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pkgbigquery "github.com/angelmondragon/socshift-backend/pkg/bigquery"
)

// TableSpec is the activity table layout: one row per event, partitioned by
// day of occurrence and clustered for the per-type daily counts query.
func TableSpec(name string) pkgbigquery.TableSpec {
	return pkgbigquery.TableSpec{
		Name: name,
		Schema: cbigquery.Schema{
			{Name: "event_id", Type: cbigquery.StringFieldType, Required: true},
			{Name: "event_version", Type: cbigquery.IntegerFieldType, Required: true},
			{Name: "occurred_at", Type: cbigquery.TimestampFieldType, Required: true},
			{Name: "entry_id", Type: cbigquery.StringFieldType, Required: true},
			{Name: "activity_type", Type: cbigquery.StringFieldType, Required: true},
			{Name: "user_id", Type: cbigquery.StringFieldType, Required: true},
			{Name: "user_name", Type: cbigquery.StringFieldType},
			{Name: "action", Type: cbigquery.StringFieldType, Required: true},
			{Name: "details", Type: cbigquery.StringFieldType},
			{Name: "payload", Type: cbigquery.JSONFieldType},
		},
		PartitionField: "occurred_at",
		Clustering:     []string{"activity_type", "user_id"},
	}
}

const (
	defaultBatchSize   = 1
	defaultMaxAttempts = 3
	defaultBaseBackoff = 250 * time.Millisecond
	defaultMaxBackoff  = 2 * time.Second
)

// Row is one activity event in the BigQuery activity table.
type Row struct {
	EventID      string               `bigquery:"event_id"`
	EventVersion int64                `bigquery:"event_version"`
	OccurredAt   time.Time            `bigquery:"occurred_at"`
	EntryID      string               `bigquery:"entry_id"`
	ActivityType string               `bigquery:"activity_type"`
	UserID       string               `bigquery:"user_id"`
	UserName     cbigquery.NullString `bigquery:"user_name"`
	Action       string               `bigquery:"action"`
	Details      cbigquery.NullString `bigquery:"details"`
	Payload      cbigquery.NullJSON   `bigquery:"payload"`
}

type Config struct {
	ActivityTable string
	// BatchSize rows are held in memory before a streaming insert. One means
	// every Insert writes through.
	BatchSize   int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter streams activity rows into the analytics table. It is safe
// for concurrent use by the subscription callbacks.
type BigQueryWriter struct {
	client      tableInserter
	table       string
	batchSize   int
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	mu      sync.Mutex
	pending []Row
}

func New(client *pkgbigquery.Client, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.ActivityTable)
	if table == "" {
		return nil, errors.New("activity table is required")
	}

	w := &BigQueryWriter{
		client:      client,
		table:       table,
		batchSize:   cmp.Or(max(cfg.BatchSize, 0), defaultBatchSize),
		maxAttempts: cmp.Or(max(cfg.MaxAttempts, 0), defaultMaxAttempts),
		baseBackoff: cmp.Or(max(cfg.BaseBackoff, 0), defaultBaseBackoff),
		maxBackoff:  cmp.Or(max(cfg.MaxBackoff, 0), defaultMaxBackoff),
	}
	w.maxBackoff = max(w.maxBackoff, w.baseBackoff)
	return w, nil
}

// Insert queues a row and writes the batch once it is full.
func (w *BigQueryWriter) Insert(ctx context.Context, row Row) error {
	w.mu.Lock()
	w.pending = append(w.pending, row)
	if len(w.pending) < w.batchSize {
		w.mu.Unlock()
		return nil
	}
	batch := w.take()
	w.mu.Unlock()

	return w.write(ctx, batch)
}

// Flush writes whatever is queued. Rows that fail are put back so a later
// flush can try again.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	batch := w.take()
	w.mu.Unlock()

	return w.write(ctx, batch)
}

// Pending reports how many rows are waiting for the next write.
func (w *BigQueryWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *BigQueryWriter) take() []Row {
	batch := w.pending
	w.pending = nil
	return batch
}

func (w *BigQueryWriter) write(ctx context.Context, batch []Row) error {
	if len(batch) == 0 {
		return nil
	}

	// The event id doubles as the streaming insert id so a redelivered
	// message does not land twice inside BigQuery's dedupe window.
	savers := make([]any, len(batch))
	for i := range batch {
		savers[i] = &cbigquery.StructSaver{Struct: &batch[i], InsertID: batch[i].EventID}
	}

	backoff := retry.WithCappedDuration(w.maxBackoff, retry.NewExponential(w.baseBackoff))
	backoff = retry.WithMaxRetries(uint64(w.maxAttempts-1), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := w.client.InsertRows(ctx, w.table, savers); err != nil {
			if transient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err == nil {
		return nil
	}

	w.mu.Lock()
	w.pending = append(batch, w.pending...)
	w.mu.Unlock()
	return fmt.Errorf("insert %d rows into %s: %w", len(batch), w.table, err)
}

// transient reports whether BigQuery may accept the same rows on a later
// attempt. Row-level failures count only when every row failed transiently.
func transient(err error) bool {
	var rowErrs cbigquery.PutMultiError
	if errors.As(err, &rowErrs) {
		return len(rowErrs) > 0 && !slices.ContainsFunc(rowErrs, func(re cbigquery.RowInsertionError) bool {
			return !transient(re.Errors)
		})
	}

	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		return len(multi) > 0 && !slices.ContainsFunc(multi, func(inner error) bool { return !transient(inner) })
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	switch status.Code(err) {
	case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
		return true
	}
	return false
}

// EncodeJSON serializes a payload for a BigQuery JSON column.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	switch value := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case json.RawMessage:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	}

	marshaled, err := json.Marshal(payload)
	if err != nil {
		return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(marshaled)}, nil
}

// NullString maps an empty string to NULL.
func NullString(value string) cbigquery.NullString {
	value = strings.TrimSpace(value)
	return cbigquery.NullString{StringVal: value, Valid: value != ""}
}
