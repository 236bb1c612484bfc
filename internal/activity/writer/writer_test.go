package writer

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pkgbigquery "github.com/angelmondragon/socshift-backend/pkg/bigquery"
)

type insertCall struct {
	table     string
	insertIDs []string
}

type fakeInserter struct {
	mu        sync.Mutex
	responses []error
	calls     []insertCall
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := insertCall{table: table}
	for _, row := range rows {
		if saver, ok := row.(*cbigquery.StructSaver); ok {
			call.insertIDs = append(call.insertIDs, saver.InsertID)
		}
	}
	f.calls = append(f.calls, call)

	if len(f.responses) == 0 {
		return nil
	}
	err := f.responses[0]
	f.responses = f.responses[1:]
	return err
}

func (f *fakeInserter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestWriter(t *testing.T, batch int, responses ...error) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	w, err := New(&pkgbigquery.Client{}, Config{
		ActivityTable: "activity_events",
		BatchSize:     batch,
		BaseBackoff:   time.Millisecond,
		MaxBackoff:    time.Millisecond,
	})
	require.NoError(t, err)
	fake := &fakeInserter{responses: responses}
	w.client = fake
	return w, fake
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, Config{ActivityTable: "activity_events"})
	assert.Error(t, err)
	_, err = New(&pkgbigquery.Client{}, Config{ActivityTable: " "})
	assert.Error(t, err)

	w, err := New(&pkgbigquery.Client{}, Config{ActivityTable: "a", BaseBackoff: 5 * time.Second, MaxBackoff: time.Second})
	require.NoError(t, err)
	assert.Equal(t, defaultBatchSize, w.batchSize)
	assert.Equal(t, defaultMaxAttempts, w.maxAttempts)
	assert.Equal(t, 5*time.Second, w.maxBackoff)
}

func TestEncodeJSON(t *testing.T) {
	nj, err := EncodeJSON(map[string]any{"shiftId": "s1"})
	require.NoError(t, err)
	assert.True(t, nj.Valid)
	assert.JSONEq(t, `{"shiftId":"s1"}`, nj.JSONVal)

	nj, err = EncodeJSON(nil)
	require.NoError(t, err)
	assert.False(t, nj.Valid)

	nj, err = EncodeJSON(json.RawMessage(`{"date":"2026-03-02"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"date":"2026-03-02"}`, nj.JSONVal)
}

func TestNullString(t *testing.T) {
	assert.False(t, NullString("  ").Valid)
	assert.Equal(t, cbigquery.NullString{StringVal: "Ana", Valid: true}, NullString(" Ana "))
}

func TestInsertRetriesTransientErrors(t *testing.T) {
	w, fake := newTestWriter(t, 1,
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		status.Error(codes.Unavailable, "backend"),
	)

	require.NoError(t, w.Insert(context.Background(), Row{EventID: "evt-1"}))
	require.Len(t, fake.calls, 3)
	assert.Equal(t, "activity_events", fake.calls[2].table)
	assert.Equal(t, []string{"evt-1"}, fake.calls[2].insertIDs)
	assert.Zero(t, w.Pending())
}

func TestInsertStopsOnPermanentError(t *testing.T) {
	w, fake := newTestWriter(t, 1, &googleapi.Error{Code: http.StatusBadRequest})

	err := w.Insert(context.Background(), Row{EventID: "evt-1"})
	require.Error(t, err)
	assert.Len(t, fake.calls, 1)
	assert.Equal(t, 1, w.Pending(), "failed rows stay queued")
}

func TestInsertGivesUpAfterMaxAttempts(t *testing.T) {
	unavailable := &googleapi.Error{Code: http.StatusServiceUnavailable}
	w, fake := newTestWriter(t, 1, unavailable, unavailable, unavailable, unavailable)

	err := w.Insert(context.Background(), Row{EventID: "evt-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, unavailable)
	assert.Len(t, fake.calls, defaultMaxAttempts)
}

func TestRowErrorsRetryOnlyWhenAllTransient(t *testing.T) {
	transientRows := cbigquery.PutMultiError{
		{InsertID: "a", Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusInternalServerError}}},
	}
	assert.True(t, transient(transientRows))

	mixed := cbigquery.PutMultiError{
		{InsertID: "a", Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusInternalServerError}}},
		{InsertID: "b", Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusBadRequest}}},
	}
	assert.False(t, transient(mixed))
	assert.False(t, transient(cbigquery.PutMultiError{}))
}

func TestBatchingAndFlush(t *testing.T) {
	ctx := context.Background()
	w, fake := newTestWriter(t, 2)

	require.NoError(t, w.Insert(ctx, Row{EventID: "1"}))
	assert.Empty(t, fake.calls)
	require.NoError(t, w.Insert(ctx, Row{EventID: "2"}))
	require.Len(t, fake.calls, 1)
	assert.Equal(t, []string{"1", "2"}, fake.calls[0].insertIDs)

	require.NoError(t, w.Insert(ctx, Row{EventID: "3"}))
	require.NoError(t, w.Flush(ctx))
	require.Len(t, fake.calls, 2)
	assert.Equal(t, []string{"3"}, fake.calls[1].insertIDs)

	require.NoError(t, w.Flush(ctx))
	assert.Len(t, fake.calls, 2, "empty flush is a no-op")
}

func TestConcurrentInserts(t *testing.T) {
	w, fake := newTestWriter(t, 4)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Insert(context.Background(), Row{EventID: string(rune('a' + i))}))
		}()
	}
	wg.Wait()
	require.NoError(t, w.Flush(context.Background()))

	total := 0
	for _, call := range fake.calls {
		total += len(call.insertIDs)
	}
	assert.Equal(t, 20, total)
	assert.Equal(t, 5, fake.callCount())
}

func TestTableSpecMatchesRowColumns(t *testing.T) {
	spec := TableSpec("activity_events")
	columns := map[string]bool{}
	for _, field := range spec.Schema {
		columns[field.Name] = true
	}

	rowType := reflect.TypeOf(Row{})
	require.Equal(t, len(spec.Schema), rowType.NumField())
	for i := range rowType.NumField() {
		tag := rowType.Field(i).Tag.Get("bigquery")
		assert.True(t, columns[tag], "row column %q missing from table schema", tag)
	}
	assert.Equal(t, "occurred_at", spec.PartitionField)
}
