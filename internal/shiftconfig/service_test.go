package shiftconfig

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

type stubStore struct {
	cfg    *models.ShiftConfiguration
	getErr error
	saved  []models.ShiftConfiguration
	gets   int
}

func (s *stubStore) Get(ctx context.Context) (*models.ShiftConfiguration, error) {
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.cfg == nil {
		return nil, db.ErrNotFound
	}
	return s.cfg, nil
}

func (s *stubStore) Save(ctx context.Context, cfg models.ShiftConfiguration) error {
	s.saved = append(s.saved, cfg)
	return nil
}

type memoryCache struct {
	values  map[string]string
	deleted []string
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", errors.New("miss")
	}
	return v, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.values[key] = value.(string)
	return nil
}

func (m *memoryCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}

func (m *memoryCache) CacheKey(name string) string { return "soc:cache:" + name }

type recorded struct {
	entries []activity.Entry
}

func (r *recorded) Record(ctx context.Context, entry activity.Entry) {
	r.entries = append(r.entries, entry)
}

func newTestService(t *testing.T, store *stubStore, cache Cache, rec activity.Recorder) Service {
	t.Helper()
	svc, err := NewService(store, cache, rec, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func TestGetFallsBackToDefault(t *testing.T) {
	svc := newTestService(t, &stubStore{}, nil, nil)

	cfg, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultShiftConfiguration().Night, cfg.Night)
}

func TestGetUsesCache(t *testing.T) {
	stored := models.DefaultShiftConfiguration()
	stored.Morning.Start = "07:00"
	store := &stubStore{cfg: &stored}
	cache := &memoryCache{values: map[string]string{}}
	svc := newTestService(t, store, cache, nil)

	first, err := svc.Get(context.Background())
	require.NoError(t, err)
	second, err := svc.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "07:00", first.Morning.Start)
	assert.Equal(t, first.Morning, second.Morning)
	assert.Equal(t, 1, store.gets)
}

func TestGetSchemaMismatchIsInternal(t *testing.T) {
	store := &stubStore{getErr: &db.SchemaError{Path: "config/shiftConfiguration", Err: errors.New("bad")}}
	svc := newTestService(t, store, nil, nil)

	_, err := svc.Get(context.Background())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))
}

func TestUpdateRequiresAdmin(t *testing.T) {
	svc := newTestService(t, &stubStore{}, nil, nil)
	_, err := svc.Update(context.Background(), auth.Actor{UserID: "u1", Role: enums.UserRoleAnalyst}, models.DefaultShiftConfiguration())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestUpdateValidatesWindows(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(t, store, nil, nil)
	cfg := models.DefaultShiftConfiguration()
	cfg.Evening.LunchStart = "25:00"

	_, err := svc.Update(context.Background(), auth.Actor{UserID: "admin", IsAdmin: true}, cfg)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Empty(t, store.saved)

	cfg = models.DefaultShiftConfiguration()
	cfg.Night.WorkHours = 20
	_, err = svc.Update(context.Background(), auth.Actor{UserID: "admin", IsAdmin: true}, cfg)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestUpdateSavesInvalidatesAndRecords(t *testing.T) {
	store := &stubStore{}
	cache := &memoryCache{values: map[string]string{"soc:cache:shift_configuration": "{}"}}
	rec := &recorded{}
	svc := newTestService(t, store, cache, rec)

	out, err := svc.Update(context.Background(), auth.Actor{UserID: "admin", IsAdmin: true}, models.DefaultShiftConfiguration())
	require.NoError(t, err)

	assert.Equal(t, "admin", out.UpdatedBy)
	require.Len(t, store.saved, 1)
	assert.Equal(t, []string{"soc:cache:shift_configuration"}, cache.deleted)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, enums.ActivityConfigUpdated, rec.entries[0].Type)
}
