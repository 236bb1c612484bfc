package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

type memoryShifts struct {
	rows      []models.Shift
	err       error
	from, to  string
	byUserArg string
}

func (m *memoryShifts) ListRange(ctx context.Context, from, to string) ([]models.Shift, error) {
	m.from, m.to = from, to
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Shift
	for _, s := range m.rows {
		if s.Date >= from && s.Date <= to {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryShifts) ListByUser(ctx context.Context, userID, from, to string) ([]models.Shift, error) {
	m.byUserArg = userID
	rows, err := m.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var out []models.Shift
	for _, s := range rows {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

type staticUsers []models.User

func (s staticUsers) List(ctx context.Context) ([]models.User, error) { return s, nil }

type staticConfig struct{}

func (staticConfig) Get(ctx context.Context) (models.ShiftConfiguration, error) {
	return models.DefaultShiftConfiguration(), nil
}

func shift(id, date string, t enums.ShiftType, uid string) models.Shift {
	w := models.DefaultShiftConfiguration().Window(t)
	return models.Shift{
		ID: id, Date: date, Type: t, UserID: uid,
		LunchStart: w.LunchStart, LunchEnd: w.LunchEnd,
		BreakStart: w.BreakStart, BreakEnd: w.BreakEnd,
	}
}

func newTestService(t *testing.T, store *memoryShifts) *service {
	t.Helper()
	users := staticUsers{{ID: "u1", Name: "Ana"}, {ID: "u2", Name: "Ben, Jr."}}
	svc, err := NewService(store, users, staticConfig{}, time.UTC)
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return impl
}

func seeded() *memoryShifts {
	return &memoryShifts{rows: []models.Shift{
		shift("s3", "2026-03-03", enums.ShiftTypeNight, "u1"),
		shift("s1", "2026-03-02", enums.ShiftTypeMorning, "u1"),
		shift("s2", "2026-03-02", enums.ShiftTypeEvening, "u2"),
		shift("s4", "2026-03-20", enums.ShiftTypeMorning, "u2"),
	}}
}

func TestExportCSVForUser(t *testing.T) {
	store := seeded()
	svc := newTestService(t, store)

	file, err := svc.Export(context.Background(), Params{Format: "CSV", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "shifts_2026-03-02_2026-03-08.csv", file.Filename)
	assert.Equal(t, "u1", store.byUserArg)
	assert.Equal(t, "2026-03-02", store.from)
	assert.Equal(t, "2026-03-08", store.to)

	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, header, records[0])
	assert.Equal(t, []string{"2026-03-02", "Monday", "Morning", "u1", "Ana", "06:00", "14:00", "10:00-10:30", "12:00-12:15", "false"}, records[1])
	assert.Equal(t, "Night", records[2][2])
	assert.Equal(t, "06:00", records[2][6])
}

func TestExportICSOneEventPerShift(t *testing.T) {
	svc := newTestService(t, seeded())

	file, err := svc.Export(context.Background(), Params{Format: FormatICS, Start: "2026-03-02", End: "2026-03-03"})
	require.NoError(t, err)
	body := string(file.Body)
	assert.Equal(t, "text/calendar; charset=utf-8", file.ContentType)
	assert.Equal(t, 3, strings.Count(body, "BEGIN:VEVENT\r\n"))
	assert.Contains(t, body, "UID:s1\r\n")
	assert.Contains(t, body, "DTSTART:20260303T220000Z\r\nDTEND:20260304T060000Z\r\n")
	assert.Contains(t, body, `SUMMARY:Evening shift - Ben\, Jr.`)
	assert.True(t, strings.HasSuffix(body, "END:VCALENDAR\r\n"))
}

func TestExportXLSXReadsBack(t *testing.T) {
	svc := newTestService(t, seeded())

	file, err := svc.Export(context.Background(), Params{Format: FormatXLSX, Start: "2026-03-02", End: "2026-03-03"})
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(file.Body))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "Ben, Jr.", rows[2][4])
	assert.Contains(t, []string{"FALSE", "0"}, strings.ToUpper(rows[1][9]))
}

func TestExportHTMLAndText(t *testing.T) {
	svc := newTestService(t, seeded())

	page, err := svc.Export(context.Background(), Params{Format: FormatHTML, Start: "2026-03-02", End: "2026-03-03"})
	require.NoError(t, err)
	assert.Contains(t, string(page.Body), "<table>")
	assert.Contains(t, string(page.Body), "<h2>Shifts per person</h2>")

	text, err := svc.Export(context.Background(), Params{Format: FormatText, Start: "2026-03-02", End: "2026-03-03"})
	require.NoError(t, err)
	assert.Contains(t, string(text.Body), "2026-03-03 (Tuesday)")
	assert.Contains(t, string(text.Body), "Night    22:00-06:00  Ana")
}

func TestExportEmptyRange(t *testing.T) {
	svc := newTestService(t, &memoryShifts{})

	text, err := svc.Export(context.Background(), Params{Format: FormatText})
	require.NoError(t, err)
	assert.Contains(t, string(text.Body), "No shifts scheduled.")
}

func TestExportValidation(t *testing.T) {
	svc := newTestService(t, seeded())

	cases := map[string]Params{
		"format":   {Format: "pdf"},
		"start":    {Format: FormatCSV, Start: "03/02/2026"},
		"reversed": {Format: FormatCSV, Start: "2026-03-05", End: "2026-03-01"},
		"too long": {Format: FormatCSV, Start: "2026-01-01", End: "2026-06-01"},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Export(context.Background(), params)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestExportStoreFailure(t *testing.T) {
	svc := newTestService(t, &memoryShifts{err: errors.New("unavailable")})

	_, err := svc.Export(context.Background(), Params{Format: FormatCSV})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}
