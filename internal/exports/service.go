package exports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/socshift-backend/internal/shifts"
	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

// Supported formats.
const (
	FormatICS  = "ics"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatHTML = "html"
	FormatText = "txt"
)

// DefaultDays is the export length when no end date is given.
const DefaultDays = 7

// MaxDays bounds one export.
const MaxDays = 92

type format struct {
	contentType string
	write       func(io.Writer, Dataset) error
}

var formats = map[string]format{
	FormatICS:  {contentType: "text/calendar; charset=utf-8", write: WriteICS},
	FormatCSV:  {contentType: "text/csv; charset=utf-8", write: WriteCSV},
	FormatXLSX: {contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", write: WriteXLSX},
	FormatHTML: {contentType: "text/html; charset=utf-8", write: WriteHTML},
	FormatText: {contentType: "text/plain; charset=utf-8", write: WriteText},
}

type shiftLister interface {
	ListRange(ctx context.Context, from, to string) ([]models.Shift, error)
	ListByUser(ctx context.Context, userID, from, to string) ([]models.Shift, error)
}

type userLister interface {
	List(ctx context.Context) ([]models.User, error)
}

type configReader interface {
	Get(ctx context.Context) (models.ShiftConfiguration, error)
}

// Params selects what to export. Start defaults to today and End to six
// days after Start.
type Params struct {
	Format string
	Start  string
	End    string
	UserID string
}

// File is a rendered export.
type File struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Service renders exports.
type Service interface {
	Export(ctx context.Context, params Params) (*File, error)
}

type service struct {
	shifts shiftLister
	users  userLister
	config configReader
	loc    *time.Location
	now    func() time.Time
}

func NewService(shiftRepo shiftLister, users userLister, config configReader, loc *time.Location) (Service, error) {
	if shiftRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift repository required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user repository required")
	}
	if config == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift configuration required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &service{shifts: shiftRepo, users: users, config: config, loc: loc, now: time.Now}, nil
}

func (s *service) Export(ctx context.Context, params Params) (*File, error) {
	name := strings.ToLower(strings.TrimSpace(params.Format))
	f, ok := formats[name]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported export format %q", params.Format)).
			WithDetails(map[string]any{"supported": []string{FormatICS, FormatCSV, FormatXLSX, FormatHTML, FormatText}})
	}
	start, end, err := s.window(params.Start, params.End)
	if err != nil {
		return nil, err
	}

	var (
		rows  []models.Shift
		users []models.User
		cfg   models.ShiftConfiguration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if uid := strings.TrimSpace(params.UserID); uid != "" {
			rows, err = s.shifts.ListByUser(gctx, uid, start, end)
		} else {
			rows, err = s.shifts.ListRange(gctx, start, end)
		}
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.users.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		cfg, err = s.config.Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, mapStoreError(err, "load export data")
	}

	shifts.SortShifts(rows)
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	ds := Dataset{
		Start:       start,
		End:         end,
		Shifts:      rows,
		Users:       names,
		Config:      cfg,
		Location:    s.loc,
		GeneratedAt: s.now(),
	}

	var buf bytes.Buffer
	if err := f.write(&buf, ds); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render export")
	}
	return &File{
		Filename:    fmt.Sprintf("shifts_%s_%s.%s", start, end, name),
		ContentType: f.contentType,
		Body:        buf.Bytes(),
	}, nil
}

func (s *service) window(start, end string) (string, string, error) {
	if start == "" {
		start = dates.Today(s.now(), s.loc)
	}
	if !dates.Valid(start) {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "start must be YYYY-MM-DD")
	}
	if end == "" {
		end = dates.MustAddDays(start, DefaultDays-1)
	}
	days, err := dates.Between(start, end)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date range")
	}
	if len(days) > MaxDays {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("exports are limited to %d days", MaxDays))
	}
	return start, end, nil
}

func mapStoreError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, db.ErrSchemaMismatch) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action+": stored document is invalid")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
