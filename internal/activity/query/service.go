package query

import (
	"context"
	"fmt"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/angelmondragon/socshift-backend/pkg/bigquery"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

const (
	// MaxDays bounds the analytics lookback.
	MaxDays = 90

	dailyCountsSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  activity_type,
  COUNT(*) AS value
FROM %s
WHERE occurred_at BETWEEN @start AND @end
GROUP BY day, activity_type
ORDER BY day ASC, activity_type ASC
`
)

// DayCounts is the number of activity events per type for one day.
type DayCounts struct {
	Date   string           `json:"date"`
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

// ActivityReport aggregates activity counts over a lookback window.
type ActivityReport struct {
	Start  time.Time        `json:"start"`
	End    time.Time        `json:"end"`
	Days   []DayCounts      `json:"days"`
	Totals map[string]int64 `json:"totals"`
}

// Service reads activity analytics from BigQuery.
type Service interface {
	DailyCounts(ctx context.Context, days int) (*ActivityReport, error)
}

type rowReader interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (*cloudbigquery.RowIterator, error)
}

type service struct {
	client   rowReader
	tableRef string
	now      func() time.Time
}

// NewService builds the analytics reader for project.dataset.table.
func NewService(client *bigquery.Client, project, dataset, table string) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if project == "" || dataset == "" || table == "" {
		return nil, fmt.Errorf("project, dataset, and table are required")
	}
	return &service{
		client:   client,
		tableRef: TableRef(project, dataset, table),
		now:      time.Now,
	}, nil
}

// TableRef quotes a fully qualified table name for standard SQL.
func TableRef(project, dataset, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", project, dataset, table)
}

// Window returns the [start, end] range covering the last days days.
func Window(now time.Time, days int) (time.Time, time.Time, error) {
	if days < 1 || days > MaxDays {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("days must be between 1 and %d", MaxDays))
	}
	end := now.UTC()
	y, m, d := end.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
	return start, end, nil
}

func (s *service) DailyCounts(ctx context.Context, days int) (*ActivityReport, error) {
	start, end, err := Window(s.now(), days)
	if err != nil {
		return nil, err
	}

	iter, err := s.client.Query(ctx, fmt.Sprintf(dailyCountsSQL, s.tableRef), []cloudbigquery.QueryParameter{
		{Name: "start", Value: start},
		{Name: "end", Value: end},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query activity counts")
	}

	report := &ActivityReport{Start: start, End: end, Days: []DayCounts{}, Totals: map[string]int64{}}
	index := map[string]int{}
	for {
		var row struct {
			Day          string `bigquery:"day"`
			ActivityType string `bigquery:"activity_type"`
			Value        int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read activity counts")
		}
		Accumulate(report, index, row.Day, row.ActivityType, row.Value)
	}
	return report, nil
}

// Accumulate folds one (day, type, count) row into report, keeping days in arrival order.
func Accumulate(report *ActivityReport, index map[string]int, day, activityType string, value int64) {
	pos, ok := index[day]
	if !ok {
		report.Days = append(report.Days, DayCounts{Date: day, Counts: map[string]int64{}})
		pos = len(report.Days) - 1
		index[day] = pos
	}
	report.Days[pos].Counts[activityType] += value
	report.Days[pos].Total += value
	report.Totals[activityType] += value
}
