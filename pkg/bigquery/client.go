package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/socshift-backend/pkg/config"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Client is the warehouse side of the activity log: the activity worker
// streams rows in and the analytics endpoint reads daily counts out.
type Client struct {
	bq             *bigquery.Client
	dataset        *bigquery.Dataset
	projectID      string
	activityTable  string
	maxBytesBilled int64
	logg           *logger.Logger
}

// TableSpec describes a table EnsureTable may create.
type TableSpec struct {
	Name   string
	Schema bigquery.Schema
	// PartitionField is a TIMESTAMP or DATE column; empty disables partitioning.
	PartitionField string
	Clustering     []string
}

// NewClient connects and fails fast when the dataset is missing. The
// activity table is only checked by Ping since the worker creates it.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	datasetID := strings.TrimSpace(cfg.Dataset)
	table := strings.TrimSpace(cfg.ActivityTable)
	switch {
	case projectID == "":
		return nil, errProjectIDRequired
	case datasetID == "":
		return nil, errDatasetRequired
	case table == "":
		return nil, errTableNameRequired
	}

	bq, err := bigquery.NewClient(ctx, projectID, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{
		bq:             bq,
		dataset:        bq.Dataset(datasetID),
		projectID:      projectID,
		activityTable:  table,
		maxBytesBilled: max(cfg.MaxBytesBilled, 0),
		logg:           logg,
	}

	checkCtx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	if _, err := c.dataset.Metadata(checkCtx); err != nil {
		_ = bq.Close()
		if hasStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("dataset %s.%s does not exist", projectID, datasetID)
		}
		return nil, fmt.Errorf("checking dataset %s: %w", datasetID, err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": datasetID, "table": table}), "bigquery client initialized")
	}
	return c, nil
}

// EnsureTable creates spec.Name when it is missing. An existing table is
// left alone even if its schema has drifted.
func (c *Client) EnsureTable(ctx context.Context, spec TableSpec) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return errTableNameRequired
	}

	table := c.dataset.Table(name)
	_, err := table.Metadata(ctx)
	switch {
	case err == nil:
		return nil
	case !hasStatus(err, http.StatusNotFound):
		return fmt.Errorf("checking table %s: %w", name, err)
	}

	// Two workers starting together both see 404; the loser gets 409.
	if err := table.Create(ctx, tableMetadata(spec)); err != nil && !hasStatus(err, http.StatusConflict) {
		return fmt.Errorf("creating table %s: %w", name, err)
	}
	if c.logg != nil {
		c.logg.Info(c.logg.WithField(ctx, "table", name), "bigquery table ensured")
	}
	return nil
}

func tableMetadata(spec TableSpec) *bigquery.TableMetadata {
	meta := &bigquery.TableMetadata{Schema: spec.Schema}
	if spec.PartitionField != "" {
		meta.TimePartitioning = &bigquery.TimePartitioning{Type: bigquery.DayPartitioningType, Field: spec.PartitionField}
	}
	if len(spec.Clustering) > 0 {
		meta.Clustering = &bigquery.Clustering{Fields: spec.Clustering}
	}
	return meta
}

// Ping is the readiness check: the dataset and the activity table must answer.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	if _, err := c.dataset.Metadata(ctx); err != nil {
		return fmt.Errorf("checking dataset %s: %w", c.dataset.DatasetID, err)
	}
	if _, err := c.dataset.Table(c.activityTable).Metadata(ctx); err != nil {
		return fmt.Errorf("checking table %s: %w", c.activityTable, err)
	}
	return nil
}

// InsertRows streams rows into a table of the configured dataset. Rows may
// be structs or bigquery.ValueSaver values carrying their own insert id.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	if table = strings.TrimSpace(table); table == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

// Query runs a parameterized standard SQL statement under the configured
// bytes-billed cap.
func (c *Client) Query(ctx context.Context, sql string, params []bigquery.QueryParameter) (*bigquery.RowIterator, error) {
	if c == nil || c.bq == nil {
		return nil, errClientNotInitialized
	}
	if strings.TrimSpace(sql) == "" {
		return nil, errors.New("sql query is required")
	}
	q := c.bq.Query(sql)
	q.Parameters = params
	q.MaxBytesBilled = c.maxBytesBilled
	q.Labels = map[string]string{"service": "socshift", "dataset": strings.ToLower(c.dataset.DatasetID)}
	return q.Read(ctx)
}

func (c *Client) ProjectID() string {
	if c == nil {
		return ""
	}
	return c.projectID
}

func (c *Client) DatasetID() string {
	if c == nil || c.dataset == nil {
		return ""
	}
	return c.dataset.DatasetID
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func hasStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
