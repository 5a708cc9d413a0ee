package warehouse

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
)

const defaultTable = "reports"

// reportSchema is the fixed schema of the reports table.
var reportSchema = bigquery.Schema{
	{Name: "job_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "source_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "url", Type: bigquery.StringFieldType},
	{Name: "strategy", Type: bigquery.StringFieldType},
	{Name: "category", Type: bigquery.StringFieldType},
	{Name: "score", Type: bigquery.FloatFieldType},
	{Name: "fetched_at", Type: bigquery.TimestampFieldType},
}

// Config controls the BigQuery loader target.
type Config struct {
	DatasetID string
	Table     string
}

// BigQueryLoader submits load jobs appending newline-delimited scratch
// objects to the reports table.
type BigQueryLoader struct {
	client *bigquery.Client
	cfg    Config
	logger *zap.Logger
}

// NewBigQueryLoader wraps an existing BigQuery client.
func NewBigQueryLoader(client *bigquery.Client, cfg Config, logger *zap.Logger) (*BigQueryLoader, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client is required")
	}
	if cfg.DatasetID == "" {
		return nil, fmt.Errorf("dataset id is required")
	}
	if cfg.Table == "" {
		cfg.Table = defaultTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BigQueryLoader{client: client, cfg: cfg, logger: logger}, nil
}

// Load submits a load job for the given gs:// scratch object, keyed by the
// generated job id, and waits for it to finish.
func (l *BigQueryLoader) Load(ctx context.Context, jobID, scratchURI string) error {
	gcsRef := bigquery.NewGCSReference(scratchURI)
	gcsRef.SourceFormat = bigquery.JSON
	gcsRef.Schema = reportSchema

	loader := l.client.Dataset(l.cfg.DatasetID).Table(l.cfg.Table).LoaderFrom(gcsRef)
	loader.WriteDisposition = bigquery.WriteAppend
	loader.JobID = jobID

	l.logger.Info("submitting warehouse load job",
		zap.String("job_id", jobID),
		zap.String("uri", scratchURI),
		zap.String("table", l.cfg.Table))

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("submit load job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for load job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("load job failed: %w", err)
	}

	l.logger.Info("warehouse load job finished", zap.String("job_id", jobID))
	return nil
}
