// Package report persists audit reports to blob storage and encodes the
// newline-delimited load format for the warehouse.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/perfwatch/pagespeed-pipeline/internal/audit"
	"github.com/perfwatch/pagespeed-pipeline/internal/storage"
)

// Format is a configured report output format.
type Format string

// Known output formats. Only JSON has a handler; the others parse so that
// configs carrying them keep validating, but Persist reports them as
// unsupported instead of silently skipping.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// ErrUnsupportedFormat marks a configured format that has no handler.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// ParseFormats validates a configured output format list.
func ParseFormats(raw []string) ([]Format, error) {
	formats := make([]Format, 0, len(raw))
	for _, s := range raw {
		switch Format(s) {
		case FormatJSON, FormatCSV, FormatHTML:
			formats = append(formats, Format(s))
		default:
			return nil, fmt.Errorf("unknown output format %q", s)
		}
	}
	return formats, nil
}

// Writer persists report and log objects for each audit.
type Writer struct {
	blobs   storage.Provider
	formats []Format
	logger  *zap.Logger
}

// NewWriter creates a Writer for the configured output formats.
func NewWriter(blobs storage.Provider, formats []Format, logger *zap.Logger) (*Writer, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{blobs: blobs, formats: formats, logger: logger}, nil
}

// Persist writes one object per configured format under
// {sourceId}/{strategy}/report_{ts}.json, then always writes a
// {sourceId}/{strategy}/log_{ts}.json object containing the full report.
// Formats without a handler are logged as unsupported and skipped. Partial
// writes are not rolled back.
func (w *Writer) Persist(ctx context.Context, rep *audit.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	ts := rep.FetchedAt.UnixMilli()
	for _, format := range w.formats {
		switch format {
		case FormatJSON:
			object := fmt.Sprintf("%s/%s/report_%d.json", rep.SourceID, rep.Strategy, ts)
			uri, err := w.blobs.Save(ctx, object, data)
			if err != nil {
				return fmt.Errorf("save report object: %w", err)
			}
			w.logger.Info("report written", zap.String("uri", uri))
		default:
			w.logger.Warn("skipping output format",
				zap.String("format", string(format)),
				zap.Error(ErrUnsupportedFormat))
		}
	}

	object := fmt.Sprintf("%s/%s/log_%d.json", rep.SourceID, rep.Strategy, ts)
	uri, err := w.blobs.Save(ctx, object, data)
	if err != nil {
		return fmt.Errorf("save log object: %w", err)
	}
	w.logger.Info("log written", zap.String("uri", uri))
	return nil
}
