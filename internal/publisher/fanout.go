package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/perfwatch/pagespeed-pipeline/internal/metrics"
)

// Fanout broadcasts one trigger message per source id to the configured
// topic.
type Fanout struct {
	pub    Provider
	logger *zap.Logger
}

// NewFanout creates a Fanout over the given publisher.
func NewFanout(pub Provider, logger *zap.Logger) (*Fanout, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{pub: pub, logger: logger}, nil
}

// Broadcast publishes one message containing the raw id bytes per source id.
// All publishes run concurrently and Broadcast returns only after every one
// has settled; a failed publish does not cancel the others, its error is
// joined into the returned error.
func (f *Fanout) Broadcast(ctx context.Context, sourceIDs []string) error {
	errs := make([]error, len(sourceIDs))
	var wg sync.WaitGroup
	for i, id := range sourceIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			f.logger.Info("publishing trigger", zap.String("source_id", id))
			if err := f.pub.Publish(ctx, []byte(id)); err != nil {
				errs[i] = fmt.Errorf("publish trigger for %s: %w", id, err)
				metrics.ObservePublish("error")
				f.logger.Error("publish trigger failed", zap.String("source_id", id), zap.Error(err))
				return
			}
			metrics.ObservePublish("ok")
			f.logger.Info("trigger published", zap.String("source_id", id))
		}(i, id)
	}
	wg.Wait()
	return errors.Join(errs...)
}
