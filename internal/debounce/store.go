// Package debounce decides whether a trigger for a source should be
// processed, based on the elapsed time since its last accepted trigger.
//
// State lives in durable storage as one small JSON blob per
// (source, strategy) pair. The check is a plain read-then-write with no lock
// or storage precondition: two near-simultaneous triggers for the same pair
// can both observe stale state and both proceed. That race is accepted.
package debounce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/perfwatch/pagespeed-pipeline/internal/audit"
	"github.com/perfwatch/pagespeed-pipeline/internal/storage"
)

// Config controls Store behavior.
type Config struct {
	// MinInterval is the minimum time between accepted triggers for the same
	// (source, strategy) pair.
	MinInterval time.Duration
}

// Store reads and writes per-source debounce state blobs.
type Store struct {
	blobs  storage.Provider
	cfg    Config
	logger *zap.Logger
}

// Result reports the outcome of a debounce check.
type Result struct {
	// Active means a prior trigger is still within the debounce window and
	// the invocation must abort.
	Active bool
	// Delta is the elapsed time since the last accepted trigger. Only set
	// when Active.
	Delta time.Duration
}

// DeltaSeconds returns the elapsed time rounded to whole seconds.
func (r Result) DeltaSeconds() int64 {
	return int64(r.Delta.Round(time.Second) / time.Second)
}

type stateRecord struct {
	CreatedAt int64 `json:"createdAt"`
}

// New creates a Store over the given blob provider.
func New(blobs storage.Provider, cfg Config, logger *zap.Logger) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob provider is required")
	}
	if cfg.MinInterval <= 0 {
		return nil, fmt.Errorf("min interval must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{blobs: blobs, cfg: cfg, logger: logger}, nil
}

// MinInterval reports the configured debounce window.
func (s *Store) MinInterval() time.Duration {
	return s.cfg.MinInterval
}

func statePath(sourceID string, strategy audit.Strategy) string {
	return fmt.Sprintf("%s/%s/state.json", sourceID, strategy)
}

// CheckAndRecord loads the state blob for (sourceID, strategy), reports
// whether the source is still inside the debounce window, and on the inactive
// path rewrites the blob with a fresh timestamp.
//
// Read failures, including a missing blob, are treated as a cold start.
// Write failures propagate and are fatal for the invocation.
func (s *Store) CheckAndRecord(ctx context.Context, sourceID string, strategy audit.Strategy, now time.Time) (Result, error) {
	path := statePath(sourceID, strategy)

	state := make(map[string]stateRecord)
	if data, err := s.blobs.Load(ctx, path); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("read debounce state failed, assuming cold start",
				zap.String("object", path), zap.Error(err))
		}
	} else if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("decode debounce state failed, assuming cold start",
			zap.String("object", path), zap.Error(err))
		state = make(map[string]stateRecord)
	}

	if rec, ok := state[sourceID]; ok {
		delta := now.Sub(time.UnixMilli(rec.CreatedAt))
		if delta < s.cfg.MinInterval {
			// Still inside the window; the original record is preserved.
			return Result{Active: true, Delta: delta}, nil
		}
	}

	state[sourceID] = stateRecord{CreatedAt: now.UnixMilli()}
	data, err := json.Marshal(state)
	if err != nil {
		return Result{}, fmt.Errorf("encode debounce state: %w", err)
	}
	if _, err := s.blobs.Save(ctx, path, data); err != nil {
		return Result{}, fmt.Errorf("save debounce state: %w", err)
	}
	return Result{}, nil
}
