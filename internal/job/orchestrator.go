// Package job implements the trigger orchestration pipeline: decode the
// trigger, resolve a source, debounce, fetch the report, persist it and load
// it into the warehouse.
package job

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/perfwatch/pagespeed-pipeline/internal/audit"
	"github.com/perfwatch/pagespeed-pipeline/internal/debounce"
	"github.com/perfwatch/pagespeed-pipeline/internal/history"
	"github.com/perfwatch/pagespeed-pipeline/internal/metrics"
	"github.com/perfwatch/pagespeed-pipeline/internal/report"
	"github.com/perfwatch/pagespeed-pipeline/internal/storage"
	"github.com/perfwatch/pagespeed-pipeline/internal/warehouse"
)

// triggerAll is the trigger payload that fans out one message per source.
const triggerAll = "all"

// Outcome is the terminal state of one invocation.
type Outcome string

// Terminal outcomes.
const (
	OutcomeLoaded    Outcome = "loaded"
	OutcomeFanout    Outcome = "fanout"
	OutcomeDebounced Outcome = "debounced"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeError     Outcome = "error"
)

// Broadcaster publishes one trigger per source id.
type Broadcaster interface {
	Broadcast(ctx context.Context, sourceIDs []string) error
}

// Orchestrator runs one trigger invocation to completion. It holds no state
// across invocations; everything durable lives in blob storage.
type Orchestrator struct {
	sources  map[string]audit.Source
	order    []string
	debounce *debounce.Store
	fetcher  audit.Fetcher
	writer   *report.Writer
	fanout   Broadcaster
	blobs    storage.Provider
	loader   audit.Loader
	history  history.Provider
	idGen    audit.IDGenerator
	clock    audit.Clock
	logger   *zap.Logger
}

// New constructs an Orchestrator.
func New(
	sources []audit.Source,
	debounceStore *debounce.Store,
	fetcher audit.Fetcher,
	writer *report.Writer,
	fanout Broadcaster,
	blobs storage.Provider,
	loader audit.Loader,
	runs history.Provider,
	idGen audit.IDGenerator,
	clock audit.Clock,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if runs == nil {
		runs = &history.NoOpProvider{}
	}

	byID := make(map[string]audit.Source, len(sources))
	order := make([]string, 0, len(sources))
	for _, src := range sources {
		byID[src.ID] = src
		order = append(order, src.ID)
	}

	return &Orchestrator{
		sources:  byID,
		order:    order,
		debounce: debounceStore,
		fetcher:  fetcher,
		writer:   writer,
		fanout:   fanout,
		blobs:    blobs,
		loader:   loader,
		history:  runs,
		idGen:    idGen,
		clock:    clock,
		logger:   logger,
	}, nil
}

// Handle processes one decoded trigger payload to completion. Errors never
// escape: every failure is logged here and the invocation ends. Redelivery,
// if any, is the upstream trigger system's concern.
func (o *Orchestrator) Handle(ctx context.Context, payload []byte) Outcome {
	outcome, err := o.run(ctx, payload)
	if err != nil {
		o.logger.Error("invocation failed", zap.Error(err))
		outcome = OutcomeError
	}
	metrics.ObserveTrigger(string(outcome))
	return outcome
}

func (o *Orchestrator) run(ctx context.Context, payload []byte) (Outcome, error) {
	message := string(payload)

	if message == triggerAll {
		o.logger.Info("fan-out trigger received", zap.Int("sources", len(o.order)))
		if err := o.fanout.Broadcast(ctx, o.order); err != nil {
			return OutcomeFanout, fmt.Errorf("fan out triggers: %w", err)
		}
		return OutcomeFanout, nil
	}

	src, ok := o.sources[message]
	if !ok {
		o.logger.Error("No valid message found!", zap.String("message", message))
		return OutcomeInvalid, nil
	}

	startedAt := o.clock.Now()
	res, err := o.debounce.CheckAndRecord(ctx, src.ID, src.Strategy, startedAt)
	if err != nil {
		return OutcomeError, fmt.Errorf("debounce check for %s: %w", src.ID, err)
	}
	if res.Active {
		o.logger.Info("trigger debounced",
			zap.String("source_id", src.ID),
			zap.Int64("elapsed_seconds", res.DeltaSeconds()),
			zap.Duration("min_interval", o.debounce.MinInterval()))
		metrics.ObserveDebounce(src.ID)
		o.recordRun(ctx, "", src, OutcomeDebounced, startedAt)
		return OutcomeDebounced, nil
	}

	rep, err := o.fetcher.Fetch(ctx, src)
	if err != nil {
		return OutcomeError, fmt.Errorf("fetch report for %s: %w", src.ID, err)
	}
	metrics.ObserveAudit(src.ID, string(src.Strategy))

	if err := o.writer.Persist(ctx, rep); err != nil {
		return OutcomeError, fmt.Errorf("persist report for %s: %w", src.ID, err)
	}

	jobID, err := o.idGen.NewID()
	if err != nil {
		return OutcomeError, fmt.Errorf("generate job id: %w", err)
	}
	rep.JobID = jobID

	rows := warehouse.Rows(rep)
	data, err := report.ToNDJSON(rows)
	if err != nil {
		return OutcomeError, fmt.Errorf("encode warehouse rows: %w", err)
	}
	scratch := fmt.Sprintf("scratch/%s.ndjson", jobID)
	uri, err := o.blobs.Save(ctx, scratch, data)
	if err != nil {
		return OutcomeError, fmt.Errorf("save scratch object: %w", err)
	}

	if err := o.loader.Load(ctx, jobID, uri); err != nil {
		return OutcomeError, fmt.Errorf("load warehouse rows for %s: %w", src.ID, err)
	}

	o.logger.Info("invocation complete",
		zap.String("source_id", src.ID),
		zap.String("job_id", jobID),
		zap.Int("rows", len(rows)))
	o.recordRun(ctx, jobID, src, OutcomeLoaded, startedAt)
	return OutcomeLoaded, nil
}

// recordRun persists run history on a best-effort basis; the pipeline outcome
// never depends on it.
func (o *Orchestrator) recordRun(ctx context.Context, jobID string, src audit.Source, outcome Outcome, startedAt time.Time) {
	err := o.history.RecordRun(ctx, history.Run{
		JobID:     jobID,
		SourceID:  src.ID,
		Strategy:  string(src.Strategy),
		Outcome:   string(outcome),
		StartedAt: startedAt,
	})
	if err != nil {
		o.logger.Warn("record run history failed", zap.String("source_id", src.ID), zap.Error(err))
	}
}
