package job_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/perfwatch/pagespeed-pipeline/internal/audit"
	"github.com/perfwatch/pagespeed-pipeline/internal/debounce"
	"github.com/perfwatch/pagespeed-pipeline/internal/job"
	"github.com/perfwatch/pagespeed-pipeline/internal/report"
	"github.com/perfwatch/pagespeed-pipeline/internal/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixedIDGen struct{ id string }

func (g fixedIDGen) NewID() (string, error) { return g.id, nil }

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, src audit.Source) (*audit.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, src.ID)
	if f.err != nil {
		return nil, f.err
	}
	return &audit.Report{
		SourceID:   src.ID,
		URL:        src.URL,
		Strategy:   src.Strategy,
		FetchedAt:  time.UnixMilli(1700000000000),
		Categories: map[string]float64{"performance": 0.9},
		Result:     json.RawMessage(`{}`),
	}, nil
}

type fakeLoader struct {
	jobIDs []string
	uris   []string
	err    error
}

func (l *fakeLoader) Load(_ context.Context, jobID, uri string) error {
	l.jobIDs = append(l.jobIDs, jobID)
	l.uris = append(l.uris, uri)
	return l.err
}

type fakeBroadcaster struct {
	ids [][]string
	err error
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, sourceIDs []string) error {
	b.ids = append(b.ids, sourceIDs)
	return b.err
}

type fixture struct {
	orch    *job.Orchestrator
	blobs   *memory.BlobStore
	fetcher *fakeFetcher
	loader  *fakeLoader
	fanout  *fakeBroadcaster
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	blobs := memory.NewBlobStore()
	store, err := debounce.New(blobs, debounce.Config{MinInterval: 5 * time.Minute}, logger)
	require.NoError(t, err)

	writer, err := report.NewWriter(blobs, []report.Format{report.FormatJSON}, logger)
	require.NoError(t, err)

	sources := []audit.Source{
		{ID: "homepage", URL: "https://example.com", Strategy: audit.StrategyMobile},
		{ID: "pricing", URL: "https://example.com/pricing", Strategy: audit.StrategyDesktop},
	}

	f := &fixture{
		blobs:   blobs,
		fetcher: &fakeFetcher{},
		loader:  &fakeLoader{},
		fanout:  &fakeBroadcaster{},
		logs:    logs,
	}
	f.orch, err = job.New(
		sources,
		store,
		f.fetcher,
		writer,
		f.fanout,
		blobs,
		f.loader,
		nil,
		fixedIDGen{id: "job-1"},
		fixedClock{now: time.Unix(1700000000, 0)},
		logger,
	)
	require.NoError(t, err)
	return f
}

func TestHandleInvalidMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	outcome := f.orch.Handle(context.Background(), []byte("invalid_message"))

	assert.Equal(t, job.OutcomeInvalid, outcome)
	assert.Empty(t, f.fetcher.calls)
	assert.Empty(t, f.loader.jobIDs)
	assert.Empty(t, f.fanout.ids)
	assert.Equal(t, 0, f.blobs.Len(), "no state may be written for invalid triggers")

	entries := f.logs.FilterMessage("No valid message found!").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
}

func TestHandleAllFansOut(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	outcome := f.orch.Handle(context.Background(), []byte("all"))

	assert.Equal(t, job.OutcomeFanout, outcome)
	require.Len(t, f.fanout.ids, 1)
	assert.Equal(t, []string{"homepage", "pricing"}, f.fanout.ids[0])
	// Fan-out terminates the invocation; nothing else runs.
	assert.Empty(t, f.fetcher.calls)
	assert.Empty(t, f.loader.jobIDs)
}

func TestHandleHappyPathLoads(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	outcome := f.orch.Handle(context.Background(), []byte("homepage"))

	assert.Equal(t, job.OutcomeLoaded, outcome)
	assert.Equal(t, []string{"homepage"}, f.fetcher.calls)
	assert.Equal(t, []string{"job-1"}, f.loader.jobIDs)
	require.Len(t, f.loader.uris, 1)
	assert.Equal(t, "memory://scratch/job-1.ndjson", f.loader.uris[0])

	// State blob, report, log and scratch objects all land.
	assert.ElementsMatch(t, []string{
		"homepage/mobile/state.json",
		"homepage/mobile/report_1700000000000.json",
		"homepage/mobile/log_1700000000000.json",
		"scratch/job-1.ndjson",
	}, f.blobs.Objects())

	// The scratch object carries the generated job id on every row.
	data, err := f.blobs.Load(context.Background(), "scratch/job-1.ndjson")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"job_id":"job-1"`)
}

func TestHandleDebouncedSecondTrigger(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.Equal(t, job.OutcomeLoaded, f.orch.Handle(context.Background(), []byte("homepage")))

	outcome := f.orch.Handle(context.Background(), []byte("homepage"))
	assert.Equal(t, job.OutcomeDebounced, outcome)
	// Only the first trigger reached downstream.
	assert.Equal(t, []string{"homepage"}, f.fetcher.calls)
	assert.Equal(t, []string{"job-1"}, f.loader.jobIDs)

	require.Len(t, f.logs.FilterMessage("trigger debounced").All(), 1)
}

func TestHandleSwallowsFetchErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fetcher.err = fmt.Errorf("pagespeed unavailable")

	outcome := f.orch.Handle(context.Background(), []byte("homepage"))
	assert.Equal(t, job.OutcomeError, outcome)
	assert.Empty(t, f.loader.jobIDs)

	entries := f.logs.FilterMessage("invocation failed").All()
	require.Len(t, entries, 1)
}

func TestHandleSwallowsLoadErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.loader.err = fmt.Errorf("dataset missing")

	outcome := f.orch.Handle(context.Background(), []byte("homepage"))
	assert.Equal(t, job.OutcomeError, outcome)
	require.Len(t, f.logs.FilterMessage("invocation failed").All(), 1)
}

func TestHandleFanoutErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fanout.err = fmt.Errorf("topic gone")

	outcome := f.orch.Handle(context.Background(), []byte("all"))
	assert.Equal(t, job.OutcomeError, outcome)
	require.Len(t, f.logs.FilterMessage("invocation failed").All(), 1)
}
