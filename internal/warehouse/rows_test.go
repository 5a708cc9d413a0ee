package warehouse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfwatch/pagespeed-pipeline/internal/audit"
	"github.com/perfwatch/pagespeed-pipeline/internal/report"
	"github.com/perfwatch/pagespeed-pipeline/internal/warehouse"
)

func TestRowsFlattenCategories(t *testing.T) {
	t.Parallel()

	fetchedAt := time.Unix(1700000000, 0).UTC()
	rep := &audit.Report{
		SourceID:  "homepage",
		URL:       "https://example.com",
		Strategy:  audit.StrategyMobile,
		FetchedAt: fetchedAt,
		JobID:     "job-1",
		Categories: map[string]float64{
			"seo":         0.88,
			"performance": 0.92,
		},
	}

	rows := warehouse.Rows(rep)
	require.Len(t, rows, 2)

	// Deterministic category order.
	assert.Equal(t, "performance", rows[0].Category)
	assert.InDelta(t, 0.92, rows[0].Score, 1e-9)
	assert.Equal(t, "seo", rows[1].Category)

	for _, row := range rows {
		assert.Equal(t, "job-1", row.JobID)
		assert.Equal(t, "homepage", row.SourceID)
		assert.Equal(t, "https://example.com", row.URL)
		assert.Equal(t, "mobile", row.Strategy)
		assert.Equal(t, fetchedAt, row.FetchedAt)
	}
}

func TestRowsEncodeAsNDJSON(t *testing.T) {
	t.Parallel()

	rep := &audit.Report{
		SourceID:   "homepage",
		Strategy:   audit.StrategyDesktop,
		FetchedAt:  time.Unix(1700000000, 0).UTC(),
		JobID:      "job-1",
		Categories: map[string]float64{"performance": 1},
	}

	data, err := report.ToNDJSON(warehouse.Rows(rep))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"job_id": "job-1",
		"source_id": "homepage",
		"url": "",
		"strategy": "desktop",
		"category": "performance",
		"score": 1,
		"fetched_at": "2023-11-14T22:13:20Z"
	}`, string(data))
}

func TestRowsEmptyReport(t *testing.T) {
	t.Parallel()

	rows := warehouse.Rows(&audit.Report{SourceID: "homepage"})
	assert.Empty(t, rows)
}
