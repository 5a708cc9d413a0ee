// Package warehouse loads audit rows into the analytical warehouse table.
package warehouse

import (
	"sort"
	"time"

	"github.com/perfwatch/pagespeed-pipeline/internal/audit"
)

// Row is one warehouse record: a single category score for one audit run.
// Field tags match the fixed schema of the reports table.
type Row struct {
	JobID     string    `json:"job_id"`
	SourceID  string    `json:"source_id"`
	URL       string    `json:"url"`
	Strategy  string    `json:"strategy"`
	Category  string    `json:"category"`
	Score     float64   `json:"score"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Rows flattens a report into warehouse rows, one per audited category,
// in deterministic category order.
func Rows(rep *audit.Report) []Row {
	categories := make([]string, 0, len(rep.Categories))
	for name := range rep.Categories {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	rows := make([]Row, 0, len(categories))
	for _, name := range categories {
		rows = append(rows, Row{
			JobID:     rep.JobID,
			SourceID:  rep.SourceID,
			URL:       rep.URL,
			Strategy:  string(rep.Strategy),
			Category:  name,
			Score:     rep.Categories[name],
			FetchedAt: rep.FetchedAt,
		})
	}
	return rows
}
