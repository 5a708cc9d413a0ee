// Package audit defines the core domain types and collaborator interfaces
// for the page audit pipeline.
package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// Strategy is the emulated device profile used for an audit.
type Strategy string

// Supported audit strategies.
const (
	StrategyMobile  Strategy = "mobile"
	StrategyDesktop Strategy = "desktop"
)

// ParseStrategy validates and normalizes a strategy string.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyMobile:
		return StrategyMobile, nil
	case StrategyDesktop:
		return StrategyDesktop, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}

// Source is one configured page to audit. Sources are immutable and loaded
// from configuration at process start.
type Source struct {
	ID         string
	URL        string
	Strategy   Strategy
	Categories []string
}

// Report is the result of one audit call, annotated with the source it was
// run for. JobID is attached by the orchestrator just before the warehouse
// load.
type Report struct {
	SourceID   string             `json:"sourceId"`
	URL        string             `json:"url"`
	Strategy   Strategy           `json:"strategy"`
	FetchedAt  time.Time          `json:"fetchedAt"`
	Categories map[string]float64 `json:"categories"`
	Result     json.RawMessage    `json:"result"`
	JobID      string             `json:"jobId,omitempty"`
}
