package audit

import (
	"context"
	"time"
)

// Fetcher runs an audit for a single source and returns the annotated report.
type Fetcher interface {
	Fetch(ctx context.Context, src Source) (*Report, error)
}

// Loader submits a warehouse load job for a newline-delimited scratch object,
// keyed by the generated job id.
type Loader interface {
	Load(ctx context.Context, jobID, scratchURI string) error
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator creates unique job identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
