// Package pagespeed implements the Report Fetcher against the Google
// PageSpeed Insights v5 API.
package pagespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/perfwatch/pagespeed-pipeline/internal/audit"
)

const defaultEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Config controls the PageSpeed client.
type Config struct {
	// Endpoint overrides the PageSpeed API URL, mainly for tests.
	Endpoint string
	// APIKey is optional; unauthenticated calls are rate-limited by Google.
	APIKey  string
	Timeout time.Duration
}

// Client calls the PageSpeed Insights API. There are no retries: API errors
// propagate to the caller and redelivery is the upstream trigger's job.
type Client struct {
	httpClient *http.Client
	cfg        Config
	clock      audit.Clock
	logger     *zap.Logger
}

// New creates a Client.
func New(cfg Config, clock audit.Clock, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		clock:      clock,
		logger:     logger,
	}
}

// apiResponse captures the fields of the PageSpeed result the pipeline reads;
// the full body is kept verbatim on the report.
type apiResponse struct {
	AnalysisUTCTimestamp string `json:"analysisUTCTimestamp"`
	LighthouseResult     struct {
		Categories map[string]struct {
			Score float64 `json:"score"`
		} `json:"categories"`
	} `json:"lighthouseResult"`
}

// Fetch runs an audit for the source and returns the report annotated with
// the source id, url and strategy. Categories default to the API's own
// default set when the source configures none.
func (c *Client) Fetch(ctx context.Context, src audit.Source) (*audit.Report, error) {
	reqURL, err := c.buildURL(src)
	if err != nil {
		return nil, err
	}

	c.logger.Info("requesting pagespeed report",
		zap.String("source_id", src.ID),
		zap.String("url", src.URL),
		zap.String("strategy", string(src.Strategy)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build pagespeed request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call pagespeed api: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("close pagespeed response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pagespeed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pagespeed api returned status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode pagespeed response: %w", err)
	}

	fetchedAt := c.clock.Now()
	if ts, err := time.Parse(time.RFC3339, parsed.AnalysisUTCTimestamp); err == nil {
		fetchedAt = ts
	}

	scores := make(map[string]float64, len(parsed.LighthouseResult.Categories))
	for name, cat := range parsed.LighthouseResult.Categories {
		scores[name] = cat.Score
	}

	c.logger.Info("received pagespeed report",
		zap.String("source_id", src.ID),
		zap.Time("analysis_ts", fetchedAt))

	return &audit.Report{
		SourceID:   src.ID,
		URL:        src.URL,
		Strategy:   src.Strategy,
		FetchedAt:  fetchedAt,
		Categories: scores,
		Result:     json.RawMessage(body),
	}, nil
}

func (c *Client) buildURL(src audit.Source) (string, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse pagespeed endpoint: %w", err)
	}
	q := u.Query()
	q.Set("url", src.URL)
	q.Set("strategy", string(src.Strategy))
	for _, category := range src.Categories {
		q.Add("category", category)
	}
	if c.cfg.APIKey != "" {
		q.Set("key", c.cfg.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
