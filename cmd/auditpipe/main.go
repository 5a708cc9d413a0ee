// Package main wires together the audit pipeline service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/perfwatch/pagespeed-pipeline/internal/api"
	"github.com/perfwatch/pagespeed-pipeline/internal/clock/system"
	"github.com/perfwatch/pagespeed-pipeline/internal/config"
	"github.com/perfwatch/pagespeed-pipeline/internal/debounce"
	"github.com/perfwatch/pagespeed-pipeline/internal/history"
	"github.com/perfwatch/pagespeed-pipeline/internal/id/uuid"
	"github.com/perfwatch/pagespeed-pipeline/internal/job"
	"github.com/perfwatch/pagespeed-pipeline/internal/logging"
	"github.com/perfwatch/pagespeed-pipeline/internal/metrics"
	"github.com/perfwatch/pagespeed-pipeline/internal/pagespeed"
	"github.com/perfwatch/pagespeed-pipeline/internal/publisher"
	"github.com/perfwatch/pagespeed-pipeline/internal/report"
	"github.com/perfwatch/pagespeed-pipeline/internal/storage"
	"github.com/perfwatch/pagespeed-pipeline/internal/warehouse"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	metrics.Init()

	gcsClient, err := gcs.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create gcs client: %w", err)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logger.Warn("close gcs client", zap.Error(err))
		}
	}()
	blobs, err := storage.NewGCSProvider(ctx, gcsClient, cfg.GCS.BucketName, logger)
	if err != nil {
		return fmt.Errorf("init blob storage: %w", err)
	}

	psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return fmt.Errorf("create pubsub client: %w", err)
	}
	defer func() {
		if err := psClient.Close(); err != nil {
			logger.Warn("close pubsub client", zap.Error(err))
		}
	}()
	pub, err := publisher.NewPubSubProvider(ctx, psClient, cfg.PubSub.TopicID)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("close publisher", zap.Error(err))
		}
	}()
	fanout, err := publisher.NewFanout(pub, logger)
	if err != nil {
		return fmt.Errorf("init fanout: %w", err)
	}

	bqClient, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return fmt.Errorf("create bigquery client: %w", err)
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logger.Warn("close bigquery client", zap.Error(err))
		}
	}()
	loader, err := warehouse.NewBigQueryLoader(bqClient, warehouse.Config{
		DatasetID: cfg.BigQuery.DatasetID,
		Table:     cfg.BigQuery.Table,
	}, logger)
	if err != nil {
		return fmt.Errorf("init warehouse loader: %w", err)
	}

	debounceStore, err := debounce.New(blobs, debounce.Config{MinInterval: cfg.MinInterval()}, logger)
	if err != nil {
		return fmt.Errorf("init debounce store: %w", err)
	}

	clock := system.New()
	fetcher := pagespeed.New(pagespeed.Config{
		Endpoint: cfg.PageSpeed.Endpoint,
		APIKey:   cfg.PageSpeed.APIKey,
		Timeout:  cfg.PageSpeedTimeout(),
	}, clock, logger)

	formats, err := report.ParseFormats(cfg.Output.Formats)
	if err != nil {
		return fmt.Errorf("parse output formats: %w", err)
	}
	writer, err := report.NewWriter(blobs, formats, logger)
	if err != nil {
		return fmt.Errorf("init report writer: %w", err)
	}

	runs, err := newHistoryProvider(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init run history: %w", err)
	}
	defer func() {
		if err := runs.Close(); err != nil {
			logger.Warn("close run history", zap.Error(err))
		}
	}()

	orchestrator, err := job.New(
		cfg.AuditSources(),
		debounceStore,
		fetcher,
		writer,
		fanout,
		blobs,
		loader,
		runs,
		uuid.New(),
		clock,
		logger,
	)
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	apiCfg := api.Config{}
	if cfg.Auth.Enabled {
		apiCfg.APIKey = cfg.Auth.APIKey
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(orchestrator, apiCfg, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening for triggers", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func newHistoryProvider(ctx context.Context, cfg config.Config, logger *zap.Logger) (history.Provider, error) {
	switch cfg.Database.Provider {
	case "postgres":
		logger.Info("using postgres run history", zap.String("table", cfg.Database.Table))
		return history.NewPostgresProvider(ctx, history.PostgresConfig{
			DSN:   cfg.Database.DSN,
			Table: cfg.Database.Table,
		})
	case "noop":
		logger.Info("run history disabled")
		return &history.NoOpProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown database provider %q", cfg.Database.Provider)
	}
}
