package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSProvider implements Provider on top of Google Cloud Storage.
type GCSProvider struct {
	Client     *gcs.Client
	BucketName string
	Logger     *zap.Logger
}

// NewGCSProvider wraps an existing GCS client and verifies that the bucket is
// reachable, failing fast on startup if the configuration is wrong.
// Authentication is handled by Application Default Credentials on the client.
func NewGCSProvider(ctx context.Context, client *gcs.Client, bucketName string, logger *zap.Logger) (*GCSProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucketName == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := client.Bucket(bucketName).Attrs(ctx); err != nil {
		return nil, fmt.Errorf("get attributes of bucket %q: %w", bucketName, err)
	}

	return &GCSProvider{
		Client:     client,
		BucketName: bucketName,
		Logger:     logger,
	}, nil
}

// Save uploads data to the given object in the bucket and returns a gs:// URI.
func (g *GCSProvider) Save(ctx context.Context, object string, data []byte) (string, error) {
	wc := g.Client.Bucket(g.BucketName).Object(object).NewWriter(ctx)
	wc.ContentType = "application/json"

	if _, err := wc.Write(data); err != nil {
		if closeErr := wc.Close(); closeErr != nil {
			g.Logger.Warn("close gcs writer after failed write", zap.Error(closeErr))
		}
		return "", fmt.Errorf("write object %s: %w", object, err)
	}
	// Close finalizes the upload and flushes buffered data.
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("close gcs writer for object %s: %w", object, err)
	}

	return fmt.Sprintf("gs://%s/%s", g.BucketName, object), nil
}

// Load downloads the full contents of the given object.
func (g *GCSProvider) Load(ctx context.Context, object string) ([]byte, error) {
	rc, err := g.Client.Bucket(g.BucketName).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open object %s: %w", object, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			g.Logger.Warn("close gcs reader", zap.Error(closeErr))
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", object, err)
	}
	return data, nil
}
