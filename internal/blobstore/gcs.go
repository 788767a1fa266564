package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

// GCS keeps blobs in a Cloud Storage bucket.
type GCS struct {
	bucket *storage.BucketHandle
	logger *zap.Logger
}

func NewGCS(client *storage.Client, bucket string, logger *zap.Logger) *GCS {
	return &GCS{bucket: client.Bucket(bucket), logger: logger.With(zap.String("bucket", bucket))}
}

// Put writes the object only if it does not exist yet. A failed precondition
// means the content is already stored and is not an error.
func (g *GCS) Put(ctx context.Context, key string, data []byte) error {
	name, err := cleanKey(key)
	if err != nil {
		return err
	}

	w := g.bucket.Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		if isPreconditionFailed(err) {
			g.logger.Debug("object already exists", zap.String("object", name))
			return nil
		}
		return fmt.Errorf("write gcs object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			g.logger.Debug("object already exists", zap.String("object", name))
			return nil
		}
		return fmt.Errorf("finalize gcs object %s: %w", name, err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	r, err := g.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("open gcs object %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gcs object %s: %w", name, err)
	}
	return data, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
