package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Store is a content-addressed blob store on top of a GCS bucket. Keys are
// derived from the content hash, so an object is immutable once written and
// a precondition conflict means the bytes are already there.
type Store struct {
	bucket *storage.BucketHandle
	name   string
}

func NewStore(client *storage.Client, bucket string) *Store {
	return &Store{bucket: client.Bucket(bucket), name: bucket}
}

// EnsureBucket creates the bucket when it does not exist yet.
func EnsureBucket(ctx context.Context, client *storage.Client, bucket, projectID string) error {
	_, err := client.Bucket(bucket).Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("failed to stat bucket %s: %w", bucket, err)
	}
	if err := client.Bucket(bucket).Create(ctx, projectID, nil); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	slog.Info("bucket created", "bucket", bucket)
	return nil
}

// Put writes data under key only if the object does not exist. A failed
// precondition is success: identical content is already stored under this
// content-addressed key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	w := s.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		if preconditionFailed(err) {
			return nil
		}
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		if preconditionFailed(err) {
			return nil
		}
		return fmt.Errorf("failed to finalize blob %s: %w", key, err)
	}
	return nil
}

func (s *Store) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", s.name, key)
}

func preconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
