package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/monomind/internal/domain"
)

// objectStore is the slice of a bucket GCSStore needs. A writer commits its
// object on Close; cancelling the context passed to NewWriter discards it.
type objectStore interface {
	NewReader(ctx context.Context, name string) (io.ReadCloser, error)
	NewWriter(ctx context.Context, name string) io.WriteCloser
}

type bucketObjects struct {
	bucket *storage.BucketHandle
}

func (b bucketObjects) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := b.bucket.Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (b bucketObjects) NewWriter(ctx context.Context, name string) io.WriteCloser {
	w := b.bucket.Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	return w
}

// GCSStore keeps each session's history as one JSON object in a bucket.
type GCSStore struct {
	client  *storage.Client
	objects objectStore
	prefix  string
}

// NewGCSStore creates a store writing to gs://bucket/prefix/<session>.json.
// It assumes Application Default Credentials are configured.
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSStore: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: create storage client: %w", err)
	}
	return &GCSStore{
		client:  client,
		objects: bucketObjects{bucket: client.Bucket(bucket)},
		prefix:  prefix,
	}, nil
}

// Load implements Store. A missing object is an empty history.
func (s *GCSStore) Load(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}

	r, err := s.objects.NewReader(ctx, objectName(s.prefix, sessionID))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return []domain.Message{}, nil
		}
		return nil, fmt.Errorf("GCSStore.Load: open object reader: %w", err)
	}
	defer r.Close()

	var history []domain.Message
	if err := json.NewDecoder(r).Decode(&history); err != nil {
		return nil, fmt.Errorf("GCSStore.Load: decode: %w", err)
	}
	return history, nil
}

// Save implements Store. A failed encode leaves the previous object in place.
func (s *GCSStore) Save(ctx context.Context, sessionID string, history []domain.Message) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.objects.NewWriter(ctx, objectName(s.prefix, sessionID))
	if err := json.NewEncoder(w).Encode(history); err != nil {
		// Closing would commit the partial object.
		cancel()
		return fmt.Errorf("GCSStore.Save: encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("GCSStore.Save: finalize upload: %w", err)
	}
	return nil
}

// Close closes the storage client.
func (s *GCSStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// objectName escapes the session id so it cannot traverse the prefix.
// e.g. ("sessions", "user-1") → "sessions/user-1.json"
func objectName(prefix, sessionID string) string {
	return path.Join(prefix, url.PathEscape(sessionID)+".json")
}
