package minio

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

const artifactContentType = "application/json"

// ObjectStore is a flat key/value view over the client's bucket.
type ObjectStore struct {
	client *Client
	logger logging.Logger
}

// NewObjectStore returns a store that reads and writes c's bucket.
func NewObjectStore(c *Client, log logging.Logger) *ObjectStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ObjectStore{client: c, logger: log}
}

func (s *ObjectStore) PutObject(ctx context.Context, key string, data []byte) error {
	if s.client.isClosed() {
		return ErrMinIOClientClosed
	}
	if key == "" {
		return errors.New(errors.ErrCodeValidation, "object key is required")
	}
	_, err := s.client.api.PutObject(ctx, s.client.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: artifactContentType})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail(key)
	}
	return nil
}

// GetObject returns an ErrCodeObjectNotFound error when key is absent.
func (s *ObjectStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	if s.client.isClosed() {
		return nil, ErrMinIOClientClosed
	}
	data, err := s.client.api.ReadObject(ctx, s.client.bucket, key)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, errors.Wrap(err, errors.ErrCodeObjectNotFound, "object not found").WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "download failed").WithDetail(key)
	}
	return data, nil
}

// DeletePrefix removes every object whose key starts with prefix.
func (s *ObjectStore) DeletePrefix(ctx context.Context, prefix string) error {
	if s.client.isClosed() {
		return ErrMinIOClientClosed
	}
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := s.client.api.ListObjects(listCtx, s.client.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	toRemove := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)
	go func() {
		defer close(toRemove)
		for obj := range objects {
			if obj.Err != nil {
				listErr <- obj.Err
				return
			}
			select {
			case toRemove <- obj:
			case <-listCtx.Done():
				return
			}
		}
	}()

	var failed int
	var first error
	for rerr := range s.client.api.RemoveObjects(ctx, s.client.bucket, toRemove, minio.RemoveObjectsOptions{}) {
		failed++
		if first == nil {
			first = rerr.Err
		}
		s.logger.Warn("Failed to remove object", logging.String("key", rerr.ObjectName), logging.Err(rerr.Err))
	}

	select {
	case err := <-listErr:
		return errors.Wrap(err, errors.ErrCodeStorageError, "list failed").WithDetail(prefix)
	default:
	}
	if failed > 0 {
		return errors.Wrap(first, errors.ErrCodeStorageError, fmt.Sprintf("failed to remove %d objects", failed)).WithDetail(prefix)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
