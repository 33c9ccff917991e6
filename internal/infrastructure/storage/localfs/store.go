// Package localfs stores model artifacts under a directory on local disk.
package localfs

import (
	"context"
	goerrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// Store maps slash-separated keys to files below root. Writes go through a
// temporary file and a rename so readers never see a partial object.
type Store struct {
	root   string
	logger logging.Logger
}

// New creates root if needed.
func New(root string, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if root == "" {
		return nil, errors.New(errors.ErrCodeValidation, "models directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "create models directory").WithDetail(root)
	}
	return &Store{root: root, logger: log}, nil
}

// Root returns the base directory.
func (s *Store) Root() string { return s.root }

func (s *Store) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.New(errors.ErrCodeValidation, "invalid object key").WithDetail(key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *Store) PutObject(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "create directory").WithDetail(dir)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(p)+"-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "create temp file").WithDetail(key)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrCodeStorageError, "write object").WithDetail(key)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrCodeStorageError, "sync object").WithDetail(key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrCodeStorageError, "close object").WithDetail(key)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrCodeStorageError, "rename object").WithDetail(key)
	}
	return nil
}

// GetObject returns an ErrCodeObjectNotFound error when key is absent.
func (s *Store) GetObject(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, errors.ErrCodeObjectNotFound, "object not found").WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "read object").WithDetail(key)
	}
	return data, nil
}

// DeletePrefix removes every object whose key starts with prefix. A prefix
// ending in "/" removes a whole directory.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.HasSuffix(prefix, "/") {
		p, err := s.path(strings.TrimSuffix(prefix, "/"))
		if err != nil {
			return err
		}
		if err := os.RemoveAll(p); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "remove directory").WithDetail(prefix)
		}
		return nil
	}

	p, err := s.path(prefix)
	if err != nil {
		return err
	}
	dir, base := filepath.Dir(p), filepath.Base(p)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeStorageError, "list directory").WithDetail(prefix)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), base) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "remove object").WithDetail(e.Name())
		}
	}
	s.logger.Debug("removed objects", logging.String("prefix", prefix))
	return nil
}
