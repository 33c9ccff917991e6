package claim_dss

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path"
	"time"

	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// BlobStore is the byte-level storage the artifact store writes through.
// GetObject must return an error satisfying errors.IsNotFound for a missing
// key. PutObject must be atomic per key.
type BlobStore interface {
	PutObject(ctx context.Context, key string, data []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// ModelStore persists and restores whole generations.
type ModelStore interface {
	// Load returns the current generation, ErrCodeArtifactsNotFound when
	// none has been saved, or ErrCodeArtifactsCorrupt when it cannot be read.
	Load(ctx context.Context) (*Artifacts, error)
	Save(ctx context.Context, a *Artifacts) error
	Clear(ctx context.Context) error
}

// Artifact object names inside a generation directory.
const (
	objectScaler   = "scaler.json"
	objectDecision = "decision_model.json"
	objectRisk     = "risk_model.json"
	objectText     = "text_index.json"
	objectCurrent  = "CURRENT"
)

// manifest is the CURRENT pointer. It is written last, so a reader either sees
// the previous complete generation or the new complete one.
type manifest struct {
	Generation GenerationMeta    `json:"generation"`
	Previous   string            `json:"previous,omitempty"`
	Checksums  map[string]string `json:"checksums"`
	SavedAt    time.Time         `json:"saved_at"`
}

// ArtifactStore lays generations out as
//
//	<prefix>/generations/<id>/{scaler,decision_model,risk_model,text_index}.json
//	<prefix>/CURRENT
//
// and keeps the current and the immediately preceding generation.
type ArtifactStore struct {
	blobs  BlobStore
	prefix string
	logger logging.Logger
}

// NewArtifactStore wraps blobs. prefix may be empty.
func NewArtifactStore(blobs BlobStore, prefix string, logger logging.Logger) *ArtifactStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ArtifactStore{blobs: blobs, prefix: prefix, logger: logger}
}

func (s *ArtifactStore) currentKey() string { return path.Join(s.prefix, objectCurrent) }

func (s *ArtifactStore) generationDir(id string) string {
	return path.Join(s.prefix, "generations", id) + "/"
}

func (s *ArtifactStore) objectKey(id, name string) string {
	return path.Join(s.prefix, "generations", id, name)
}

func (s *ArtifactStore) readManifest(ctx context.Context) (*manifest, error) {
	raw, err := s.blobs.GetObject(ctx, s.currentKey())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.Wrap(err, errors.ErrCodeArtifactsNotFound, "no model generation has been saved")
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "read generation pointer")
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArtifactsCorrupt, "decode generation pointer")
	}
	if m.Generation.ID == "" {
		return nil, errors.New(errors.ErrCodeArtifactsCorrupt, "generation pointer has no id")
	}
	return &m, nil
}

// Load implements ModelStore.
func (s *ArtifactStore) Load(ctx context.Context) (*Artifacts, error) {
	m, err := s.readManifest(ctx)
	if err != nil {
		return nil, err
	}
	a := &Artifacts{Meta: m.Generation}
	targets := []struct {
		name string
		dst  any
	}{
		{objectScaler, &a.Scaler},
		{objectDecision, &a.Decision},
		{objectRisk, &a.Risk},
		{objectText, &a.Text},
	}
	for _, t := range targets {
		key := s.objectKey(m.Generation.ID, t.name)
		raw, err := s.blobs.GetObject(ctx, key)
		if err != nil {
			// A pointer to a missing object is a broken generation, not an
			// absent one.
			return nil, errors.Wrap(err, errors.ErrCodeArtifactsCorrupt, "read artifact").WithDetail(key)
		}
		if want, ok := m.Checksums[t.name]; ok && want != checksum(raw) {
			return nil, errors.New(errors.ErrCodeArtifactsCorrupt, "artifact checksum mismatch").WithDetail(key)
		}
		if err := json.Unmarshal(raw, t.dst); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeArtifactsCorrupt, "decode artifact").WithDetail(key)
		}
	}
	if err := a.Validate(defaultEncoder.Columns()); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArtifactsCorrupt, "invalid generation").WithDetail(m.Generation.ID)
	}
	return a, nil
}

// Save implements ModelStore. Artifacts are written under a fresh generation
// directory before CURRENT is switched to it.
func (s *ArtifactStore) Save(ctx context.Context, a *Artifacts) error {
	if err := a.Validate(defaultEncoder.Columns()); err != nil {
		return errors.Wrap(err, errors.ErrCodeTrainingFailed, "refusing to save invalid generation")
	}

	var previous *manifest
	if m, err := s.readManifest(ctx); err == nil {
		previous = m
	} else if !errors.IsCode(err, errors.ErrCodeArtifactsNotFound) {
		s.logger.Warn("ignoring unreadable generation pointer", logging.Err(err))
	}

	next := manifest{
		Generation: a.Meta,
		Checksums:  make(map[string]string, 4),
		SavedAt:    time.Now().UTC(),
	}
	if previous != nil {
		next.Previous = previous.Generation.ID
	}

	objects := []struct {
		name string
		v    any
	}{
		{objectScaler, a.Scaler},
		{objectDecision, a.Decision},
		{objectRisk, a.Risk},
		{objectText, a.Text},
	}
	for _, o := range objects {
		raw, err := json.Marshal(o.v)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "encode artifact").WithDetail(o.name)
		}
		key := s.objectKey(a.Meta.ID, o.name)
		if err := s.blobs.PutObject(ctx, key, raw); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "write artifact").WithDetail(key)
		}
		next.Checksums[o.name] = checksum(raw)
	}

	raw, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode generation pointer")
	}
	if err := s.blobs.PutObject(ctx, s.currentKey(), raw); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "switch generation pointer")
	}
	s.logger.Info("model generation saved",
		logging.String("generation", a.Meta.ID),
		logging.String("previous", next.Previous))

	if previous != nil && previous.Previous != "" && previous.Previous != a.Meta.ID {
		if err := s.blobs.DeletePrefix(ctx, s.generationDir(previous.Previous)); err != nil {
			s.logger.Warn("failed to prune old generation",
				logging.String("generation", previous.Previous), logging.Err(err))
		}
	}
	return nil
}

// Clear implements ModelStore. The pointer goes first so no reader observes a
// pointer to deleted objects.
func (s *ArtifactStore) Clear(ctx context.Context) error {
	if err := s.blobs.DeletePrefix(ctx, s.currentKey()); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "delete generation pointer")
	}
	if err := s.blobs.DeletePrefix(ctx, path.Join(s.prefix, "generations")+"/"); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "delete generations")
	}
	s.logger.Info("model artifacts cleared", logging.String("prefix", s.prefix))
	return nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
