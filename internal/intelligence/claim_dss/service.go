package claim_dss

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/common"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// TrainingLock serializes training across processes that share a store.
type TrainingLock interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// GenerationProvider hands out the generation an analysis should read.
type GenerationProvider interface {
	Acquire(ctx context.Context) (*Generation, error)
}

// ModelState is the lifecycle state reported by Status.
type ModelState string

const (
	ModelStateEmpty    ModelState = "empty"
	ModelStateLoading  ModelState = "loading"
	ModelStateActive   ModelState = "active"
	ModelStateFailed   ModelState = "failed"
	ModelStateTraining ModelState = "training"
)

// ModelStatus is a point-in-time view of the service.
type ModelStatus struct {
	State         ModelState      `json:"state"`
	Ready         bool            `json:"ready"`
	Generation    *GenerationMeta `json:"generation,omitempty"`
	ReferenceSize int             `json:"reference_size"`
	LastError     string          `json:"last_error,omitempty"`
}

// ServiceOptions configure the model service.
type ServiceOptions struct {
	CorpusSize int
	Reference  ReferenceOptions
}

// DefaultServiceOptions returns the production defaults.
func DefaultServiceOptions() ServiceOptions {
	return ServiceOptions{
		CorpusSize: DefaultCorpusSize,
		Reference:  ReferenceOptions{Size: DefaultReferenceSize, Seed: DefaultReferenceSeed},
	}
}

// Reference corpus defaults.
const (
	DefaultReferenceSize = 100
	DefaultReferenceSeed = 42
)

// ServiceOption customizes a ModelService.
type ServiceOption func(*ModelService)

// WithTrainingLock guards train-and-save with lock.
func WithTrainingLock(lock TrainingLock) ServiceOption {
	return func(s *ModelService) { s.lock = lock }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m common.IntelligenceMetrics) ServiceOption {
	return func(s *ModelService) { s.metrics = m }
}

// GenerationPublisher announces generations produced by this process.
type GenerationPublisher interface {
	PublishGeneration(ctx context.Context, id string) error
}

// WithGenerationPublisher announces every trained or reset generation.
func WithGenerationPublisher(p GenerationPublisher) ServiceOption {
	return func(s *ModelService) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) ServiceOption {
	return func(s *ModelService) { s.logger = l }
}

// ModelService owns the active generation. Readers take the current
// generation with a single atomic load; initialization, retraining and reset
// are serialized by mu and swap the pointer only once a new generation is
// fully built.
type ModelService struct {
	store     ModelStore
	trainer   *Trainer
	lock      TrainingLock
	publisher GenerationPublisher
	metrics   common.IntelligenceMetrics
	logger    logging.Logger
	opts      ServiceOptions

	current atomic.Pointer[Generation]
	mu      sync.Mutex

	state   atomic.Value // ModelState
	lastErr atomic.Value // string
}

// NewModelService wires a service over store and trainer.
func NewModelService(store ModelStore, trainer *Trainer, opts ServiceOptions, options ...ServiceOption) *ModelService {
	def := DefaultServiceOptions()
	if opts.CorpusSize <= 0 {
		opts.CorpusSize = def.CorpusSize
	}
	if opts.Reference.Size <= 0 {
		opts.Reference.Size = def.Reference.Size
	}
	s := &ModelService{
		store:   store,
		trainer: trainer,
		opts:    opts,
		metrics: common.NewNoopIntelligenceMetrics(),
		logger:  logging.NewNopLogger(),
	}
	for _, o := range options {
		o(s)
	}
	s.state.Store(ModelStateEmpty)
	s.lastErr.Store("")
	return s
}

// Current returns the active generation or nil.
func (s *ModelService) Current() *Generation { return s.current.Load() }

// Acquire returns the active generation, loading or training one first if
// necessary. Concurrent first callers share a single initialization.
func (s *ModelService) Acquire(ctx context.Context) (*Generation, error) {
	if g := s.current.Load(); g != nil {
		return g, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if g := s.current.Load(); g != nil {
		return g, nil
	}

	s.state.Store(ModelStateLoading)
	g, err := s.loadOrTrain(ctx)
	if err != nil {
		s.fail(err)
		return nil, errors.Wrap(err, errors.ErrCodeModelNotAvailable, "models are not available")
	}
	return g, nil
}

// Load restores the persisted generation. It returns false when nothing has
// been persisted and an error when the persisted generation is unusable.
func (s *ModelService) Load(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.loadArtifacts(ctx)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeArtifactsNotFound) {
			return false, nil
		}
		s.fail(err)
		return false, err
	}
	if _, err := s.activate(ctx, a, "load"); err != nil {
		s.fail(err)
		return false, err
	}
	return true, nil
}

// TrainAll trains a new generation on corpusSize examples, persists it and
// makes it current. Analyses in flight keep the generation they started with.
func (s *ModelService) TrainAll(ctx context.Context, corpusSize int) (*GenerationMeta, error) {
	if corpusSize <= 0 {
		corpusSize = s.opts.CorpusSize
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var g *Generation
	err := s.withTrainingLock(ctx, func() error {
		a, err := s.trainAndSave(ctx, corpusSize)
		if err != nil {
			return err
		}
		g, err = s.activate(ctx, a, "train")
		return err
	})
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.announce(ctx, g)
	meta := g.Meta
	return &meta, nil
}

// Reset deletes every persisted artifact and retrains with the configured
// corpus size. The previous generation keeps serving until the new one is
// ready.
func (s *ModelService) Reset(ctx context.Context) (*GenerationMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var g *Generation
	err := s.withTrainingLock(ctx, func() error {
		if err := s.store.Clear(ctx); err != nil {
			return err
		}
		s.logger.Info("persisted models cleared")
		a, err := s.trainAndSave(ctx, s.opts.CorpusSize)
		if err != nil {
			return err
		}
		g, err = s.activate(ctx, a, "reset")
		return err
	})
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.announce(ctx, g)
	meta := g.Meta
	return &meta, nil
}

// Refresh reloads the persisted generation unless id is already active.
// Peers call it when another replica announces a generation.
func (s *ModelService) Refresh(ctx context.Context, id string) error {
	if g := s.current.Load(); g != nil && g.Meta.ID == id {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if g := s.current.Load(); g != nil && g.Meta.ID == id {
		return nil
	}
	a, err := s.loadArtifacts(ctx)
	if err != nil {
		return err
	}
	_, err = s.activate(ctx, a, "refresh")
	return err
}

// Status reports readiness without triggering initialization.
func (s *ModelService) Status() ModelStatus {
	st := ModelStatus{
		State:     s.state.Load().(ModelState),
		LastError: s.lastErr.Load().(string),
	}
	if g := s.current.Load(); g != nil {
		meta := g.Meta
		st.Ready = true
		st.Generation = &meta
		st.ReferenceSize = g.ReferenceSize()
	}
	return st
}

// ---------------------------------------------------------------------------
// internals; callers hold s.mu
// ---------------------------------------------------------------------------

func (s *ModelService) loadOrTrain(ctx context.Context) (*Generation, error) {
	a, err := s.loadArtifacts(ctx)
	if err == nil {
		return s.activate(ctx, a, "load")
	}
	if !errors.IsCode(err, errors.ErrCodeArtifactsNotFound) {
		return nil, err
	}

	s.logger.Info("no persisted models found, training a new generation",
		logging.Int("corpus_size", s.opts.CorpusSize))
	var g *Generation
	err = s.withTrainingLock(ctx, func() error {
		// Another process may have trained while this one waited for the lock.
		a, err := s.loadArtifacts(ctx)
		if err == nil {
			g, err = s.activate(ctx, a, "load")
			return err
		}
		if !errors.IsCode(err, errors.ErrCodeArtifactsNotFound) {
			return err
		}
		a, err = s.trainAndSave(ctx, s.opts.CorpusSize)
		if err != nil {
			return err
		}
		g, err = s.activate(ctx, a, "train")
		return err
	})
	return g, err
}

func (s *ModelService) loadArtifacts(ctx context.Context) (*Artifacts, error) {
	start := time.Now()
	a, err := s.store.Load(ctx)
	if err != nil && !errors.IsCode(err, errors.ErrCodeArtifactsNotFound) {
		s.metrics.RecordModelLoad(ctx, "", msSince(start), false)
		s.logger.Error("failed to load persisted models", logging.Err(err))
	}
	return a, err
}

func (s *ModelService) trainAndSave(ctx context.Context, corpusSize int) (*Artifacts, error) {
	s.state.Store(ModelStateTraining)
	start := time.Now()
	a, err := s.trainer.Train(ctx, corpusSize)
	s.metrics.RecordTraining(ctx, corpusSize, msSince(start), err == nil)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *ModelService) activate(ctx context.Context, a *Artifacts, source string) (*Generation, error) {
	start := time.Now()
	g, err := NewGeneration(a, s.opts.Reference)
	if err != nil {
		s.metrics.RecordModelLoad(ctx, a.Meta.ID, msSince(start), false)
		return nil, errors.Wrap(err, errors.ErrCodeArtifactsCorrupt, "build generation")
	}
	prev := s.current.Swap(g)
	s.state.Store(ModelStateActive)
	s.lastErr.Store("")
	s.metrics.RecordModelLoad(ctx, g.Meta.ID, msSince(start), true)

	fields := []logging.Field{
		logging.String("generation", g.Meta.ID),
		logging.String("source", source),
		logging.Int("corpus_size", g.Meta.CorpusSize),
		logging.Int("reference_size", g.ReferenceSize()),
	}
	if prev != nil {
		fields = append(fields, logging.String("replaced", prev.Meta.ID))
	}
	s.logger.Info("model generation active", fields...)
	return g, nil
}

func (s *ModelService) announce(ctx context.Context, g *Generation) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishGeneration(context.WithoutCancel(ctx), g.Meta.ID); err != nil {
		s.logger.Warn("failed to announce generation", logging.String("generation", g.Meta.ID), logging.Err(err))
	}
}

func (s *ModelService) withTrainingLock(ctx context.Context, fn func() error) error {
	if s.lock == nil {
		return fn()
	}
	if err := s.lock.Lock(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeTrainingInProgress, "acquire training lock")
	}
	defer func() {
		if err := s.lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release training lock", logging.Err(err))
		}
	}()
	return fn()
}

func (s *ModelService) fail(err error) {
	if s.current.Load() != nil {
		s.state.Store(ModelStateActive)
	} else {
		s.state.Store(ModelStateFailed)
	}
	s.lastErr.Store(err.Error())
	s.logger.Error("model lifecycle operation failed", logging.Err(err))
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
