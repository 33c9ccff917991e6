package claim_dss

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// Training defaults.
const (
	DefaultCorpusSize   = 2000
	DefaultTrainingSeed = 42
	DefaultMaxFeatures  = 1000
	// MinCorpusSize keeps every fit well-posed.
	MinCorpusSize = 10
	MaxCorpusSize = 100000
)

// TrainerOptions configure one training run.
type TrainerOptions struct {
	Seed        int64
	MaxFeatures int
	RidgeAlpha  float64
	Classifier  ClassifierOptions
}

// DefaultTrainerOptions returns the production options.
func DefaultTrainerOptions() TrainerOptions {
	return TrainerOptions{
		Seed:        DefaultTrainingSeed,
		MaxFeatures: DefaultMaxFeatures,
		RidgeAlpha:  DefaultRidgeAlpha,
		Classifier:  DefaultClassifierOptions(),
	}
}

// Trainer fits a complete generation from a synthetic corpus.
type Trainer struct {
	opts    TrainerOptions
	encoder *FeatureEncoder
	logger  logging.Logger
	now     func() time.Time
}

// NewTrainer returns a Trainer. Zero-valued options fall back to defaults.
func NewTrainer(opts TrainerOptions, logger logging.Logger) *Trainer {
	def := DefaultTrainerOptions()
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = def.MaxFeatures
	}
	if opts.RidgeAlpha <= 0 {
		opts.RidgeAlpha = def.RidgeAlpha
	}
	if opts.Classifier.Epochs <= 0 {
		opts.Classifier = def.Classifier
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Trainer{opts: opts, encoder: defaultEncoder, logger: logger, now: time.Now}
}

// Train generates corpusSize examples and fits the scaler, the decision
// classifier, the risk regressor and the text index on them.
func (t *Trainer) Train(ctx context.Context, corpusSize int) (*Artifacts, error) {
	if corpusSize < MinCorpusSize || corpusSize > MaxCorpusSize {
		return nil, errors.Newf(errors.ErrCodeInvalidCorpusRequest, "corpus size must be between %d and %d, got %d", MinCorpusSize, MaxCorpusSize, corpusSize)
	}
	start := t.now()
	examples := GenerateCorpus(corpusSize, t.opts.Seed)

	X := t.encoder.EncodeAll(Records(examples))
	scaler, err := FitStandardScaler(X)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTrainingFailed, "fit scaler")
	}
	Xs := scaler.TransformAll(X)
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "training cancelled")
	}

	labels := make([]int, len(examples))
	risk := make([]float64, len(examples))
	docs := make([]string, len(examples))
	classIndex := make(map[DecisionClass]int, len(DecisionClasses))
	for i, c := range DecisionClasses {
		classIndex[c] = i
	}
	for i, ex := range examples {
		labels[i] = classIndex[ex.Decision]
		risk[i] = ex.RiskScore
		docs[i] = Describe(ex.Record)
	}

	decision, err := FitSoftmaxClassifier(Xs, labels, DecisionClasses, t.opts.Classifier)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTrainingFailed, "fit decision model")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "training cancelled")
	}
	riskModel, err := FitRidgeRegressor(Xs, risk, t.opts.RidgeAlpha)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTrainingFailed, "fit risk model")
	}
	text, err := FitTextIndex(docs, t.opts.MaxFeatures)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTrainingFailed, "fit text index")
	}

	a := &Artifacts{
		Meta: GenerationMeta{
			ID:             uuid.NewString(),
			TrainedAt:      t.now().UTC(),
			CorpusSize:     corpusSize,
			Seed:           t.opts.Seed,
			FeatureColumns: t.encoder.Columns(),
		},
		Scaler:   scaler,
		Decision: decision,
		Risk:     riskModel,
		Text:     text,
	}
	t.logger.Info("training complete",
		logging.String("generation", a.Meta.ID),
		logging.Int("corpus_size", corpusSize),
		logging.Int("vocabulary", len(text.Vocabulary)),
		logging.Duration("elapsed", t.now().Sub(start)))
	return a, nil
}
