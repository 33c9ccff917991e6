package claim_dss

import (
	"fmt"
	"slices"
	"time"

	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
)

// GenerationMeta identifies one trained set of artifacts.
type GenerationMeta struct {
	ID             string    `json:"id"`
	TrainedAt      time.Time `json:"trained_at"`
	CorpusSize     int       `json:"corpus_size"`
	Seed           int64     `json:"seed"`
	FeatureColumns []string  `json:"feature_columns"`
}

// Artifacts are the four fitted models of a generation. They are produced
// and persisted together and never mixed across generations.
type Artifacts struct {
	Meta     GenerationMeta     `json:"meta"`
	Scaler   *StandardScaler    `json:"scaler"`
	Decision *SoftmaxClassifier `json:"decision"`
	Risk     *RidgeRegressor    `json:"risk"`
	Text     *TextIndex         `json:"text"`
}

// Validate checks the artifacts against the encoder's column layout.
func (a *Artifacts) Validate(columns []string) error {
	if a == nil {
		return fmt.Errorf("artifacts: nil")
	}
	if a.Meta.ID == "" {
		return fmt.Errorf("artifacts: missing generation id")
	}
	if !slices.Equal(a.Meta.FeatureColumns, columns) {
		return fmt.Errorf("artifacts: feature columns %v do not match encoder %v", a.Meta.FeatureColumns, columns)
	}
	if a.Scaler == nil || a.Decision == nil || a.Risk == nil || a.Text == nil {
		return fmt.Errorf("artifacts: incomplete generation %s", a.Meta.ID)
	}
	dim := len(columns)
	if err := a.Scaler.validate(dim); err != nil {
		return err
	}
	if err := a.Decision.validate(dim); err != nil {
		return err
	}
	if err := a.Risk.validate(dim); err != nil {
		return err
	}
	return a.Text.validate()
}

// ReferenceOptions size and seed the precedent corpus of a generation.
type ReferenceOptions struct {
	Size int   `json:"size"`
	Seed int64 `json:"seed"`
}

type referenceCase struct {
	example     TrainingExample
	description string
	vector      []float64
}

// Generation is an immutable, ready-to-serve set of artifacts plus the
// precedent corpus vectorized with its own text index. Every read of a single
// analysis goes through one Generation.
type Generation struct {
	Meta GenerationMeta

	encoder   *FeatureEncoder
	artifacts *Artifacts
	reference []referenceCase
	refOpts   ReferenceOptions
}

// NewGeneration validates a and builds its reference corpus.
func NewGeneration(a *Artifacts, ref ReferenceOptions) (*Generation, error) {
	if err := a.Validate(defaultEncoder.Columns()); err != nil {
		return nil, err
	}
	g := &Generation{
		Meta:      a.Meta,
		encoder:   defaultEncoder,
		artifacts: a,
		refOpts:   ref,
	}
	for _, ex := range GenerateCorpus(ref.Size, ref.Seed) {
		desc := Describe(ex.Record)
		g.reference = append(g.reference, referenceCase{
			example:     ex,
			description: desc,
			vector:      a.Text.Transform(desc),
		})
	}
	return g, nil
}

// Artifacts returns the underlying artifacts. Callers must not mutate them.
func (g *Generation) Artifacts() *Artifacts { return g.artifacts }

// ReferenceSize is the number of precedent cases available.
func (g *Generation) ReferenceSize() int { return len(g.reference) }

// features encodes and standardizes r.
func (g *Generation) features(r claim.Record) []float64 {
	return g.artifacts.Scaler.Transform(g.encoder.Encode(r))
}
