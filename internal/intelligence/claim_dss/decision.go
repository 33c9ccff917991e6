package claim_dss

import (
	"context"
	"time"

	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/common"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// DecisionPrediction is the classifier output for one claim.
type DecisionPrediction struct {
	Decision      DecisionClass             `json:"recommended_action"`
	Confidence    float64                   `json:"confidence"`
	Probabilities map[DecisionClass]float64 `json:"probabilities"`
	Generation    string                    `json:"generation"`
}

// DecisionEngine predicts the recommended action.
type DecisionEngine struct {
	models  GenerationProvider
	metrics common.IntelligenceMetrics
}

// NewDecisionEngine returns an engine reading generations from models.
func NewDecisionEngine(models GenerationProvider, metrics common.IntelligenceMetrics) *DecisionEngine {
	if metrics == nil {
		metrics = common.NewNoopIntelligenceMetrics()
	}
	return &DecisionEngine{models: models, metrics: metrics}
}

// PredictDecision acquires the active generation and predicts against it.
func (e *DecisionEngine) PredictDecision(ctx context.Context, r claim.Record) (*DecisionPrediction, error) {
	g, err := e.models.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return e.Decide(ctx, g, r)
}

// Decide predicts against a specific generation.
func (e *DecisionEngine) Decide(ctx context.Context, g *Generation, r claim.Record) (*DecisionPrediction, error) {
	start := time.Now()
	x := g.features(r)
	if len(x) != len(g.artifacts.Decision.Weights[0]) {
		e.recordInference(ctx, g, start, false)
		return nil, errors.Newf(errors.ErrCodeFeatureDimension, "feature vector has %d columns, model expects %d",
			len(x), len(g.artifacts.Decision.Weights[0]))
	}
	label, confidence, p := g.artifacts.Decision.Predict(x)

	probs := make(map[DecisionClass]float64, len(p))
	for i, c := range g.artifacts.Decision.Classes {
		probs[c] = p[i]
	}
	e.recordInference(ctx, g, start, true)
	e.metrics.RecordDecision(ctx, label.String())
	return &DecisionPrediction{
		Decision:      label,
		Confidence:    confidence,
		Probabilities: probs,
		Generation:    g.Meta.ID,
	}, nil
}

func (e *DecisionEngine) recordInference(ctx context.Context, g *Generation, start time.Time, ok bool) {
	e.metrics.RecordInference(ctx, &common.InferenceMetricParams{
		ModelName:  "decision",
		Generation: g.Meta.ID,
		DurationMs: msSince(start),
		Success:    ok,
	})
}
