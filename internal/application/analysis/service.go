// Package analysis orchestrates one claim analysis end to end: input
// resolution, decision, risk, precedents and reasoning against a single model
// generation.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/claim_dss"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/common"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// EventTypeClaimAnalyzed is the event published after every analysis.
const EventTypeClaimAnalyzed = "claim.analyzed"

// AnalysisResult is the full recommendation for one claim.
type AnalysisResult struct {
	ID                string                              `json:"id"`
	ClaimID           string                              `json:"claim_id"`
	RecommendedAction claim_dss.DecisionClass             `json:"recommended_action"`
	Confidence        float64                             `json:"confidence"`
	Probabilities     map[claim_dss.DecisionClass]float64 `json:"probabilities"`
	Reasoning         []string                            `json:"reasoning"`
	RiskFactors       []claim_dss.RiskFactor              `json:"risk_factors"`
	PrecedentCases    []claim_dss.SimilarCase             `json:"precedent_cases"`
	RiskScore         float64                             `json:"risk_score"`
	RiskLevel         claim_dss.RiskLevel                 `json:"risk_level"`
	Warnings          []string                            `json:"warnings"`
	ModelGeneration   string                              `json:"model_generation"`
	Claim             claim.Record                        `json:"claim"`
	CreatedAt         time.Time                           `json:"created_at"`
	ProcessingTime    float64                             `json:"processing_time"`
}

// ClaimAnalyzedEvent is the payload of EventTypeClaimAnalyzed.
type ClaimAnalyzedEvent struct {
	AnalysisID        string                  `json:"analysis_id"`
	ClaimID           string                  `json:"claim_id"`
	RecommendedAction claim_dss.DecisionClass `json:"recommended_action"`
	Confidence        float64                 `json:"confidence"`
	RiskScore         float64                 `json:"risk_score"`
	RiskLevel         claim_dss.RiskLevel     `json:"risk_level"`
	RiskFactorCount   int                     `json:"risk_factor_count"`
	ModelGeneration   string                  `json:"model_generation"`
	State             string                  `json:"state"`
	District          string                  `json:"district,omitempty"`
	AreaClaimed       float64                 `json:"area_claimed"`
	CreatedAt         time.Time               `json:"created_at"`
}

// EventPublisher delivers analysis events. Publishing is best effort: a
// failure is logged and never fails the analysis.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, key string, payload any) error
}

// Analyzer is the application API used by the HTTP and CLI layers.
type Analyzer interface {
	Analyze(ctx context.Context, in claim.Input, signals *claim.DocumentSignals) (*AnalysisResult, error)
}

// Option customizes a Service.
type Option func(*Service)

// WithEventPublisher publishes a claim.analyzed event after each analysis.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func WithMetrics(m common.IntelligenceMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// WithTopK sets the number of precedent cases returned.
func WithTopK(k int) Option {
	return func(s *Service) { s.topK = k }
}

// Service implements Analyzer.
type Service struct {
	models    claim_dss.GenerationProvider
	decision  *claim_dss.DecisionEngine
	risk      *claim_dss.RiskAssessor
	similar   *claim_dss.SimilarityIndex
	reasoning *claim_dss.ReasoningGenerator

	events  EventPublisher
	metrics common.IntelligenceMetrics
	logger  logging.Logger
	now     func() time.Time
	newID   func() string
	topK    int
}

// NewService wires the engines over models. Similarity options are passed
// through to the precedent index.
func NewService(models claim_dss.GenerationProvider, opts []Option, simOpts ...claim_dss.SimilarityOption) *Service {
	s := &Service{
		models:  models,
		metrics: common.NewNoopIntelligenceMetrics(),
		logger:  logging.NewNopLogger(),
		now:     time.Now,
		newID:   uuid.NewString,
		topK:    claim_dss.DefaultTopK,
	}
	for _, o := range opts {
		o(s)
	}
	s.decision = claim_dss.NewDecisionEngine(models, s.metrics)
	s.risk = claim_dss.NewRiskAssessor(models, s.metrics)
	s.similar = claim_dss.NewSimilarityIndex(models, s.topK, simOpts...)
	s.reasoning = claim_dss.NewReasoningGenerator()
	s.logger = s.logger.Named("analysis")
	return s
}

// Analyze resolves in against signals and the default table, then runs every
// engine against one generation. Any engine failure yields a single
// ErrCodeAnalysisFailed error and no partial result.
func (s *Service) Analyze(ctx context.Context, in claim.Input, signals *claim.DocumentSignals) (*AnalysisResult, error) {
	start := s.now()
	res, err := s.analyze(ctx, in, signals, start)
	elapsed := s.now().Sub(start)
	s.metrics.RecordAnalysis(ctx, float64(elapsed.Microseconds())/1000, err == nil)
	if err != nil {
		s.logger.Error("claim analysis failed", logging.Err(err), logging.String("code", string(errors.GetCode(err))))
		return nil, err
	}
	res.ProcessingTime = elapsed.Seconds()

	s.logger.Info("claim analyzed",
		logging.String("analysis_id", res.ID),
		logging.String("claim_id", res.ClaimID),
		logging.String("recommended_action", string(res.RecommendedAction)),
		logging.String("risk_level", string(res.RiskLevel)),
		logging.String("generation", res.ModelGeneration),
		logging.Duration("elapsed", elapsed))

	s.publish(ctx, res)
	return res, nil
}

func (s *Service) analyze(ctx context.Context, in claim.Input, signals *claim.DocumentSignals, start time.Time) (*AnalysisResult, error) {
	rec := in.Resolve(signals)
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	warnings := s.warnings(ctx, rec, signals)

	g, err := s.models.Acquire(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAnalysisFailed, "analysis failed")
	}
	d, err := s.decision.Decide(ctx, g, rec)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAnalysisFailed, "analysis failed")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAnalysisFailed, "analysis failed")
	}
	risk := s.risk.Assess(ctx, g, rec)
	cases := s.similar.Search(g, rec, s.topK)
	reasons := s.reasoning.Explain(rec, d, risk)

	claimID := rec.ClaimID
	if claimID == "" {
		claimID = s.newID()
		rec.ClaimID = claimID
	}
	return &AnalysisResult{
		ID:                s.newID(),
		ClaimID:           claimID,
		RecommendedAction: d.Decision,
		Confidence:        d.Confidence,
		Probabilities:     d.Probabilities,
		Reasoning:         reasons,
		RiskFactors:       risk.Factors,
		PrecedentCases:    cases,
		RiskScore:         risk.Score,
		RiskLevel:         risk.Level,
		Warnings:          warnings,
		ModelGeneration:   g.Meta.ID,
		Claim:             rec,
		CreatedAt:         start.UTC(),
	}, nil
}

// warnings never returns nil so the JSON field is always a list.
func (s *Service) warnings(ctx context.Context, rec claim.Record, signals *claim.DocumentSignals) []string {
	warnings := []string{}
	for _, u := range rec.UnknownCategories() {
		field, value, _ := strings.Cut(u, "=")
		s.metrics.RecordUnknownCategory(ctx, field)
		s.logger.Warn("unknown categorical value", logging.String("field", field), logging.String("value", value))
		warnings = append(warnings, fmt.Sprintf("unknown %s %q is outside the known vocabulary and was not scored", field, value))
	}
	if signals != nil && signals.LowConfidence > 0 {
		warnings = append(warnings, fmt.Sprintf("%d document entities below confidence %.1f were ignored", signals.LowConfidence, claim.MinEntityConfidence))
	}
	if signals != nil && signals.Unusable() > 0 {
		warnings = append(warnings, fmt.Sprintf("%d document entities had an unknown type or an unreadable area and were ignored", signals.Unusable()))
	}
	return warnings
}

func (s *Service) publish(ctx context.Context, res *AnalysisResult) {
	if s.events == nil {
		return
	}
	ev := ClaimAnalyzedEvent{
		AnalysisID:        res.ID,
		ClaimID:           res.ClaimID,
		RecommendedAction: res.RecommendedAction,
		Confidence:        res.Confidence,
		RiskScore:         res.RiskScore,
		RiskLevel:         res.RiskLevel,
		RiskFactorCount:   len(res.RiskFactors),
		ModelGeneration:   res.ModelGeneration,
		State:             res.Claim.State,
		District:          res.Claim.District,
		AreaClaimed:       res.Claim.AreaClaimed,
		CreatedAt:         res.CreatedAt,
	}
	if err := s.events.PublishEvent(context.WithoutCancel(ctx), EventTypeClaimAnalyzed, res.ClaimID, ev); err != nil {
		s.logger.Warn("failed to publish analysis event",
			logging.String("analysis_id", res.ID),
			logging.Err(errors.Wrap(err, errors.ErrCodeEventPublishFailed, "publish claim.analyzed")))
	}
}
