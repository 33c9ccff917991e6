package claim_dss

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/common"
)

// RiskLevel is the ordinal bucket of a risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Severity grades a rule-based risk factor.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// riskLevelTable holds half-open upper bounds, evaluated top to bottom.
var riskLevelTable = []struct {
	below float64
	level RiskLevel
}{
	{0.3, RiskLevelLow},
	{0.6, RiskLevelMedium},
	{0.8, RiskLevelHigh},
}

// ClassifyRisk buckets score using riskLevelTable.
func ClassifyRisk(score float64) RiskLevel {
	for _, row := range riskLevelTable {
		if score < row.below {
			return row.level
		}
	}
	return RiskLevelCritical
}

// RiskFactor is one explainable finding from a deterministic rule.
type RiskFactor struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Mitigation  string   `json:"mitigation"`
}

// RiskAssessment combines the model score with the rule findings.
type RiskAssessment struct {
	Score   float64      `json:"risk_score"`
	Level   RiskLevel    `json:"risk_level"`
	Factors []RiskFactor `json:"risk_factors"`
}

type riskRule struct {
	name       string
	applies    func(claim.Record) bool
	severity   func(claim.Record) Severity
	describe   func(claim.Record) string
	mitigation string
}

// riskRules run against the raw record, independently of the model score.
var riskRules = []riskRule{
	{
		name:    "Environmental Impact",
		applies: func(r claim.Record) bool { return r.EnvironmentalImpact > 0.7 },
		severity: func(r claim.Record) Severity {
			if r.EnvironmentalImpact > 0.8 {
				return SeverityHigh
			}
			return SeverityMedium
		},
		describe:   func(claim.Record) string { return "High environmental impact in ecologically sensitive area" },
		mitigation: "Implement sustainable land use practices and regular monitoring",
	},
	{
		name:       "Large Area Claim",
		applies:    func(r claim.Record) bool { return r.AreaClaimed > 5 },
		severity:   func(claim.Record) Severity { return SeverityMedium },
		describe:   func(r claim.Record) string { return fmt.Sprintf("Large area claim of %.1f hectares", r.AreaClaimed) },
		mitigation: "Conduct detailed survey and phased implementation",
	},
	{
		name:       "Compliance History",
		applies:    func(r claim.Record) bool { return r.PreviousViolations > 0 },
		severity:   func(claim.Record) Severity { return SeverityHigh },
		describe:   func(r claim.Record) string { return fmt.Sprintf("Previous violations: %d", r.PreviousViolations) },
		mitigation: "Enhanced monitoring and compliance checks required",
	},
}

// EvaluateRiskRules returns the factors whose rules fire, in rule order.
func EvaluateRiskRules(r claim.Record) []RiskFactor {
	factors := []RiskFactor{}
	for _, rule := range riskRules {
		if !rule.applies(r) {
			continue
		}
		factors = append(factors, RiskFactor{
			Type:        rule.name,
			Severity:    rule.severity(r),
			Description: rule.describe(r),
			Mitigation:  rule.mitigation,
		})
	}
	return factors
}

// RiskAssessor scores claim risk.
type RiskAssessor struct {
	models  GenerationProvider
	metrics common.IntelligenceMetrics
}

// NewRiskAssessor returns an assessor reading generations from models.
func NewRiskAssessor(models GenerationProvider, metrics common.IntelligenceMetrics) *RiskAssessor {
	if metrics == nil {
		metrics = common.NewNoopIntelligenceMetrics()
	}
	return &RiskAssessor{models: models, metrics: metrics}
}

// AssessRisk acquires the active generation and assesses against it.
func (a *RiskAssessor) AssessRisk(ctx context.Context, r claim.Record) (*RiskAssessment, error) {
	g, err := a.models.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return a.Assess(ctx, g, r), nil
}

// Assess scores r with the generation's regressor, clipped to [0, 1].
func (a *RiskAssessor) Assess(ctx context.Context, g *Generation, r claim.Record) *RiskAssessment {
	start := time.Now()
	score := clip01(g.artifacts.Risk.Predict(g.features(r)))
	out := &RiskAssessment{
		Score:   score,
		Level:   ClassifyRisk(score),
		Factors: EvaluateRiskRules(r),
	}
	elapsed := msSince(start)
	a.metrics.RecordInference(ctx, &common.InferenceMetricParams{
		ModelName:  "risk",
		Generation: g.Meta.ID,
		DurationMs: elapsed,
		Success:    true,
	})
	a.metrics.RecordRiskAssessment(ctx, string(out.Level), elapsed)
	return out
}
