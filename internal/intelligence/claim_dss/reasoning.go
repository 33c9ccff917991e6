package claim_dss

import (
	"fmt"

	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
)

// reasoningTier pairs a predicate with the sentence it selects. Within a
// category the first matching tier wins; the last tier always matches.
type reasoningTier struct {
	when func(float64) bool
	say  func(float64) string
}

type reasoningCategory struct {
	name  string
	value func(claim.Record, *RiskAssessment) float64
	tiers []reasoningTier
}

func above(t float64) func(float64) bool   { return func(v float64) bool { return v > t } }
func atLeast(t float64) func(float64) bool { return func(v float64) bool { return v >= t } }
func always(float64) bool                  { return true }

func sentence(format string) func(float64) string {
	return func(v float64) string { return fmt.Sprintf(format, v) }
}

func fixed(s string) func(float64) string {
	return func(float64) string { return s }
}

// Risk levels are mapped onto an ordinal so they share the tier machinery.
var riskOrdinal = map[RiskLevel]float64{
	RiskLevelLow:      0,
	RiskLevelMedium:   1,
	RiskLevelHigh:     2,
	RiskLevelCritical: 3,
}

// reasoningCategories are emitted in this order.
var reasoningCategories = []reasoningCategory{
	{
		name:  "documentation",
		value: func(r claim.Record, _ *RiskAssessment) float64 { return r.DocumentationScore },
		tiers: []reasoningTier{
			{above(0.8), sentence("Strong documentation provided (score: %.2f) with all required documents")},
			{above(0.6), sentence("Adequate documentation (score: %.2f) but some improvements needed")},
			{always, sentence("Insufficient documentation (score: %.2f) - additional documents required")},
		},
	},
	{
		name:  "community",
		value: func(r claim.Record, _ *RiskAssessment) float64 { return r.CommunitySupport },
		tiers: []reasoningTier{
			{above(0.8), sentence("Strong community support (score: %.2f) with gram sabha approval")},
			{above(0.6), sentence("Moderate community support (score: %.2f)")},
			{always, sentence("Limited community support (score: %.2f) - community consultation needed")},
		},
	},
	{
		name:  "tenure",
		value: func(r claim.Record, _ *RiskAssessment) float64 { return r.YearsOfUse },
		tiers: []reasoningTier{
			{atLeast(25), sentence("Well-established traditional use for %.0f years meets FRA requirements")},
			{atLeast(10), sentence("Moderate traditional use history of %.0f years")},
			{always, sentence("Limited traditional use history of %.0f years - requires verification")},
		},
	},
	{
		name: "risk",
		value: func(_ claim.Record, a *RiskAssessment) float64 {
			if a == nil {
				return riskOrdinal[RiskLevelHigh]
			}
			if v, ok := riskOrdinal[a.Level]; ok {
				return v
			}
			return riskOrdinal[RiskLevelHigh]
		},
		tiers: []reasoningTier{
			{func(v float64) bool { return v == riskOrdinal[RiskLevelLow] }, fixed("Low risk assessment indicates minimal environmental and legal concerns")},
			{func(v float64) bool { return v == riskOrdinal[RiskLevelMedium] }, fixed("Medium risk level requires additional safeguards and monitoring")},
			{always, fixed("High risk level necessitates comprehensive mitigation measures")},
		},
	},
	{
		name:  "area",
		value: func(r claim.Record, _ *RiskAssessment) float64 { return r.AreaClaimed },
		tiers: []reasoningTier{
			{above(10), sentence("Large area claim of %.1f hectares requires detailed survey and phased implementation")},
			{above(5), sentence("Moderate area claim of %.1f hectares within acceptable limits")},
			{always, sentence("Small area claim of %.1f hectares suitable for individual forest rights")},
		},
	},
}

// ReasoningGenerator turns a scored claim into a fixed-order rationale.
type ReasoningGenerator struct{}

// NewReasoningGenerator returns a ReasoningGenerator.
func NewReasoningGenerator() *ReasoningGenerator { return &ReasoningGenerator{} }

// Explain returns one sentence per category: documentation, community,
// tenure, risk, area. The wording does not depend on the decision.
func (ReasoningGenerator) Explain(r claim.Record, _ *DecisionPrediction, risk *RiskAssessment) []string {
	out := make([]string, 0, len(reasoningCategories))
	for _, c := range reasoningCategories {
		v := c.value(r, risk)
		for _, t := range c.tiers {
			if t.when(v) {
				out = append(out, t.say(v))
				break
			}
		}
	}
	return out
}
