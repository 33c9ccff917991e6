package claim_dss

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
)

// DecisionClass is a recommended action.
type DecisionClass string

const (
	DecisionApproved  DecisionClass = "approved"
	DecisionSiteVisit DecisionClass = "site_visit"
	DecisionRejected  DecisionClass = "rejected"
)

// DecisionClasses is the fixed class order used by the classifier.
var DecisionClasses = []DecisionClass{DecisionApproved, DecisionSiteVisit, DecisionRejected}

func (d DecisionClass) String() string { return string(d) }

// IsValid reports whether d is one of DecisionClasses.
func (d DecisionClass) IsValid() bool {
	switch d {
	case DecisionApproved, DecisionSiteVisit, DecisionRejected:
		return true
	}
	return false
}

// TrainingExample is a synthetic claim with its derived labels.
type TrainingExample struct {
	Record         claim.Record  `json:"record"`
	Decision       DecisionClass `json:"decision"`
	DecisionScore  float64       `json:"decision_score"`
	RiskScore      float64       `json:"risk_score"`
	ProcessingDays float64       `json:"processing_days"`
}

// decisionBands maps a decision score to a class, evaluated top to bottom.
var decisionBands = []struct {
	above float64
	class DecisionClass
}{
	{0.7, DecisionApproved},
	{0.4, DecisionSiteVisit},
}

// DecisionForScore applies decisionBands; scores at or below the last band
// are rejected.
func DecisionForScore(score float64) DecisionClass {
	for _, b := range decisionBands {
		if score > b.above {
			return b.class
		}
	}
	return DecisionRejected
}

// Label noise and floor.
const (
	scoreNoiseSigma      = 0.1
	processingNoiseSigma = 5.0
	minProcessingDays    = 7.0
)

// corpusSampler holds one seeded source shared by every distribution, so a
// given seed always yields the same draw sequence.
type corpusSampler struct {
	rng *rand.Rand

	area, distance             distuv.Exponential
	family, violations         distuv.Poisson
	years                      distuv.Gamma
	doc, community, env, legal distuv.Beta
	scoreNoise, daysNoise      distuv.Normal
}

func newCorpusSampler(seed int64) *corpusSampler {
	src := rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
	rng := rand.New(src)
	return &corpusSampler{
		rng:        rng,
		area:       distuv.Exponential{Rate: 1 / 2.5, Src: rng},
		distance:   distuv.Exponential{Rate: 1 / 5.0, Src: rng},
		family:     distuv.Poisson{Lambda: 5, Src: rng},
		violations: distuv.Poisson{Lambda: 0.2, Src: rng},
		years:      distuv.Gamma{Alpha: 2, Beta: 1 / 10.0, Src: rng},
		doc:        distuv.Beta{Alpha: 2, Beta: 1, Src: rng},
		community:  distuv.Beta{Alpha: 3, Beta: 1, Src: rng},
		env:        distuv.Beta{Alpha: 1.5, Beta: 2, Src: rng},
		legal:      distuv.Beta{Alpha: 4, Beta: 1, Src: rng},
		scoreNoise: distuv.Normal{Mu: 0, Sigma: scoreNoiseSigma, Src: rng},
		daysNoise:  distuv.Normal{Mu: 0, Sigma: processingNoiseSigma, Src: rng},
	}
}

func (s *corpusSampler) choose(vocab []string) string {
	return vocab[s.rng.IntN(len(vocab))]
}

// next draws one example. Draw order is fixed: fields first, then noise.
func (s *corpusSampler) next() TrainingExample {
	r := claim.Record{
		AreaClaimed:         s.area.Rand(),
		FamilySize:          int(s.family.Rand()),
		YearsOfUse:          s.years.Rand(),
		DocumentationScore:  s.doc.Rand(),
		CommunitySupport:    s.community.Rand(),
		EnvironmentalImpact: s.env.Rand(),
		LegalCompliance:     s.legal.Rand(),
		DistanceToForest:    s.distance.Rand(),
		PreviousViolations:  int(s.violations.Rand()),
		LandType:            s.choose(claim.LandTypes),
		State:               s.choose(claim.States),
		SeasonApplied:       s.choose(claim.Seasons),
	}

	decision := clip01(DecisionScore(r) + s.scoreNoise.Rand())
	risk := clip01(RiskScore(r) + s.scoreNoise.Rand())
	days := math.Max(ProcessingDays(r)+s.daysNoise.Rand(), minProcessingDays)

	return TrainingExample{
		Record:         r,
		Decision:       DecisionForScore(decision),
		DecisionScore:  decision,
		RiskScore:      risk,
		ProcessingDays: days,
	}
}

// GenerateCorpus returns n synthetic examples. Deterministic in seed, and
// prefix-stable: GenerateCorpus(k, s) equals the first k of GenerateCorpus(n, s)
// for k <= n.
func GenerateCorpus(n int, seed int64) []TrainingExample {
	if n <= 0 {
		return nil
	}
	s := newCorpusSampler(seed)
	out := make([]TrainingExample, n)
	for i := range out {
		out[i] = s.next()
	}
	return out
}

// DecisionScore is the noiseless decision signal of r.
func DecisionScore(r claim.Record) float64 {
	return 0.25*r.DocumentationScore +
		0.20*r.CommunitySupport +
		0.20*r.LegalCompliance +
		0.15*(1-r.EnvironmentalImpact) +
		0.15*math.Min(r.YearsOfUse/50, 1) +
		0.05*(1-math.Min(float64(r.PreviousViolations)/3, 1))
}

// RiskScore is the noiseless risk signal of r.
func RiskScore(r claim.Record) float64 {
	return 0.3*r.EnvironmentalImpact +
		0.2*math.Min(r.AreaClaimed/10, 1) +
		0.2*(float64(r.PreviousViolations)/5) +
		0.15*(1-r.DocumentationScore) +
		0.15*(1-r.LegalCompliance)
}

// ProcessingDays is the noiseless processing-time estimate of r in days.
func ProcessingDays(r claim.Record) float64 {
	return 30 + r.AreaClaimed/5 + float64(r.PreviousViolations)*10
}

func clip01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Records strips the labels.
func Records(examples []TrainingExample) []claim.Record {
	out := make([]claim.Record, len(examples))
	for i, ex := range examples {
		out[i] = ex.Record
	}
	return out
}
