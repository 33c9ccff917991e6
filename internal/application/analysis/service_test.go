package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/claim_dss"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/common"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

var (
	genOnce sync.Once
	gen     *claim_dss.Generation
	genErr  error
)

func testGeneration(t *testing.T) *claim_dss.Generation {
	t.Helper()
	genOnce.Do(func() {
		var a *claim_dss.Artifacts
		a, genErr = claim_dss.NewTrainer(claim_dss.DefaultTrainerOptions(), nil).Train(context.Background(), claim_dss.DefaultCorpusSize)
		if genErr != nil {
			return
		}
		gen, genErr = claim_dss.NewGeneration(a, claim_dss.ReferenceOptions{Size: claim_dss.DefaultReferenceSize, Seed: claim_dss.DefaultReferenceSeed})
	})
	require.NoError(t, genErr)
	return gen
}

type staticProvider struct {
	g   *claim_dss.Generation
	err error
}

func (p staticProvider) Acquire(context.Context) (*claim_dss.Generation, error) { return p.g, p.err }

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishEvent(ctx context.Context, eventType, key string, payload any) error {
	args := m.Called(ctx, eventType, key, payload)
	return args.Error(0)
}

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(step)
		return t
	}
}

func ptr[T any](v T) *T { return &v }

func scenarioA() claim.Input {
	return claim.Input{
		AreaClaimed:         ptr(2.0),
		DocumentationScore:  ptr(0.9),
		CommunitySupport:    ptr(0.9),
		LegalCompliance:     ptr(0.9),
		EnvironmentalImpact: ptr(0.1),
		YearsOfUse:          ptr(30.0),
		PreviousViolations:  ptr(0),
	}
}

func scenarioB() claim.Input {
	return claim.Input{
		AreaClaimed:         ptr(12.0),
		EnvironmentalImpact: ptr(0.9),
		PreviousViolations:  ptr(2),
	}
}

func TestAnalyze_ScenarioA(t *testing.T) {
	g := testGeneration(t)
	metrics := common.NewInMemoryIntelligenceMetrics()
	svc := NewService(staticProvider{g: g}, []Option{WithMetrics(metrics), WithClock(steppingClock(250 * time.Millisecond))})

	res, err := svc.Analyze(context.Background(), scenarioA(), nil)
	require.NoError(t, err)

	assert.Equal(t, claim_dss.DecisionApproved, res.RecommendedAction)
	assert.Equal(t, claim_dss.RiskLevelLow, res.RiskLevel)
	assert.Empty(t, res.RiskFactors)
	assert.NotNil(t, res.RiskFactors)
	assert.Len(t, res.Reasoning, 5)
	assert.Len(t, res.PrecedentCases, claim_dss.DefaultTopK)
	assert.Len(t, res.Probabilities, 3)
	assert.Equal(t, res.Probabilities[res.RecommendedAction], res.Confidence)
	assert.Equal(t, g.Meta.ID, res.ModelGeneration)
	assert.NotEmpty(t, res.ID)
	assert.NotEmpty(t, res.ClaimID)
	assert.NotEqual(t, res.ID, res.ClaimID)
	assert.Empty(t, res.Warnings)
	assert.NotNil(t, res.Warnings)
	assert.InDelta(t, 0.25, res.ProcessingTime, 1e-9)

	assert.Equal(t, int64(1), metrics.Analyses)
	assert.Equal(t, int64(1), metrics.Decisions[string(claim_dss.DecisionApproved)])
}

func TestAnalyze_ScenarioB(t *testing.T) {
	svc := NewService(staticProvider{g: testGeneration(t)}, nil)

	res, err := svc.Analyze(context.Background(), scenarioB(), nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.RiskScore, 0.6)
	assert.Contains(t, []claim_dss.RiskLevel{claim_dss.RiskLevelHigh, claim_dss.RiskLevelCritical}, res.RiskLevel)

	types := make([]string, 0, len(res.RiskFactors))
	for _, f := range res.RiskFactors {
		types = append(types, f.Type)
	}
	assert.Equal(t, []string{"Environmental Impact", "Large Area Claim", "Compliance History"}, types)
}

func TestAnalyze_KeepsGivenClaimIDAndSignals(t *testing.T) {
	svc := NewService(staticProvider{g: testGeneration(t)}, nil)
	in := scenarioA()
	in.ClaimID = ptr("FRA-2024-0042")
	in.AreaClaimed = nil

	signals := claim.ExtractSignals([]claim.DocumentEntity{
		{Type: claim.EntityArea, Value: "5 acres", Confidence: 0.9},
		{Type: claim.EntityVillage, Value: "Saranda", Confidence: 0.95},
		{Type: claim.EntityPerson, Value: "Ignored", Confidence: 0.4},
	})

	res, err := svc.Analyze(context.Background(), in, signals)
	require.NoError(t, err)
	assert.Equal(t, "FRA-2024-0042", res.ClaimID)
	assert.InDelta(t, 5*claim.HectaresPerAcre, res.Claim.AreaClaimed, 1e-9)
	assert.Equal(t, "Saranda", res.Claim.Village)
	assert.Empty(t, res.Claim.ClaimantName)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "1 document entities below confidence")
}

func TestAnalyze_SeparatesUnusableEntities(t *testing.T) {
	svc := NewService(staticProvider{g: testGeneration(t)}, nil)
	signals := claim.ExtractSignals([]claim.DocumentEntity{
		{Type: claim.EntityArea, Value: "12 bigha", Confidence: 0.9},
		{Type: "DATE", Value: "12/03/2021", Confidence: 0.99},
	})

	res, err := svc.Analyze(context.Background(), scenarioA(), signals)
	require.NoError(t, err)
	assert.Equal(t, []string{"2 document entities had an unknown type or an unreadable area and were ignored"}, res.Warnings)
}

func TestAnalyze_UnknownCategoryWarns(t *testing.T) {
	metrics := common.NewInMemoryIntelligenceMetrics()
	svc := NewService(staticProvider{g: testGeneration(t)}, []Option{WithMetrics(metrics)})
	in := scenarioA()
	in.State = ptr("Kerala")

	res, err := svc.Analyze(context.Background(), in, nil)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], `unknown state "Kerala"`)
	assert.Equal(t, int64(1), metrics.UnknownFields[claim.FieldState])
}

func TestAnalyze_ModelFailureIsAnalysisFailed(t *testing.T) {
	metrics := common.NewInMemoryIntelligenceMetrics()
	cause := errors.New(errors.ErrCodeArtifactsCorrupt, "bad checksum")
	svc := NewService(staticProvider{err: errors.Wrap(cause, errors.ErrCodeModelNotAvailable, "model unavailable")},
		[]Option{WithMetrics(metrics)})

	res, err := svc.Analyze(context.Background(), scenarioA(), nil)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAnalysisFailed, errors.GetCode(err))
	assert.True(t, errors.IsCode(err, errors.ErrCodeArtifactsCorrupt))
	assert.Equal(t, int64(1), metrics.FailedAnalyses)
}

func TestAnalyze_InvalidClaim(t *testing.T) {
	svc := NewService(staticProvider{g: testGeneration(t)}, nil)
	in := scenarioA()
	in.FamilySize = ptr(-1)

	_, err := svc.Analyze(context.Background(), in, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidClaim))
}

func TestAnalyze_CancelledContext(t *testing.T) {
	svc := NewService(staticProvider{g: testGeneration(t)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, scenarioA(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAnalysisFailed))
}

func TestAnalyze_PublishesEvent(t *testing.T) {
	pub := new(MockEventPublisher)
	pub.On("PublishEvent", mock.Anything, EventTypeClaimAnalyzed, "c-1", mock.MatchedBy(func(ev ClaimAnalyzedEvent) bool {
		return ev.ClaimID == "c-1" && ev.RecommendedAction.IsValid() && ev.State == claim.StateJharkhand
	})).Return(nil).Once()

	svc := NewService(staticProvider{g: testGeneration(t)}, []Option{WithEventPublisher(pub)})
	in := scenarioA()
	in.ClaimID = ptr("c-1")
	_, err := svc.Analyze(context.Background(), in, nil)
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestAnalyze_PublishFailureDoesNotFailAnalysis(t *testing.T) {
	pub := new(MockEventPublisher)
	pub.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	svc := NewService(staticProvider{g: testGeneration(t)}, []Option{WithEventPublisher(pub)})
	res, err := svc.Analyze(context.Background(), scenarioB(), nil)
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func TestAnalyze_DeterministicApartFromIdentity(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(staticProvider{g: testGeneration(t)}, []Option{WithTopK(3)},
		claim_dss.WithClock(func() time.Time { return now }), claim_dss.WithDateSeed(9))

	a, err := svc.Analyze(context.Background(), scenarioB(), nil)
	require.NoError(t, err)
	b, err := svc.Analyze(context.Background(), scenarioB(), nil)
	require.NoError(t, err)

	assert.Equal(t, a.RecommendedAction, b.RecommendedAction)
	assert.Equal(t, a.Probabilities, b.Probabilities)
	assert.Equal(t, a.RiskScore, b.RiskScore)
	assert.Equal(t, a.Reasoning, b.Reasoning)
	require.Len(t, a.PrecedentCases, 3)
	for i := range a.PrecedentCases {
		assert.Equal(t, a.PrecedentCases[i].ID, b.PrecedentCases[i].ID)
	}
}
