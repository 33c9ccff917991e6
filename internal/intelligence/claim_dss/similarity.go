package claim_dss

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
)

// DefaultTopK is the number of precedents returned when k is not positive.
const DefaultTopK = 5

// Precedent dates are backdated by a whole number of days in this range.
const (
	minBackdateDays = 30
	maxBackdateDays = 365 // exclusive
)

// SimilarCase is one precedent.
type SimilarCase struct {
	ID          string        `json:"id"`
	Similarity  float64       `json:"similarity"`
	Outcome     DecisionClass `json:"outcome"`
	AreaClaimed float64       `json:"area_claimed"`
	YearsOfUse  int           `json:"years_of_use"`
	State       string        `json:"state"`
	Summary     string        `json:"summary"`
	Date        time.Time     `json:"date"`
}

// Describe renders the text template both queries and reference cases are
// indexed by.
func Describe(r claim.Record) string {
	return fmt.Sprintf("Area: %.1f hectares, Family: %d members, Use: %.0f years, Type: %s, State: %s, Documentation: %.2f",
		r.AreaClaimed, r.FamilySize, r.YearsOfUse, r.LandType, r.State, r.DocumentationScore)
}

// SimilarityIndex retrieves precedents from a generation's reference corpus.
type SimilarityIndex struct {
	models GenerationProvider
	topK   int
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// SimilarityOption customizes a SimilarityIndex.
type SimilarityOption func(*SimilarityIndex)

// WithClock fixes the time precedent dates are backdated from.
func WithClock(now func() time.Time) SimilarityOption {
	return func(s *SimilarityIndex) { s.now = now }
}

// WithDateSeed makes precedent dates reproducible.
func WithDateSeed(seed uint64) SimilarityOption {
	return func(s *SimilarityIndex) { s.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// NewSimilarityIndex returns an index returning topK cases by default.
func NewSimilarityIndex(models GenerationProvider, topK int, opts ...SimilarityOption) *SimilarityIndex {
	if topK <= 0 {
		topK = DefaultTopK
	}
	s := &SimilarityIndex{
		models: models,
		topK:   topK,
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FindSimilar acquires the active generation and searches it.
func (s *SimilarityIndex) FindSimilar(ctx context.Context, r claim.Record, k int) ([]SimilarCase, error) {
	g, err := s.models.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return s.Search(g, r, k), nil
}

// Search returns the k reference cases most similar to r by cosine
// similarity of their descriptions, best first. Equal similarities keep
// reference corpus order.
func (s *SimilarityIndex) Search(g *Generation, r claim.Record, k int) []SimilarCase {
	if k <= 0 {
		k = s.topK
	}
	query := g.artifacts.Text.Transform(Describe(r))

	type scored struct {
		idx int
		sim float64
	}
	ranked := make([]scored, len(g.reference))
	for i, ref := range g.reference {
		ranked[i] = scored{idx: i, sim: Cosine(query, ref.vector)}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].sim > ranked[b].sim })
	if k < len(ranked) {
		ranked = ranked[:k]
	}

	now := s.now()
	out := make([]SimilarCase, len(ranked))
	for i, hit := range ranked {
		ex := g.reference[hit.idx].example
		out[i] = SimilarCase{
			ID:          fmt.Sprintf("case-%03d", hit.idx),
			Similarity:  hit.sim,
			Outcome:     ex.Decision,
			AreaClaimed: ex.Record.AreaClaimed,
			YearsOfUse:  int(ex.Record.YearsOfUse),
			State:       ex.Record.State,
			Summary: fmt.Sprintf("Similar %s claim in %s for %.1f hectares",
				ex.Record.LandType, ex.Record.State, ex.Record.AreaClaimed),
			Date: now.AddDate(0, 0, -s.backdateDays()),
		}
	}
	return out
}

func (s *SimilarityIndex) backdateDays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return minBackdateDays + s.rng.IntN(maxBackdateDays-minBackdateDays)
}
