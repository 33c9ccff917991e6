package claim_dss

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// memBlobStore is an in-memory BlobStore.
type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: map[string][]byte{}}
}

func (m *memBlobStore) PutObject(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	m.puts++
	return nil
}

func (m *memBlobStore) GetObject(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeObjectNotFound, "no such object").WithDetail(key)
	}
	return append([]byte(nil), b...), nil
}

func (m *memBlobStore) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
		}
	}
	return nil
}

func (m *memBlobStore) keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

// staticProvider serves a fixed generation.
type staticProvider struct{ g *Generation }

func (p staticProvider) Acquire(context.Context) (*Generation, error) { return p.g, nil }

var (
	fixtureOnce      sync.Once
	fixtureArtifacts *Artifacts
	fixtureErr       error
)

// trainedArtifacts trains the production configuration once per test binary.
func trainedArtifacts(t *testing.T) *Artifacts {
	t.Helper()
	fixtureOnce.Do(func() {
		fixtureArtifacts, fixtureErr = NewTrainer(DefaultTrainerOptions(), nil).
			Train(context.Background(), DefaultCorpusSize)
	})
	require.NoError(t, fixtureErr)
	return fixtureArtifacts
}

func trainedGeneration(t *testing.T) *Generation {
	t.Helper()
	g, err := NewGeneration(trainedArtifacts(t), ReferenceOptions{Size: DefaultReferenceSize, Seed: DefaultReferenceSeed})
	require.NoError(t, err)
	return g
}

// smallTrainer keeps lifecycle tests fast.
func smallTrainer() *Trainer {
	opts := DefaultTrainerOptions()
	opts.Classifier.Epochs = 20
	return NewTrainer(opts, nil)
}

func smallServiceOptions() ServiceOptions {
	return ServiceOptions{CorpusSize: 200, Reference: ReferenceOptions{Size: 20, Seed: 7}}
}

// scenarioA is a well-documented, low-impact, long-tenure claim.
func scenarioA() claim.Record {
	return claim.Input{
		AreaClaimed:         ptrTo(2.0),
		DocumentationScore:  ptrTo(0.9),
		CommunitySupport:    ptrTo(0.9),
		LegalCompliance:     ptrTo(0.9),
		EnvironmentalImpact: ptrTo(0.1),
		YearsOfUse:          ptrTo(30.0),
		PreviousViolations:  ptrTo(0),
	}.Resolve(nil)
}

// scenarioB is a large, high-impact claim with a violation history.
func scenarioB() claim.Record {
	return claim.Input{
		AreaClaimed:         ptrTo(12.0),
		EnvironmentalImpact: ptrTo(0.9),
		PreviousViolations:  ptrTo(2),
	}.Resolve(nil)
}

func ptrTo[T any](v T) *T { return &v }
