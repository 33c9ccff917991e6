package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ForestRights-DSS/internal/application/analysis"
	"github.com/turtacn/ForestRights-DSS/internal/bootstrap"
	"github.com/turtacn/ForestRights-DSS/internal/config"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/claim_dss"
	apperrors "github.com/turtacn/ForestRights-DSS/pkg/errors"
)

func TestCorpus_DeterministicJSONLines(t *testing.T) {
	args := []string{"corpus", "--size", "12", "--seed", "7"}
	first, _, err := runCLI(t, "", args, failingFactory(t))
	require.NoError(t, err)
	second, _, err := runCLI(t, "", args, failingFactory(t))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	sc := bufio.NewScanner(strings.NewReader(first))
	n := 0
	for sc.Scan() {
		var ex claim_dss.TrainingExample
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ex))
		assert.True(t, ex.Decision.IsValid())
		assert.Greater(t, ex.ProcessingDays, 0.0)
		n++
	}
	assert.Equal(t, 12, n)

	other, _, err := runCLI(t, "", []string{"corpus", "--size", "12", "--seed", "8"}, failingFactory(t))
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestCorpus_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	out, _, err := runCLI(t, "", []string{"corpus", "--size", "10", "--file", path}, failingFactory(t))
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10, strings.Count(string(data), "\n"))
}

func TestCorpus_RejectsSize(t *testing.T) {
	for _, size := range []string{"3", "100001"} {
		_, _, err := runCLI(t, "", []string{"corpus", "--size", size}, failingFactory(t))
		require.Error(t, err, size)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidCorpusRequest), size)
	}
}

func TestModel_Lifecycle(t *testing.T) {
	cfgPath := writeConfig(t)
	model := func(args ...string) map[string]any {
		t.Helper()
		out, _, err := runCLI(t, "", append([]string{"--config", cfgPath, "-o", "json", "model"}, args...))
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		return doc
	}

	status := model("status")
	assert.Equal(t, "empty", status["state"])
	assert.Equal(t, false, status["ready"])

	initDoc := model("init")
	assert.Equal(t, false, initDoc["loaded_from_store"])
	require.NotNil(t, initDoc["smoke_test"])
	initGen := initDoc["status"].(map[string]any)["generation"].(map[string]any)["id"]

	status = model("status")
	assert.Equal(t, true, status["ready"])
	assert.Equal(t, initGen, status["generation"].(map[string]any)["id"])

	trained := model("train", "--corpus-size", "150")
	assert.Equal(t, "trained", trained["status"])
	data := trained["data"].(map[string]any)
	assert.Equal(t, float64(150), data["corpus_size"])
	assert.NotEqual(t, initGen, data["id"])

	again := model("init")
	assert.Equal(t, true, again["loaded_from_store"])

	out, _, err := runCLI(t, "", []string{"--config", cfgPath, "model", "reset"})
	require.NoError(t, err)
	assert.Contains(t, out, "Models reset: generation ")
	assert.Contains(t, out, "Corpus size:    200 (seed 42)")
}

func TestModelTrain_RejectsCorpusSize(t *testing.T) {
	_, _, err := runCLI(t, "", []string{"model", "train", "--corpus-size", "5"}, failingFactory(t))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidCorpusRequest))
}

func TestAnalyze(t *testing.T) {
	cfgPath := writeConfig(t)
	dir := t.TempDir()
	claimPath := filepath.Join(dir, "claim.json")
	require.NoError(t, os.WriteFile(claimPath, []byte(`{"claim_id": "FRA-7", "years_of_use": 40, "documentation_score": 0.9}`), 0o644))
	docPath := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(docPath, []byte(`{"entities": [
		{"type": "AREA", "value": "5 acres", "confidence": 0.95},
		{"type": "VILLAGE", "value": "Jamguda", "confidence": 0.91},
		{"type": "PERSON", "value": "blurred", "confidence": 0.2}
	]}`), 0o644))

	t.Run("json with document", func(t *testing.T) {
		out, _, err := runCLI(t, "", []string{"--config", cfgPath, "-o", "json", "analyze", "--claim", claimPath, "--document", docPath})
		require.NoError(t, err)

		var res analysis.AnalysisResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, "FRA-7", res.ClaimID)
		assert.True(t, res.RecommendedAction.IsValid())
		assert.InDelta(t, 5*0.4047, res.Claim.AreaClaimed, 1e-9)
		assert.Equal(t, "Jamguda", res.Claim.Village)
		assert.NotEmpty(t, res.Reasoning)
	})

	t.Run("text from stdin", func(t *testing.T) {
		out, _, err := runCLI(t, `{"area_claimed": 1.5}`, []string{"--config", cfgPath, "analyze", "--claim", "-"})
		require.NoError(t, err)
		assert.Contains(t, out, "Recommendation: ")
		assert.Contains(t, out, "Reasoning:\n  - ")
		assert.Contains(t, out, "Precedents:")
	})
}

func TestAnalyze_RejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	typo := filepath.Join(dir, "typo.json")
	require.NoError(t, os.WriteFile(typo, []byte(`{"area_claimd": 2}`), 0o644))

	_, _, err := runCLI(t, "", []string{"analyze", "--claim", typo}, failingFactory(t))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSerialization))

	_, _, err = runCLI(t, "", []string{"analyze", "--claim", filepath.Join(dir, "missing.json")}, failingFactory(t))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBadRequest))

	_, _, err = runCLI(t, "", []string{"analyze"}, failingFactory(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "claim" not set`)
}

// fakeApp records Run calls; every other method is unused by serve.
type fakeApp struct {
	ran    bool
	closed bool
}

func (f *fakeApp) Analyzer() analysis.Analyzer     { return nil }
func (f *fakeApp) Models() *claim_dss.ModelService { return nil }
func (f *fakeApp) Initialize(context.Context) (*bootstrap.InitReport, error) {
	return nil, nil
}
func (f *fakeApp) Run(context.Context) error { f.ran = true; return nil }
func (f *fakeApp) Close()                    { f.closed = true }

func TestServe_RunsApplication(t *testing.T) {
	app := &fakeApp{}
	var gotCfg *config.Config
	factory := WithAppFactory(func(_ context.Context, cfg *config.Config, _ logging.Logger) (Application, error) {
		gotCfg = cfg
		return app, nil
	})

	_, _, err := runCLI(t, "", []string{"serve", "--config", writeConfig(t), "--log-level", "error"}, factory)
	require.NoError(t, err)
	assert.True(t, app.ran)
	assert.True(t, app.closed)
	require.NotNil(t, gotCfg)
	assert.Equal(t, 200, gotCfg.Models.CorpusSize)
}
