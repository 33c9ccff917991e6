package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// fakeAPI answers the endpoints the CLI calls with canned documents and
// records the requests it saw.
type fakeAPI struct {
	mu     sync.Mutex
	paths  []string
	bodies map[string]string
}

func newFakeAPI(t *testing.T) (*fakeAPI, string) {
	f := &fakeAPI{bodies: make(map[string]string)}
	server := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(server.Close)
	return f, server.URL
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	f.bodies[r.URL.Path] = string(body)
	f.mu.Unlock()

	const meta = `{"id":"gen-remote","trained_at":"2026-01-02T03:04:05Z","corpus_size":500,"seed":42,"feature_columns":["area_claimed"]}`
	switch r.Method + " " + r.URL.Path {
	case "POST /api/v1/dss/analyze", "POST /api/v1/analyze-claim":
		_, _ = w.Write([]byte(`{"id":"an-1","claim_id":"FRA-REMOTE","recommended_action":"approved","confidence":0.81,
			"reasoning":["remote reasoning"],"risk_level":"low","risk_score":0.12,"model_generation":"gen-remote"}`))
	case "POST /api/v1/models/train":
		_, _ = w.Write([]byte(`{"status":"trained","data":` + meta + `}`))
	case "POST /api/v1/models/reset":
		_, _ = w.Write([]byte(`{"status":"reset","data":` + meta + `}`))
	case "GET /api/v1/models/status":
		_, _ = w.Write([]byte(`{"state":"ready","ready":true,"generation":` + meta + `,"reference_size":20}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":"error","code":"COMMON_005","message":"route not found"}`))
	}
}

func (f *fakeAPI) body(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

func (f *fakeAPI) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func TestAnalyze_Remote(t *testing.T) {
	api, url := newFakeAPI(t)

	out, _, err := runCLI(t, `{"area_claimed": 2.5}`, []string{"--server", url, "analyze", "--claim", "-"}, failingFactory(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Claim:          FRA-REMOTE")
	assert.Contains(t, out, "Recommendation: approved (confidence 0.81)")
	assert.Contains(t, out, "  - remote reasoning")
	assert.JSONEq(t, `{"area_claimed": 2.5}`, api.body("/api/v1/dss/analyze"))

	docPath := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(docPath, []byte(`{"entities":[{"type":"VILLAGE","value":"Jamguda","confidence":0.9}]}`), 0o644))
	_, _, err = runCLI(t, `{}`, []string{"--server", url, "analyze", "--claim", "-", "--document", docPath}, failingFactory(t))
	require.NoError(t, err)

	var sent struct {
		Document struct {
			Entities []map[string]any `json:"entities"`
		} `json:"document"`
	}
	require.NoError(t, json.Unmarshal([]byte(api.body("/api/v1/analyze-claim")), &sent))
	require.Len(t, sent.Document.Entities, 1)
	assert.Equal(t, "Jamguda", sent.Document.Entities[0]["value"])
}

func TestModel_Remote(t *testing.T) {
	api, url := newFakeAPI(t)

	out, _, err := runCLI(t, "", []string{"--server", url, "model", "train", "--corpus-size", "500"}, failingFactory(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Models trained: generation gen-remote")
	assert.JSONEq(t, `{"corpus_size":500}`, api.body("/api/v1/models/train"))

	out, _, err = runCLI(t, "", []string{"--server", url, "model", "reset"}, failingFactory(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Models reset: generation gen-remote")

	out, _, err = runCLI(t, "", []string{"--server", url, "-o", "json", "model", "status"}, failingFactory(t))
	require.NoError(t, err)
	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, true, status["ready"])

	assert.Equal(t, []string{
		"POST /api/v1/models/train",
		"POST /api/v1/models/reset",
		"GET /api/v1/models/status",
	}, api.calls())

	_, _, err = runCLI(t, "", []string{"--server", url, "model", "init"}, failingFactory(t))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBadRequest))
}

func TestRemote_InvalidServerURL(t *testing.T) {
	_, _, err := runCLI(t, "", []string{"--server", "localhost:8000", "model", "status"}, failingFactory(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid client configuration")
}
