package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ForestRights-DSS/internal/config"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/internal/intelligence/claim_dss"
)

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Server.Mode = "test"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Models.Dir = dir
	cfg.Models.CorpusSize = 200
	cfg.Models.ReferenceSize = 20
	cfg.Metrics.Enabled = true
	require.NoError(t, cfg.Validate())
	return cfg
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	app, err := New(context.Background(), cfg, nil, Options{Version: "test"})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

// get returns status 0 when the request fails so it can be polled.
func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		return 0, ""
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestApp_InitializeTrainsThenReloads(t *testing.T) {
	dir := t.TempDir()

	first := newApp(t, testConfig(t, dir))
	report, err := first.Initialize(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Loaded)
	assert.True(t, report.Status.Ready)
	require.NotNil(t, report.SmokeTest)
	assert.True(t, report.SmokeTest.RecommendedAction.IsValid())
	assert.Equal(t, 200, report.Status.Generation.CorpusSize)

	second := newApp(t, testConfig(t, dir))
	again, err := second.Initialize(context.Background())
	require.NoError(t, err)
	assert.True(t, again.Loaded)
	assert.Equal(t, report.Status.Generation.ID, again.Status.Generation.ID)
}

func TestApp_ServeAndShutdown(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Models.WarmUp = true
	app := newApp(t, cfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		code, _ := get(t, base+"/healthz")
		return code == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		code, _ := get(t, base+"/readyz")
		return code == http.StatusOK
	}, 30*time.Second, 50*time.Millisecond, "warm-up should make the service ready")

	code, body := get(t, base+cfg.Metrics.Path)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "fradss_health_check_status")

	resp, err := http.Post(base+"/api/v1/dss/analyze", "application/json", strings.NewReader(`{"area_claimed": 2.5}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestApp_RedisCoordinatesReplicas(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	withRedis := func() *config.Config {
		cfg := testConfig(t, dir)
		cfg.Redis.Enabled = true
		cfg.Redis.Addrs = []string{mr.Addr()}
		cfg.Models.TrainingLockTTL = 10 * time.Second
		return cfg
	}
	trainer := newApp(t, withRedis())
	follower := newApp(t, withRedis())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = follower.Serve(ctx, ln) }()

	// The subscription is confirmed before the listener starts serving.
	require.Eventually(t, func() bool {
		code, _ := get(t, fmt.Sprintf("http://%s/healthz", ln.Addr()))
		return code == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	code, body := get(t, fmt.Sprintf("http://%s/readyz", ln.Addr()))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, `"redis":{"status":"healthy"`)

	meta, err := trainer.Models().TrainAll(context.Background(), 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		g := follower.Models().Current()
		return g != nil && g.Meta.ID == meta.ID
	}, 10*time.Second, 20*time.Millisecond)
	assert.Equal(t, claim_dss.ModelStateActive, follower.Models().Status().State)
}

func TestLockRetryCount(t *testing.T) {
	tests := []struct {
		ttl, delay time.Duration
		want       int
	}{
		{5 * time.Minute, 250 * time.Millisecond, 1201},
		{time.Second, 300 * time.Millisecond, 5},
		{time.Second, 0, 1},
		{0, time.Second, 1},
	}
	for _, tt := range tests {
		got := lockRetryCount(tt.ttl, tt.delay)
		assert.Equal(t, tt.want, got, "ttl=%s delay=%s", tt.ttl, tt.delay)
		if tt.ttl > 0 && tt.delay > 0 {
			assert.GreaterOrEqual(t, time.Duration(got-1)*tt.delay, tt.ttl)
		}
	}
}

func TestApp_TrainingLockWaitsForHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, t.TempDir())
	cfg.Redis.Enabled = true
	cfg.Redis.Addrs = []string{mr.Addr()}
	cfg.Models.TrainingLockTTL = 6 * time.Second

	lockFor := func() claim_dss.TrainingLock {
		a := &App{cfg: cfg, logger: logging.NewNopLogger()}
		lock, err := a.initRedis()
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.redisClient.Close() })
		return lock
	}
	holder, waiter := lockFor(), lockFor()

	ctx := context.Background()
	require.NoError(t, holder.Lock(ctx))

	acquired := make(chan error, 1)
	go func() { acquired <- waiter.Lock(ctx) }()

	// A replica training for longer than a few seconds must not make the
	// other one give up.
	select {
	case err := <-acquired:
		t.Fatalf("lock acquired while held: %v", err)
	case <-time.After(3500 * time.Millisecond):
	}

	require.NoError(t, holder.Unlock(ctx))
	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter did not acquire the released lock")
	}
	require.NoError(t, waiter.Unlock(ctx))
}

func TestApp_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Redis.Enabled = true
	cfg.Redis.Addrs = []string{"127.0.0.1:1"}
	cfg.Redis.DialTimeout = 200 * time.Millisecond

	_, err := New(context.Background(), cfg, nil, Options{})
	require.Error(t, err)
}

func TestApp_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Metrics.Enabled = false
	app := newApp(t, cfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = app.Serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s", ln.Addr())
	require.Eventually(t, func() bool {
		code, _ := get(t, url+"/healthz")
		return code == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	code, _ := get(t, url+"/metrics")
	assert.Equal(t, http.StatusNotFound, code)
}
