package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, opts...)
	require.NoError(t, err)
	return client
}

type testLogger struct {
	mu      sync.Mutex
	lastMsg string
	count   int32
}

func (l *testLogger) Debugf(format string, args ...interface{}) { l.log(format, args...) }
func (l *testLogger) Infof(format string, args ...interface{})  { l.log(format, args...) }
func (l *testLogger) Errorf(format string, args ...interface{}) { l.log(format, args...) }

func (l *testLogger) log(format string, args ...interface{}) {
	atomic.AddInt32(&l.count, 1)
	l.mu.Lock()
	l.lastMsg = fmt.Sprintf(format, args...)
	l.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Constructor Tests
// ---------------------------------------------------------------------------

func TestNewClient_Success(t *testing.T) {
	c, err := NewClient("http://fradss.example.com")
	require.NoError(t, err)
	assert.Equal(t, "http://fradss.example.com", c.baseURL)
	assert.Equal(t, 3, c.retryMax)
	assert.Contains(t, c.userAgent, "fradss-go-client/")
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "ftp://invalid", "invalid-url", "http://[::1"} {
		_, err := NewClient(u)
		assert.ErrorIs(t, err, ErrInvalidConfig, u)
	}
}

func TestNewClient_BaseURLTrailingSlash(t *testing.T) {
	c, err := NewClient("http://fradss.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "http://fradss.example.com", c.baseURL)
}

func TestNewClient_WithOptions(t *testing.T) {
	customClient := &http.Client{}
	logger := &testLogger{}
	c, err := NewClient("http://fradss.example.com",
		WithHTTPClient(customClient),
		WithTimeout(7*time.Second),
		WithLogger(logger),
		WithRetryMax(5),
		WithRetryWait(time.Second, 3*time.Second),
		WithUserAgent("ops-script/1"),
	)
	require.NoError(t, err)
	assert.Same(t, customClient, c.httpClient)
	assert.Equal(t, 7*time.Second, c.httpClient.Timeout)
	assert.Equal(t, logger, c.logger)
	assert.Equal(t, 5, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 3*time.Second, c.retryWaitMax)
	assert.Equal(t, "ops-script/1", c.userAgent)
}

func TestNewClient_IgnoresInvalidOptions(t *testing.T) {
	c, err := NewClient("http://fradss.example.com",
		WithHTTPClient(nil),
		WithLogger(nil),
		WithRetryMax(-1),
		WithRetryWait(time.Second, time.Millisecond),
		WithUserAgent(""),
	)
	require.NoError(t, err)
	assert.NotNil(t, c.httpClient)
	assert.NotNil(t, c.logger)
	assert.Equal(t, 3, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 5*time.Second, c.retryWaitMax)
	assert.Contains(t, c.userAgent, "fradss-go-client/")
}

func TestClient_SubClients_LazyInit(t *testing.T) {
	c, _ := NewClient("http://fradss.example.com")
	assert.Nil(t, c.claims)
	assert.Nil(t, c.models)

	var wg sync.WaitGroup
	claims := make([]*ClaimsClient, 50)
	for i := range claims {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			claims[idx] = c.Claims()
		}(i)
	}
	wg.Wait()
	for _, cc := range claims[1:] {
		assert.Same(t, claims[0], cc)
	}
	assert.Same(t, c.Models(), c.Models())
}

// ---------------------------------------------------------------------------
// HTTP Execution Tests (do)
// ---------------------------------------------------------------------------

func TestClient_Do_RequestHeaders(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Contains(t, r.Header.Get("User-Agent"), "fradss-go-client/")
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, handler)
	require.NoError(t, c.post(context.Background(), "/test", map[string]int{"a": 1}, nil))
}

func TestClient_Do_NilBody(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, int64(0), r.ContentLength)
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, handler)
	assert.NoError(t, c.get(context.Background(), "test", nil))
}

func TestClient_Do_EchoesBody(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}
	c := newTestClient(t, handler)

	type payload struct {
		Val string `json:"val"`
	}
	var res payload
	require.NoError(t, c.post(context.Background(), "/post", payload{Val: "A"}, &res))
	assert.Equal(t, "A", res.Val)
}

func TestClient_Do_APIError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","code":"COMMON_010","message":"request does not match the claim schema","details":["area_claimed: Must be greater than or equal to 0"]}`))
	}
	c := newTestClient(t, handler)
	err := c.get(context.Background(), "/test", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "COMMON_010", apiErr.Code)
	assert.Equal(t, "request does not match the claim schema", apiErr.Message)
	assert.Equal(t, []string{"area_claimed: Must be greater than or equal to 0"}, apiErr.Details)
	assert.NotEmpty(t, apiErr.RequestID)
	assert.True(t, apiErr.IsValidation())
}

func TestClient_Do_NonJSONError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	}
	c := newTestClient(t, handler)
	err := c.get(context.Background(), "/test", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestClient_Do_NoRetryOnApplicationErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		var calls int32
		handler := func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(status)
		}
		c := newTestClient(t, handler, WithRetryWait(time.Millisecond, 2*time.Millisecond))
		assert.Error(t, c.get(context.Background(), "/test", nil))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "status %d", status)
	}
}

func TestClient_Do_RetriesGatewayErrors(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
	logger := &testLogger{}
	c := newTestClient(t, handler, WithLogger(logger), WithRetryWait(time.Millisecond, 2*time.Millisecond))
	assert.NoError(t, c.get(context.Background(), "/test", nil))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Greater(t, atomic.LoadInt32(&logger.count), int32(0))
}

func TestClient_Do_RetryExhausted(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}
	c := newTestClient(t, handler, WithRetryMax(2), WithRetryWait(time.Millisecond, 2*time.Millisecond))
	err := c.get(context.Background(), "/test", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusGatewayTimeout, apiErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Do_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c, err := NewClient(server.URL, WithRetryMax(1), WithRetryWait(time.Millisecond, 2*time.Millisecond))
	require.NoError(t, err)
	assert.Error(t, c.get(context.Background(), "/test", nil))
}

func TestClient_Do_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	assert.ErrorIs(t, c.get(ctx, "/test", nil), context.Canceled)
}

func TestClient_Do_ContextTimeout(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, handler)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.get(ctx, "/test", nil), context.DeadlineExceeded)
}

func TestClient_CalculateBackoff(t *testing.T) {
	c, _ := NewClient("http://fradss.example.com", WithRetryWait(100*time.Millisecond, 300*time.Millisecond))
	first := c.calculateBackoff(1)
	assert.GreaterOrEqual(t, first, 100*time.Millisecond)
	assert.Less(t, first, 125*time.Millisecond)

	capped := c.calculateBackoff(6)
	assert.GreaterOrEqual(t, capped, 300*time.Millisecond)
	assert.Less(t, capped, 375*time.Millisecond)
}

// ---------------------------------------------------------------------------
// APIError Tests
// ---------------------------------------------------------------------------

func TestAPIError_Methods(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 404}).IsNotFound())
	assert.True(t, (&APIError{StatusCode: 413}).IsValidation())
	assert.True(t, (&APIError{StatusCode: 503}).IsUnavailable())
	assert.True(t, (&APIError{StatusCode: 503}).IsServerError())
	assert.False(t, (&APIError{StatusCode: 409}).IsServerError())

	eStr := (&APIError{Code: "DSS_010", StatusCode: 400, Message: "bad size", RequestID: "ID"}).Error()
	assert.Equal(t, "fradss: DSS_010 (HTTP 400): bad size [request_id=ID]", eStr)

	withDetails := (&APIError{Code: "COMMON_010", StatusCode: 400, Message: "m", RequestID: "ID", Details: []string{"a", "b"}}).Error()
	assert.Equal(t, "fradss: COMMON_010 (HTTP 400): m [request_id=ID]: a; b", withDetails)
}
