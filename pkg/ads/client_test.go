package ads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/creative-sorter/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewFromConfig(config.AdsConfig{
		APIKey:     "secret",
		BaseURL:    srv.URL + "/",
		RateLimit:  6000,
		BurstLimit: 10,
	})
	require.NoError(t, err)
	return c
}

func TestNewFromConfig(t *testing.T) {
	_, err := NewFromConfig(config.AdsConfig{})
	assert.Error(t, err)

	_, err = NewFromConfig(config.AdsConfig{APIKey: "k", Timeout: "soon"})
	assert.Error(t, err)

	c, err := NewFromConfig(config.AdsConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.False(t, c.IsDemoKey())
	assert.Equal(t, "https://ads-api.example.com", c.baseURL)
}

func TestNewUpdater_DemoKey(t *testing.T) {
	u, err := NewUpdater(config.AdsConfig{APIKey: DemoKey})
	require.NoError(t, err)
	_, ok := u.(*Simulator)
	assert.True(t, ok)

	u, err = NewUpdater(config.AdsConfig{APIKey: "live"})
	require.NoError(t, err)
	_, ok = u.(*Client)
	assert.True(t, ok)
}

func TestUpdateBudget_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody budgetRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success"}`))
	})

	res, err := c.UpdateBudget(context.Background(), "AD-1", "A 1", 1200)
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "/v1/ads/AD-1/assets/A%201/budget", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, 1200, gotBody.Budget)
}

func TestUpdateBudget_EmptyBodyIsSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	res, err := c.UpdateBudget(context.Background(), "AD-1", "A1", 0)
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, "success", res.Status)
}

func TestUpdateBudget_PlatformErrorField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"rejected","error":"budget below minimum"}`))
	})

	res, err := c.UpdateBudget(context.Background(), "AD-1", "A1", 5)
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Equal(t, "budget below minimum", res.Error)
}

func TestUpdateBudget_ErrorKeyPresenceFails(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status string
	}{
		{"empty error string", `{"error": ""}`, ""},
		{"null error with ok status", `{"status":"ok","error": null}`, "ok"},
		{"structured error", `{"error": {"code": 42}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			res, err := c.UpdateBudget(context.Background(), "AD-1", "A1", 1200)
			require.NoError(t, err)
			assert.True(t, res.Failed())
			assert.True(t, res.Rejected)
			assert.Equal(t, tt.status, res.Status)
		})
	}
}

func TestUpdateResult_Failed(t *testing.T) {
	assert.False(t, UpdateResult{Status: "success"}.Failed())
	assert.True(t, UpdateResult{Error: "nope"}.Failed())
	assert.True(t, UpdateResult{Rejected: true}.Failed())

	var res UpdateResult
	require.NoError(t, json.Unmarshal([]byte(`{"status":"success"}`), &res))
	assert.False(t, res.Failed())
}

func TestUpdateBudget_HTTPStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	res, err := c.UpdateBudget(context.Background(), "AD-1", "A1", 5)
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Error, "status 429")
	assert.Equal(t, ErrRateLimit, classifyMessage(res.Error))
}

func TestUpdateBudget_TransportError(t *testing.T) {
	c, err := NewFromConfig(config.AdsConfig{APIKey: "k", RateLimit: 6000})
	require.NoError(t, err)
	c.httpClient = doFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	_, err = c.UpdateBudget(context.Background(), "AD-1", "A1", 5)
	require.Error(t, err)
	assert.Equal(t, ErrNetwork, ClassifyError(err))
}

func TestUpdateBudget_CancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.UpdateBudget(ctx, "AD-1", "A1", 5)
	assert.Error(t, err)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorType
	}{
		{"status 401: unauthorized", ErrAuthFailed},
		{"403 Forbidden", ErrAuthFailed},
		{"context deadline exceeded", ErrTimeout},
		{"i/o timeout", ErrTimeout},
		{"no such host", ErrNetwork},
		{"429 Too Many Requests", ErrRateLimit},
		{"boom", ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(errors.New(tt.msg)))
		})
	}
	assert.Equal(t, ErrUnknown, ClassifyError(nil))
	assert.NotEmpty(t, ErrRateLimit.HumanMessage())
	assert.Equal(t, "rate_limit", ErrRateLimit.String())
}

func TestSimulator(t *testing.T) {
	s := NewSimulator()
	res, err := s.UpdateBudget(context.Background(), "AD-1", "A1", 800)
	require.NoError(t, err)
	assert.False(t, res.Failed())

	b, ok := s.Budget("AD-1", "A1")
	assert.True(t, ok)
	assert.Equal(t, 800, b)
	assert.Equal(t, 1, s.Calls())
}

type doFunc func(*http.Request) (*http.Response, error)

func (f doFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }
