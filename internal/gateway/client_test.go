package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"usergraph-portal/internal/config"
	"usergraph-portal/internal/domain"
	"usergraph-portal/internal/observability"
	appErrors "usergraph-portal/pkg/errors"
)

func newTestClient(t *testing.T, cacheTTL time.Duration) *Client {
	t.Helper()
	return NewClient(
		config.Backend{
			AuthPath:     "/v1/auth/login",
			GraphPath:    "/v1/graph/fetch",
			FetchTimeout: 5 * time.Second,
		},
		config.Cache{TTL: cacheTTL, MaxItems: 100},
		zap.NewNop(),
		observability.NewCollector("test"),
	)
}

func mustBuildRequest(t *testing.T, phone string) *OutgoingRequest {
	t.Helper()
	req, err := BuildGraphRequest(domain.ContactInput{Phone: phone}, nil)
	require.NoError(t, err)
	return req
}

func TestAuthenticateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "demo@example.com", creds["email"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"abc"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, time.Minute)
	result := c.Authenticate(context.Background(), Settings{BaseURL: srv.URL, APIKey: "test-key"}, "demo@example.com", "password123")

	assert.Equal(t, "abc", result.Token)
	assert.False(t, result.Fallback)
}

func TestAuthenticateAccessTokenFieldName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"xyz"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, time.Minute)
	result := c.Authenticate(context.Background(), Settings{BaseURL: srv.URL}, "a@b.com", "pw")

	assert.Equal(t, "xyz", result.Token)
	assert.False(t, result.Fallback)
}

func TestAuthenticateFallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "token-less body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"ok":true}`))
			},
		},
		{
			name: "body not JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := newTestClient(t, time.Minute)
			result := c.Authenticate(context.Background(), Settings{BaseURL: srv.URL}, "a@b.com", "pw")

			assert.True(t, result.Fallback)
			assert.True(t, strings.HasPrefix(result.Token, "demo-"), "token %q", result.Token)
		})
	}
}

func TestAuthenticateFallbackOnConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // deliberately dead endpoint

	c := newTestClient(t, time.Minute)
	result := c.Authenticate(context.Background(), Settings{BaseURL: srv.URL}, "a@b.com", "pw")

	assert.True(t, result.Fallback)
	assert.NotEmpty(t, result.Token)
}

func TestFetchGraphSuccess(t *testing.T) {
	body := `{"nodes":[{"key":"u1","name":"ignored","type":"user"},{"id":"v9"}],` +
		`"edges":[{"from":"u1","to":"v9","relation":"owns"},{"from":"u1"}]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/graph/fetch", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newTestClient(t, time.Minute)
	result, err := c.FetchGraph(context.Background(), Settings{BaseURL: srv.URL}, "tok-1", mustBuildRequest(t, "5551234567"))
	require.NoError(t, err)

	require.Len(t, result.Nodes, 2)
	assert.Equal(t, "u1", result.Nodes[0].ID)
	assert.Equal(t, map[string]string{"name": "ignored", "type": "user"}, result.Nodes[0].Attributes)

	require.Len(t, result.Edges, 1, "edge without target must be dropped")
	assert.Equal(t, domain.Edge{Source: "u1", Target: "v9", Label: "owns"}, result.Edges[0])

	// Raw body must be retained verbatim for display and export.
	assert.Equal(t, body, string(result.Raw))
}

func TestFetchGraphBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"not found"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, time.Minute)
	_, err := c.FetchGraph(context.Background(), Settings{BaseURL: srv.URL}, "tok", mustBuildRequest(t, "5551234567"))

	require.Error(t, err)
	appErr, ok := appErrors.AsAppError(err)
	require.True(t, ok)
	assert.True(t, appErrors.IsBackend(err))
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
	assert.Equal(t, map[string]interface{}{"message": "not found"}, appErr.ProblemDetail)
}

func TestFetchGraphBackendErrorRawTextDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := newTestClient(t, time.Minute)
	_, err := c.FetchGraph(context.Background(), Settings{BaseURL: srv.URL}, "tok", mustBuildRequest(t, "5551234567"))

	appErr, ok := appErrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, appErr.StatusCode)
	assert.Equal(t, "upstream exploded", appErr.ProblemDetail)
}

func TestFetchGraphNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestClient(t, time.Minute)
	_, err := c.FetchGraph(context.Background(), Settings{BaseURL: srv.URL}, "tok", mustBuildRequest(t, "5551234567"))

	require.Error(t, err)
	assert.True(t, appErrors.IsNetwork(err))
}

func TestFetchGraphCache(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"nodes":[{"id":"n1"}],"edges":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, 100*time.Millisecond)
	settings := Settings{BaseURL: srv.URL, APIKey: "k"}

	first, err := c.FetchGraph(context.Background(), settings, "tok", mustBuildRequest(t, "5551234567"))
	require.NoError(t, err)
	second, err := c.FetchGraph(context.Background(), settings, "tok", mustBuildRequest(t, "5551234567"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), calls.Load(), "identical calls within the window share one network call")

	// A different token is a different cache key.
	_, err = c.FetchGraph(context.Background(), settings, "other-token", mustBuildRequest(t, "5551234567"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())

	// After expiry exactly one more network call happens.
	time.Sleep(120 * time.Millisecond)
	_, err = c.FetchGraph(context.Background(), settings, "tok", mustBuildRequest(t, "5551234567"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestFetchGraphDoesNotCacheFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"nodes":[],"edges":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, time.Minute)
	settings := Settings{BaseURL: srv.URL}

	_, err := c.FetchGraph(context.Background(), settings, "tok", mustBuildRequest(t, "5551234567"))
	require.Error(t, err)

	_, err = c.FetchGraph(context.Background(), settings, "tok", mustBuildRequest(t, "5551234567"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestFetchGraphInvalidJSONBodyIsRenderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	c := newTestClient(t, time.Minute)
	_, err := c.FetchGraph(context.Background(), Settings{BaseURL: srv.URL}, "tok", mustBuildRequest(t, "5551234567"))

	require.Error(t, err)
	assert.True(t, appErrors.IsRender(err))
}

func TestFetchGraphBackendErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"not found"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, time.Minute)
	settings := Settings{BaseURL: srv.URL}

	// A long run of non-200 responses proves the backend reachable; every
	// call must keep returning the upstream status and problem detail,
	// never the breaker's generic unavailable error.
	for i := 0; i < 10; i++ {
		_, err := c.FetchGraph(context.Background(), settings, fmt.Sprintf("tok-%d", i), mustBuildRequest(t, "5551234567"))
		require.Error(t, err)

		appErr, ok := appErrors.AsAppError(err)
		require.True(t, ok)
		assert.True(t, appErrors.IsBackend(err), "call %d must stay a backend error", i)
		assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
		assert.Equal(t, map[string]interface{}{"message": "not found"}, appErr.ProblemDetail)
	}
}
