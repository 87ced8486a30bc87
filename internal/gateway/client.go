// Package gateway performs the two backend calls (authenticate,
// fetch-graph), maps transport and status failures into the application
// error taxonomy and applies a short-lived response cache keyed by request
// content.
package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"usergraph-portal/internal/cache"
	"usergraph-portal/internal/config"
	"usergraph-portal/internal/domain"
	"usergraph-portal/internal/graph"
	"usergraph-portal/internal/observability"
	appErrors "usergraph-portal/pkg/errors"
)

// Settings is the per-call backend target. Sessions can override the
// configured base URL and API key live, so these travel with each call
// instead of living on the client.
type Settings struct {
	BaseURL string
	APIKey  string
}

// AuthResult is the tagged outcome of an authentication attempt. Fallback
// is true when the token was generated locally because the auth endpoint
// was unreachable, returned a non-success status or answered without a
// token. The distinction is deliberate: downstream code and the UI must be
// able to surface degraded demo mode instead of silently trusting the
// token.
type AuthResult struct {
	Token    string
	Fallback bool
}

// Client is the backend gateway. Calls are single-shot: no retries, the
// submitting user decides whether to resubmit. A circuit breaker fast-fails
// fetches while the backend is persistently down; it never re-issues a
// request.
type Client struct {
	httpClient *http.Client
	authPath   string
	graphPath  string
	timeout    time.Duration

	cache    *cache.Store
	cacheTTL time.Duration
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
	metrics  *observability.Collector
	tracer   trace.Tracer
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg config.Backend, cacheCfg config.Cache, logger *zap.Logger, metrics *observability.Collector) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		authPath:   cfg.AuthPath,
		graphPath:  cfg.GraphPath,
		timeout:    cfg.FetchTimeout,
		cache:      cache.New(cacheCfg.MaxItems, cacheCfg.TTL),
		cacheTTL:   cacheCfg.TTL,
		logger:     logger,
		metrics:    metrics,
		tracer:     observability.Tracer("usergraph-portal/internal/gateway"),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "graph-backend",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		// The breaker guards reachability. A non-200 status or an
		// unparseable body came from a responding backend and must keep
		// surfacing as its own error class, not trip into the generic
		// unavailable path.
		IsSuccessful: func(err error) bool {
			return err == nil || appErrors.IsBackend(err) || appErrors.IsRender(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
	return c
}

// authResponse accepts both conventional token field names.
type authResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

// Authenticate POSTs the credentials to the auth endpoint. It never fails
// hard: any transport failure, non-200 status or token-less body degrades
// to a locally generated demo token with Fallback set.
func (c *Client) Authenticate(ctx context.Context, settings Settings, email, password string) AuthResult {
	ctx, span := c.tracer.Start(ctx, "gateway.Authenticate")
	defer span.End()

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return c.fallbackAuth("failed to encode credentials", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(settings.BaseURL, c.authPath), bytes.NewReader(body))
	if err != nil {
		return c.fallbackAuth("failed to build auth request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	applyHeaders(req, settings.APIKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.BackendRequests.WithLabelValues("auth", "network_error").Inc()
		return c.fallbackAuth("auth endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.BackendRequests.WithLabelValues("auth", fmt.Sprintf("status_%d", resp.StatusCode)).Inc()
		return c.fallbackAuth(fmt.Sprintf("auth endpoint returned %d", resp.StatusCode), nil)
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.metrics.BackendRequests.WithLabelValues("auth", "bad_body").Inc()
		return c.fallbackAuth("auth response was not valid JSON", err)
	}

	token := parsed.Token
	if token == "" {
		token = parsed.AccessToken
	}
	if token == "" {
		return c.fallbackAuth("auth response carried no token", nil)
	}

	c.metrics.BackendRequests.WithLabelValues("auth", "ok").Inc()
	span.SetAttributes(attribute.Bool("auth.fallback", false))
	return AuthResult{Token: token}
}

func (c *Client) fallbackAuth(reason string, err error) AuthResult {
	c.logger.Warn("falling back to locally generated demo token",
		zap.String("reason", reason),
		zap.Error(err),
	)
	c.metrics.FallbackLogins.Inc()
	return AuthResult{
		Token:    "demo-" + uuid.NewString(),
		Fallback: true,
	}
}

// FetchGraph sends the built request to the graph endpoint with a bounded
// timeout. Successful responses are cached for the configured window keyed
// by the full tuple (base URL, API key, token, payload, attachment bytes,
// filename); hits return the prior result without a network call.
func (c *Client) FetchGraph(ctx context.Context, settings Settings, token string, req *OutgoingRequest) (domain.GraphResult, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.FetchGraph",
		trace.WithAttributes(attribute.Bool("request.multipart", req.HasAttachment())))
	defer span.End()

	key := c.cacheKey(settings, token, req)
	if cached, ok := c.cache.Get(key); ok {
		c.metrics.CacheHits.Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.(domain.GraphResult), nil
	}
	c.metrics.CacheMisses.Inc()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchGraphOnce(ctx, settings, token, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.GraphResult{}, appErrors.NewNetwork("backend temporarily unavailable", err)
		}
		return domain.GraphResult{}, err
	}

	graphResult := result.(domain.GraphResult)
	c.cache.SetWithTTL(key, graphResult, c.cacheTTL)
	return graphResult, nil
}

func (c *Client) fetchGraphOnce(ctx context.Context, settings Settings, token string, req *OutgoingRequest) (domain.GraphResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(settings.BaseURL, c.graphPath), req.bodyReader())
	if err != nil {
		return domain.GraphResult{}, appErrors.NewInternal("failed to build graph request", err)
	}
	httpReq.Header.Set("Content-Type", req.ContentType)
	applyHeaders(httpReq, settings.APIKey, token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.BackendRequests.WithLabelValues("graph", "network_error").Inc()
		return domain.GraphResult{}, appErrors.NewNetwork("graph endpoint unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.BackendRequests.WithLabelValues("graph", "network_error").Inc()
		return domain.GraphResult{}, appErrors.NewNetwork("failed to read graph response", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.BackendRequests.WithLabelValues("graph", fmt.Sprintf("status_%d", resp.StatusCode)).Inc()
		return domain.GraphResult{}, appErrors.NewBackend(resp.StatusCode, problemDetail(body))
	}

	var payload domain.RawGraphPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.metrics.BackendRequests.WithLabelValues("graph", "bad_body").Inc()
		return domain.GraphResult{}, appErrors.NewRender("graph response was not valid JSON", err)
	}

	nodes, edges := graph.Normalize(payload.Nodes, payload.Edges)
	c.metrics.BackendRequests.WithLabelValues("graph", "ok").Inc()
	return domain.GraphResult{
		Nodes: nodes,
		Edges: edges,
		Raw:   body,
	}, nil
}

// problemDetail returns the parsed JSON error body when possible, the raw
// text otherwise. The detail is propagated to the user verbatim.
func problemDetail(body []byte) interface{} {
	var detail map[string]interface{}
	if err := json.Unmarshal(body, &detail); err == nil {
		return detail
	}
	return string(body)
}

// cacheKey hashes the full request tuple so neither tokens nor API keys
// sit in map keys in clear text.
func (c *Client) cacheKey(settings Settings, token string, req *OutgoingRequest) string {
	h := sha256.New()
	for _, part := range append([]string{settings.BaseURL, settings.APIKey, token}, req.cacheKeyMaterial()...) {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SweepCache drops expired cache entries. Called periodically from the
// server's housekeeping goroutine.
func (c *Client) SweepCache() {
	c.cache.Sweep()
}

func applyHeaders(req *http.Request, apiKey, token string) {
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func joinURL(base, path string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + path
}
