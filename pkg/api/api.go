// Package api defines the contracts for API requests and responses.
// It decouples the API structure from the internal domain models.
package api

import (
	"encoding/json"

	"usergraph-portal/internal/domain"
	"usergraph-portal/internal/graph"
)

// LoginRequest is the expected body for a POST /api/login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse reports the session's authentication outcome. Fallback is
// true when the backend auth endpoint could not issue a real token and the
// session runs on a locally generated demo token.
type LoginResponse struct {
	Authenticated bool `json:"authenticated"`
	Fallback      bool `json:"fallback"`
}

// SettingsRequest is the body for PUT /api/settings. Empty fields leave
// the current value untouched.
type SettingsRequest struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
}

// SettingsResponse echoes the active settings. The API key itself is never
// echoed back, only whether one is set.
type SettingsResponse struct {
	BaseURL   string `json:"baseUrl"`
	APIKeySet bool   `json:"apiKeySet"`
}

// SessionResponse is the state the portal page needs to decide which
// affordances are active.
type SessionResponse struct {
	Authenticated bool             `json:"authenticated"`
	Fallback      bool             `json:"fallback"`
	HasGraph      bool             `json:"hasGraph"`
	Settings      SettingsResponse `json:"settings"`
	DemoUser      string           `json:"demoUser"`
}

// GraphNode is a canonical node plus its precomputed hover tooltip lines,
// so the page renders attributes without re-deriving the ordering.
type GraphNode struct {
	domain.Node
	Tooltip []string `json:"tooltip,omitempty"`
}

// GraphResponse carries the canonical graph for rendering plus the raw
// backend JSON for display.
type GraphResponse struct {
	Nodes []GraphNode     `json:"nodes"`
	Edges []domain.Edge   `json:"edges"`
	Raw   json.RawMessage `json:"raw"`
}

// NewGraphResponse converts a fetched graph into its API representation.
func NewGraphResponse(result domain.GraphResult) GraphResponse {
	nodes := make([]GraphNode, 0, len(result.Nodes))
	for _, n := range result.Nodes {
		nodes = append(nodes, GraphNode{Node: n, Tooltip: graph.TooltipLines(n)})
	}
	return GraphResponse{
		Nodes: nodes,
		Edges: result.Edges,
		Raw:   json.RawMessage(result.Raw),
	}
}

// ErrorResponse is a standardized error message for API responses.
// BackendStatus and ProblemDetail are set for upstream failures only; the
// problem detail is propagated verbatim.
type ErrorResponse struct {
	Error         string      `json:"error"`
	BackendStatus int         `json:"backendStatus,omitempty"`
	ProblemDetail interface{} `json:"problemDetail,omitempty"`
}
