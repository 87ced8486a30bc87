// Package domain holds the canonical data model for the portal.
//
// Backend graph payloads are loosely typed: node identifiers and edge
// endpoints arrive under several conventional key names. The loose shape
// (RawNode, RawEdge) never travels past the normalizer boundary; everything
// downstream works with the strict canonical types defined here.
package domain

// Node is the canonical representation of a graph vertex used for rendering.
type Node struct {
	// ID is required and unique within one graph response.
	ID string `json:"id"`
	// Label defaults to ID when the backend provides no explicit label.
	Label string `json:"label"`
	// Attributes carries the remaining key/value pairs from the raw node,
	// rendered as "key: value" tooltip lines.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Edge is the canonical representation of a directed connection.
// Edges whose endpoints cannot be resolved are dropped before rendering;
// a partial graph is valid.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// RawNode and RawEdge are the loosely-typed backend shapes. Key precedence
// for identifiers is resolved by the normalizer: id > key > name for nodes,
// source > from and target > to for edge endpoints, label > relation for
// edge labels.
type (
	RawNode map[string]interface{}
	RawEdge map[string]interface{}
)

// RawGraphPayload mirrors the backend response body of /v1/graph/fetch.
type RawGraphPayload struct {
	Nodes []RawNode `json:"nodes"`
	Edges []RawEdge `json:"edges"`
}

// GraphResult is a fetched graph: the canonical view plus the verbatim
// response body, retained so the raw JSON can be displayed and exported
// byte-identical to what the backend returned.
type GraphResult struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	Raw   []byte `json:"-"`
}
