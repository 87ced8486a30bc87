// Package graph maps loosely-typed backend graph payloads to the canonical
// node/edge structure used for rendering.
//
// The backend is permissive about field naming, so each canonical field is
// resolved from an ordered list of candidate keys:
//
//	node id:     id > key > name
//	edge source: source > from
//	edge target: target > to
//	edge label:  label > relation
//
// Entries that cannot be resolved are skipped, never failed: a partial
// graph is valid and preferable to an empty page. Candidate keys that were
// not consumed as the identifier stay visible as node attributes.
package graph

import (
	"fmt"
	"sort"

	"usergraph-portal/internal/domain"
)

var (
	nodeIDKeys     = []string{"id", "key", "name"}
	edgeSourceKeys = []string{"source", "from"}
	edgeTargetKeys = []string{"target", "to"}
	edgeLabelKeys  = []string{"label", "relation"}
)

// Normalize converts raw nodes and edges into canonical form, preserving
// input ordering of both sequences.
func Normalize(rawNodes []domain.RawNode, rawEdges []domain.RawEdge) ([]domain.Node, []domain.Edge) {
	nodes := make([]domain.Node, 0, len(rawNodes))
	for _, raw := range rawNodes {
		if node, ok := normalizeNode(raw); ok {
			nodes = append(nodes, node)
		}
	}

	edges := make([]domain.Edge, 0, len(rawEdges))
	for _, raw := range rawEdges {
		if edge, ok := normalizeEdge(raw); ok {
			edges = append(edges, edge)
		}
	}
	return nodes, edges
}

func normalizeNode(raw domain.RawNode) (domain.Node, bool) {
	id, idKey, ok := resolveKeyed(raw, nodeIDKeys)
	if !ok {
		return domain.Node{}, false
	}

	label, ok := resolve(raw, []string{"label"})
	if !ok {
		label = id
	}

	// Only the key consumed as the identifier and the label are removed;
	// an unconsumed candidate key ("name" next to "key", say) is ordinary
	// data and stays visible as an attribute.
	var attrs map[string]string
	for k, v := range raw {
		if k == idKey || k == "label" || v == nil {
			continue
		}
		s := stringify(v)
		if s == "" {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]string)
		}
		attrs[k] = s
	}

	return domain.Node{ID: id, Label: label, Attributes: attrs}, true
}

func normalizeEdge(raw domain.RawEdge) (domain.Edge, bool) {
	source, ok := resolve(raw, edgeSourceKeys)
	if !ok {
		return domain.Edge{}, false
	}
	target, ok := resolve(raw, edgeTargetKeys)
	if !ok {
		return domain.Edge{}, false
	}

	label, _ := resolve(raw, edgeLabelKeys)
	return domain.Edge{Source: source, Target: target, Label: label}, true
}

// resolve returns the stringified value of the first candidate key that is
// present with a non-empty value.
func resolve(raw map[string]interface{}, candidates []string) (string, bool) {
	v, _, ok := resolveKeyed(raw, candidates)
	return v, ok
}

// resolveKeyed is resolve plus the candidate key that supplied the value.
func resolveKeyed(raw map[string]interface{}, candidates []string) (string, string, bool) {
	for _, key := range candidates {
		v, exists := raw[key]
		if !exists || v == nil {
			continue
		}
		if s := stringify(v); s != "" {
			return s, key, true
		}
	}
	return "", "", false
}

// stringify renders a raw JSON value for display. Whole-number floats,
// which is how encoding/json delivers integers, print without a decimal
// point.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// TooltipLines renders a node's attributes as "key: value" lines in a
// stable order, for the rendering surface's hover tooltip. The label
// itself is the rendering layer's concern.
func TooltipLines(node domain.Node) []string {
	if len(node.Attributes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(node.Attributes))
	for k := range node.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, node.Attributes[k]))
	}
	return lines
}
