package graph

import (
	"errors"
	"fmt"

	"github.com/exposome-labs/causeway/backend/pkg/common"
)

// ErrContractViolation marks a graph that breaks the output contract. A
// violating graph must never be returned to a caller; the request fails
// instead.
var ErrContractViolation = errors.New("graph contract violation")

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

// Validate checks a built graph against the output contract:
//
//   - node ids are unique and node types are valid
//   - every edge endpoint references an existing node
//   - no two edges share the same (source, target) pair
//   - edge relationships are one of the four contract values
//   - effect sizes lie in [0, 1] and temporal lags are non-negative
//   - evidence counts are positive and confidence lies in [0, 1]
//   - genetic modifiers only reference nodes present in the graph
//
// The first violation found is returned; a nil result means the graph is
// safe to hand to the simulator.
func Validate(graph common.CausalGraph) error {
	seen := make(map[string]struct{}, len(graph.Nodes))
	for _, node := range graph.Nodes {
		if node.ID == "" {
			return violation("node with empty id")
		}
		if _, dup := seen[node.ID]; dup {
			return violation("duplicate node id %q", node.ID)
		}
		seen[node.ID] = struct{}{}
		if !node.Type.Valid() {
			return violation("node %q has invalid type %q", node.ID, node.Type)
		}
	}

	seenPairs := make(map[string]struct{}, len(graph.Edges))
	for _, edge := range graph.Edges {
		if _, ok := seen[edge.Source]; !ok {
			return violation("edge references missing source node %q", edge.Source)
		}
		if _, ok := seen[edge.Target]; !ok {
			return violation("edge references missing target node %q", edge.Target)
		}
		pair := edge.Source + "\x00" + edge.Target
		if _, dup := seenPairs[pair]; dup {
			return violation("duplicate edge %s->%s", edge.Source, edge.Target)
		}
		seenPairs[pair] = struct{}{}
		if !edge.Relationship.Valid() {
			return violation("edge %s->%s has invalid relationship %q", edge.Source, edge.Target, edge.Relationship)
		}
		if edge.EffectSize < 0 || edge.EffectSize > 1 {
			return violation("edge %s->%s effect size %v out of range", edge.Source, edge.Target, edge.EffectSize)
		}
		if edge.TemporalLagHours < 0 {
			return violation("edge %s->%s has negative temporal lag %d", edge.Source, edge.Target, edge.TemporalLagHours)
		}
		if edge.Evidence.Count <= 0 {
			return violation("edge %s->%s has no evidence", edge.Source, edge.Target)
		}
		if edge.Evidence.Confidence < 0 || edge.Evidence.Confidence > 1 {
			return violation("edge %s->%s confidence %v out of range", edge.Source, edge.Target, edge.Evidence.Confidence)
		}
	}

	for _, modifier := range graph.GeneticModifiers {
		if len(modifier.AffectedNodes) == 0 {
			return violation("modifier %q affects no nodes", modifier.Variant)
		}
		for _, nodeID := range modifier.AffectedNodes {
			if _, ok := seen[nodeID]; !ok {
				return violation("modifier %q references missing node %q", modifier.Variant, nodeID)
			}
		}
		if modifier.Magnitude <= 0 {
			return violation("modifier %q has non-positive magnitude %v", modifier.Variant, modifier.Magnitude)
		}
	}

	return nil
}
