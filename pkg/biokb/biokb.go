package biokb

import (
	"context"
)

// Direction selects which way neighbor expansion walks the knowledge graph.
type Direction string

const (
	Downstream Direction = "downstream"
	Upstream   Direction = "upstream"
)

// Node is a knowledge-graph node as returned by the API.
type Node struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Database   string `json:"database"`
	Identifier string `json:"identifier"`
}

// Edge is one causal claim between two adjacent nodes of a path. The
// statement type is the source's free-form label (e.g. "Activation",
// "IncreaseAmount"); normalization happens downstream in the graph builder.
type Edge struct {
	Source        string   `json:"source"`
	Target        string   `json:"target"`
	StatementType string   `json:"statement_type"`
	Belief        float64  `json:"belief"`
	EvidenceCount int      `json:"evidence_count"`
	Citations     []string `json:"citations"`
}

// Path is a causal route between a source and a target, ordered from source
// to target with one edge per adjacent node pair.
type Path struct {
	Nodes  []Node  `json:"nodes"`
	Edges  []Edge  `json:"edges"`
	Belief float64 `json:"belief"`
}

// Neighbor is a node adjacent to an expansion seed, with the belief of the
// connecting edge.
type Neighbor struct {
	Node   Node    `json:"node"`
	Belief float64 `json:"belief"`
}

// Match is one autocomplete candidate for a free-text prefix.
type Match struct {
	Name     string `json:"name"`
	Database string `json:"database"`
	ID       string `json:"id"`
}

// Client talks to an external biological-knowledge API. Implementations must
// be safe for concurrent use; the discovery service fans out many lookups at
// once.
//
// All methods honor ctx cancellation. Transient failures (timeouts, 5xx) are
// the implementation's problem to retry; errors returned here mean the call
// is exhausted.
type Client interface {
	// FindPaths returns up to limit causal paths from source to target with
	// at most maxDepth nodes, best first by the API's own ranking.
	FindPaths(ctx context.Context, source, target string, maxDepth, limit int) ([]Path, error)

	// Neighbors returns nodes reachable from node within hops steps in the
	// given direction, filtered to connecting edges with belief >= minBelief.
	Neighbors(ctx context.Context, node string, direction Direction, hops int, minBelief float64) ([]Neighbor, error)

	// Autocomplete suggests canonical entities for a free-text prefix.
	Autocomplete(ctx context.Context, prefix string, limit int) ([]Match, error)

	// Health reports whether the API is reachable.
	Health(ctx context.Context) error
}
