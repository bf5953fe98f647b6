package common

import (
	"fmt"
	"strings"
)

// Database identifies the reference database an entity is grounded to.
// UNGROUNDED marks entities for which no canonical identifier could be
// resolved; such entities never carry a CanonicalID.
type Database string

const (
	DatabaseHGNC       Database = "HGNC"
	DatabaseMESH       Database = "MESH"
	DatabaseGO         Database = "GO"
	DatabaseCHEBI      Database = "CHEBI"
	DatabaseUngrounded Database = "UNGROUNDED"
)

// NormalizeDatabase maps a wire database label onto the known enum. Anything
// outside the enum, whatever its casing, comes back UNGROUNDED so foreign
// labels never leak into graph output.
func NormalizeDatabase(raw string) Database {
	db := Database(strings.ToUpper(raw))
	switch db {
	case DatabaseHGNC, DatabaseMESH, DatabaseGO, DatabaseCHEBI:
		return db
	}
	return DatabaseUngrounded
}

// EntityKind classifies what role an entity plays in a causal chain.
type EntityKind string

const (
	KindEnvironmental EntityKind = "environmental"
	KindMolecular     EntityKind = "molecular"
	KindBiomarker     EntityKind = "biomarker"
	KindGenetic       EntityKind = "genetic"
)

// Relationship is the normalized causal direction of a graph edge.
type Relationship string

const (
	RelationshipActivates Relationship = "activates"
	RelationshipInhibits  Relationship = "inhibits"
	RelationshipIncreases Relationship = "increases"
	RelationshipDecreases Relationship = "decreases"
)

// Valid reports whether r is one of the four contract relationship values.
func (r Relationship) Valid() bool {
	switch r {
	case RelationshipActivates, RelationshipInhibits, RelationshipIncreases, RelationshipDecreases:
		return true
	}
	return false
}

// Valid reports whether k is one of the four contract node types.
func (k EntityKind) Valid() bool {
	switch k {
	case KindEnvironmental, KindMolecular, KindBiomarker, KindGenetic:
		return true
	}
	return false
}

// Entity is a named biological, environmental, or clinical concept,
// optionally grounded to a reference database.
//
// Name is the free text as given by the caller. Key is the stable short
// identifier entities are known by across paths, fallback data, and the
// genetic-modifier tables (e.g. "IL6", "PM2.5", "oxidative_stress").
// Identifier is the database-local id (e.g. "6018" for HGNC:IL6).
//
// An entity with Database == DatabaseUngrounded carries neither Key nor
// Identifier.
type Entity struct {
	Name       string     `json:"name"`
	Key        string     `json:"key,omitempty"`
	Label      string     `json:"label,omitempty"`
	Database   Database   `json:"database"`
	Identifier string     `json:"identifier,omitempty"`
	Kind       EntityKind `json:"kind"`
}

// Grounded reports whether the entity resolved to a canonical identifier.
func (e Entity) Grounded() bool {
	return e.Database != DatabaseUngrounded && e.Identifier != ""
}

// ID returns the identifier the entity contributes to a graph: the canonical
// key when grounded, otherwise the raw name.
func (e Entity) ID() string {
	if e.Key != "" {
		return e.Key
	}
	return e.Name
}

// DisplayLabel returns the human-readable label, falling back to the raw name.
func (e Entity) DisplayLabel() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Name
}

// CURIE returns the compact database-qualified identifier used when talking
// to the knowledge-base API, e.g. "HGNC:2367". Ungrounded entities fall back
// to their raw name.
func (e Entity) CURIE() string {
	if !e.Grounded() {
		return e.Name
	}
	if strings.Contains(e.Identifier, ":") {
		return e.Identifier
	}
	return fmt.Sprintf("%s:%s", e.Database, e.Identifier)
}

// Statement is a single literature-backed causal claim between two adjacent
// entities on a path. EvidenceCount is the number of supporting literature
// extractions; Citations holds a sample of their ids (e.g. "PMID:12345678").
type Statement struct {
	Type          string   `json:"type"`
	Citations     []string `json:"citations"`
	Belief        float64  `json:"belief"`
	EvidenceCount int      `json:"evidence_count"`
}

// CausalPath is an ordered chain of entities discovered between a source and
// a target, with one statement per adjacent pair.
//
// Invariant: len(Statements) == len(Nodes) - 1.
type CausalPath struct {
	Nodes         []Entity    `json:"nodes"`
	Statements    []Statement `json:"statements"`
	EvidenceCount int         `json:"evidence_count"`
	Belief        float64     `json:"belief"`
}

// Length returns the number of nodes on the path.
func (p CausalPath) Length() int {
	return len(p.Nodes)
}

// Signature returns the ordered node-id sequence as a single key. Two paths
// with the same signature describe the same route.
func (p CausalPath) Signature() string {
	ids := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ID()
	}
	return strings.Join(ids, "→")
}

// Grounding links a graph node back to its reference database entry.
type Grounding struct {
	Database   Database `json:"database"`
	Identifier string   `json:"identifier"`
}

// GraphNode is a node of the output causal graph. Grounding is nil for
// entities that could not be resolved.
type GraphNode struct {
	ID        string     `json:"id"`
	Type      EntityKind `json:"type"`
	Label     string     `json:"label"`
	Grounding *Grounding `json:"grounding,omitempty"`
}

// Evidence summarizes the literature support behind a graph edge.
type Evidence struct {
	Count      int      `json:"count"`
	Confidence float64  `json:"confidence"`
	Citations  []string `json:"citations"`
	Summary    string   `json:"summary"`
}

// GraphEdge is a directed causal relationship in the output graph.
//
// EffectSize and TemporalLagHours are hard contract values consumed by the
// downstream simulator: EffectSize is always in [0, 1] and TemporalLagHours
// is never negative.
type GraphEdge struct {
	Source           string       `json:"source"`
	Target           string       `json:"target"`
	Relationship     Relationship `json:"relationship"`
	Evidence         Evidence     `json:"evidence"`
	EffectSize       float64      `json:"effect_size"`
	TemporalLagHours int          `json:"temporal_lag_hours"`
}

// EffectType describes how a genetic modifier changes affected nodes.
type EffectType string

const (
	EffectAmplifies EffectType = "amplifies"
	EffectDampens   EffectType = "dampens"
)

// GeneticModifier is a multiplicative adjustment applied to specific graph
// nodes for a user's genetic variant. It is only attached to a graph when at
// least one affected node is present.
type GeneticModifier struct {
	Variant       string     `json:"variant"`
	AffectedNodes []string   `json:"affected_nodes"`
	EffectType    EffectType `json:"effect_type"`
	Magnitude     float64    `json:"magnitude"`
}

// CausalGraph is the final output of a discovery request: typed nodes,
// merged evidence-backed edges, and any genetic modifiers that intersect the
// node set. It is built once per request and immutable after validation.
type CausalGraph struct {
	Nodes            []GraphNode       `json:"nodes"`
	Edges            []GraphEdge       `json:"edges"`
	GeneticModifiers []GeneticModifier `json:"genetic_modifiers"`
}

// NodeIDs returns the set of node ids present in the graph.
func (g CausalGraph) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}
