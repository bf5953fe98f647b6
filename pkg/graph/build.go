package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/exposome-labs/causeway/backend/pkg/common"
	"github.com/exposome-labs/causeway/backend/pkg/logger"
)

// maxEdgeCitations caps how many citation ids an edge carries; evidence
// counts are unaffected.
const maxEdgeCitations = 3

// effectSizeCap keeps every edge below certainty so the downstream
// simulator never treats a mechanism as deterministic.
const effectSizeCap = 0.95

// relationshipMap normalizes source statement labels to the four contract
// relationship values.
var relationshipMap = map[string]common.Relationship{
	"Activation":       common.RelationshipActivates,
	"Inhibition":       common.RelationshipInhibits,
	"IncreaseAmount":   common.RelationshipIncreases,
	"DecreaseAmount":   common.RelationshipDecreases,
	"Phosphorylation":  common.RelationshipActivates,
	"Complex":          common.RelationshipActivates,
	"RegulateActivity": common.RelationshipActivates,
}

// temporalLagMap estimates hours from cause to observable effect by
// mechanism class: post-translational modification is fast, complex
// formation close behind, transcription-level changes much slower.
var temporalLagMap = map[string]int{
	"Phosphorylation": 1,
	"Complex":         2,
	"Activation":      6,
	"Inhibition":      6,
	"IncreaseAmount":  12,
	"DecreaseAmount":  12,
}

const defaultTemporalLagHours = 6

// MapStatementType normalizes a source statement label. Unrecognized labels
// map to "increases" rather than being dropped, so no edge silently
// disappears. TODO: revisit once the simulator can represent an explicit
// unknown relationship; this default flips direction for unrecognized
// inhibitory mechanisms.
func MapStatementType(statementType string) common.Relationship {
	if rel, ok := relationshipMap[statementType]; ok {
		return rel
	}
	return common.RelationshipIncreases
}

// TemporalLag returns the estimated cause-to-effect lag in hours for a
// statement type. The table contains no negative entries, so the result is
// always >= 0.
func TemporalLag(statementType string) int {
	if lag, ok := temporalLagMap[statementType]; ok {
		return lag
	}
	return defaultTemporalLagHours
}

// EffectSize derives the simulation weight of an edge from its belief score
// and evidence volume. The belief contributes at 0.8 weight; large evidence
// bodies add a stepped boost; the result is capped at 0.95.
func EffectSize(belief float64, evidenceCount int) float64 {
	effect := belief * 0.8

	switch {
	case evidenceCount > 100:
		effect += 0.15
	case evidenceCount > 50:
		effect += 0.10
	case evidenceCount > 20:
		effect += 0.05
	}

	if effect > effectSizeCap {
		effect = effectSizeCap
	}
	return effect
}

var biomarkerNodeIDs = map[string]struct{}{
	"CRP": {}, "IL6": {}, "8-OHdG": {},
}

var environmentalNodeIDs = map[string]struct{}{
	"PM2.5": {}, "PM10": {}, "ozone": {}, "NO2": {},
}

var processNodeIDs = map[string]struct{}{
	"oxidative_stress": {}, "inflammation": {},
}

var exposureLabelCues = []string{"particulate", "pollut", "matter", "exposure", "ozone", "dioxide"}

// nodeType assigns the contract node type by fixed priority: known clinical
// biomarkers first, then environmental exposures, then biological
// processes; everything else is molecular.
func nodeType(entity common.Entity) common.EntityKind {
	id := entity.ID()

	if _, ok := biomarkerNodeIDs[id]; ok {
		return common.KindBiomarker
	}
	if _, ok := environmentalNodeIDs[id]; ok {
		return common.KindEnvironmental
	}
	if entity.Database == common.DatabaseMESH {
		label := strings.ToLower(entity.DisplayLabel())
		for _, cue := range exposureLabelCues {
			if strings.Contains(label, cue) {
				return common.KindEnvironmental
			}
		}
	}
	if entity.Database == common.DatabaseGO {
		return common.KindMolecular
	}
	if _, ok := processNodeIDs[id]; ok {
		return common.KindMolecular
	}
	if entity.Kind == common.KindGenetic || entity.Kind == common.KindEnvironmental || entity.Kind == common.KindBiomarker {
		return entity.Kind
	}
	return common.KindMolecular
}

// edgeAccumulator collects evidence for one (source, target) pair across all
// paths before the final edge is emitted.
type edgeAccumulator struct {
	source, target  string
	evidenceCount   int
	maxBelief       float64
	citations       []string
	citationSeen    map[string]struct{}
	evidenceByType  map[string]int
	firstSeenOfType []string
}

func (a *edgeAccumulator) add(statement common.Statement) {
	a.evidenceCount += statement.EvidenceCount
	if statement.Belief > a.maxBelief {
		a.maxBelief = statement.Belief
	}
	for _, citation := range statement.Citations {
		if _, dup := a.citationSeen[citation]; dup {
			continue
		}
		a.citationSeen[citation] = struct{}{}
		a.citations = append(a.citations, citation)
	}
	if _, seen := a.evidenceByType[statement.Type]; !seen {
		a.firstSeenOfType = append(a.firstSeenOfType, statement.Type)
	}
	a.evidenceByType[statement.Type] += statement.EvidenceCount
}

// dominantType returns the statement type carrying the most evidence for
// this pair, with first-seen order as the deterministic tie breaker.
func (a *edgeAccumulator) dominantType() string {
	best := ""
	bestCount := -1
	for _, statementType := range a.firstSeenOfType {
		if count := a.evidenceByType[statementType]; count > bestCount {
			best = statementType
			bestCount = count
		}
	}
	return best
}

// Builder converts ranked causal paths into the output graph.
type Builder struct {
	includeUngrounded bool
}

// NewBuilderParams configures a graph Builder.
type NewBuilderParams struct {
	// IncludeUngrounded permits nodes without a database grounding. Such
	// nodes carry their raw name as id and label and no grounding record.
	IncludeUngrounded bool
}

// NewBuilder creates a graph builder.
func NewBuilder(params NewBuilderParams) *Builder {
	return &Builder{includeUngrounded: params.IncludeUngrounded}
}

// Build assembles a causal graph from ranked paths. Grounded overrides
// entities discovered on paths with richer grounding known to the caller,
// keyed by node id. Building never fails: malformed paths contribute what
// they can and ungrounded nodes are carried (or skipped, per configuration)
// rather than erroring.
//
// Genetic modifiers are not attached here; ApplyModifiers overlays them on
// the finished graph.
func (b *Builder) Build(rankedPaths []common.CausalPath, grounded map[string]common.Entity) common.CausalGraph {
	nodeOrder := []string{}
	nodesByID := map[string]common.GraphNode{}
	skipped := map[string]struct{}{}
	edgeOrder := []string{}
	edgesByPair := map[string]*edgeAccumulator{}

	for _, path := range rankedPaths {
		if path.Length() < 2 || len(path.Statements) != path.Length()-1 {
			logger.Warn("[Graph] Skipping malformed path", "signature", path.Signature())
			continue
		}

		for _, entity := range path.Nodes {
			if richer, ok := grounded[entity.ID()]; ok && richer.Grounded() {
				entity = richer
			}
			id := entity.ID()
			if _, done := nodesByID[id]; done {
				continue
			}
			if _, dropped := skipped[id]; dropped {
				continue
			}
			if !entity.Grounded() && !b.includeUngrounded {
				skipped[id] = struct{}{}
				logger.Debug("[Graph] Dropping ungrounded node", "name", entity.Name)
				continue
			}
			nodesByID[id] = buildNode(entity)
			nodeOrder = append(nodeOrder, id)
		}

		for i, statement := range path.Statements {
			sourceID := path.Nodes[i].ID()
			targetID := path.Nodes[i+1].ID()
			if _, ok := nodesByID[sourceID]; !ok {
				continue
			}
			if _, ok := nodesByID[targetID]; !ok {
				continue
			}

			pair := sourceID + "\x00" + targetID
			acc, ok := edgesByPair[pair]
			if !ok {
				acc = &edgeAccumulator{
					source:         sourceID,
					target:         targetID,
					citationSeen:   map[string]struct{}{},
					evidenceByType: map[string]int{},
				}
				edgesByPair[pair] = acc
				edgeOrder = append(edgeOrder, pair)
			}
			acc.add(statement)
		}
	}

	graph := common.CausalGraph{
		Nodes:            make([]common.GraphNode, 0, len(nodeOrder)),
		Edges:            make([]common.GraphEdge, 0, len(edgeOrder)),
		GeneticModifiers: []common.GeneticModifier{},
	}
	for _, id := range nodeOrder {
		graph.Nodes = append(graph.Nodes, nodesByID[id])
	}
	for _, pair := range edgeOrder {
		graph.Edges = append(graph.Edges, buildEdge(edgesByPair[pair]))
	}

	return graph
}

func buildNode(entity common.Entity) common.GraphNode {
	node := common.GraphNode{
		ID:    entity.ID(),
		Type:  nodeType(entity),
		Label: entity.DisplayLabel(),
	}
	if entity.Grounded() {
		node.Grounding = &common.Grounding{
			Database:   entity.Database,
			Identifier: entity.Identifier,
		}
	}
	return node
}

func buildEdge(acc *edgeAccumulator) common.GraphEdge {
	dominant := acc.dominantType()
	relationship := MapStatementType(dominant)

	citations := acc.citations
	if len(citations) > maxEdgeCitations {
		citations = citations[:maxEdgeCitations]
	}
	sort.Strings(citations)

	return common.GraphEdge{
		Source:       acc.source,
		Target:       acc.target,
		Relationship: relationship,
		Evidence: common.Evidence{
			Count:      acc.evidenceCount,
			Confidence: acc.maxBelief,
			Citations:  citations,
			Summary:    fmt.Sprintf("%s %s %s", acc.source, relationship, acc.target),
		},
		EffectSize:       EffectSize(acc.maxBelief, acc.evidenceCount),
		TemporalLagHours: TemporalLag(dominant),
	}
}
