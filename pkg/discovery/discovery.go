package discovery

import (
	"context"
	"errors"

	"github.com/exposome-labs/causeway/backend/pkg/biokb"
	"github.com/exposome-labs/causeway/backend/pkg/common"
	"github.com/exposome-labs/causeway/backend/pkg/grounding"
	"github.com/exposome-labs/causeway/backend/pkg/logger"
	"github.com/exposome-labs/causeway/backend/pkg/metrics"
)

// errUnresolved marks a lookup where the knowledge base failed and no
// fallback entry existed. It never leaves the service; it only keeps failed
// lookups out of the cache so a recovered API gets asked again.
var errUnresolved = errors.New("lookup unresolved")

// Service discovers causal paths between grounded entities. It unions a
// direct path search with a neighbor-expansion search, reads through a
// process-lifetime cache, and falls back to a static dataset of
// pre-validated chains when the knowledge base cannot answer.
//
// "No paths found" is a normal, representable outcome: the service absorbs
// transient upstream failures and never returns an error to its callers.
type Service struct {
	client biokb.Client
	cache  *PathCache

	topK              int
	minNeighborBelief float64
}

// NewServiceParams configures a discovery Service.
type NewServiceParams struct {
	Client biokb.Client
	Cache  *PathCache

	// TopK is how many paths the direct strategy requests per pair.
	// Zero defaults to 5.
	TopK int
	// MinNeighborBelief filters expansion neighbors. Zero defaults to 0.6.
	MinNeighborBelief float64
}

// NewService creates a path discovery service.
func NewService(params NewServiceParams) *Service {
	topK := params.TopK
	if topK <= 0 {
		topK = 5
	}
	minBelief := params.MinNeighborBelief
	if minBelief <= 0 {
		minBelief = 0.6
	}
	cache := params.Cache
	if cache == nil {
		cache = NewPathCache()
	}
	return &Service{
		client:            params.Client,
		cache:             cache,
		topK:              topK,
		minNeighborBelief: minBelief,
	}
}

// FindPaths returns all known causal paths from source to target with at
// most maxDepth nodes, deduplicated by node sequence. The cache is consulted
// before any network call; on upstream failure the static fallback dataset
// answers instead. An empty result is normal, never an error.
func (s *Service) FindPaths(ctx context.Context, source, target common.Entity, maxDepth int) []common.CausalPath {
	if maxDepth < 2 {
		maxDepth = 2
	}

	paths, err := s.cache.GetOrFetch(ctx, source.ID(), target.ID(), maxDepth, func(ctx context.Context) ([]common.CausalPath, error) {
		return s.fetchPaths(ctx, source, target, maxDepth)
	})
	if err != nil {
		if !errors.Is(err, errUnresolved) && !errors.Is(err, context.Canceled) {
			logger.Warn("[Discovery] Path lookup failed", "source", source.ID(), "target", target.ID(), "err", err)
		}
		return nil
	}
	return paths
}

func (s *Service) fetchPaths(ctx context.Context, source, target common.Entity, maxDepth int) ([]common.CausalPath, error) {
	direct, directErr := s.directPaths(ctx, source, target, maxDepth)
	expanded, expandErr := s.expansionPaths(ctx, source, target, maxDepth)

	union := dedupeBySignature(append(direct, expanded...))
	if len(union) > 0 {
		return union, nil
	}

	if directErr != nil || expandErr != nil {
		if fb := s.fallback(source, target); len(fb) > 0 {
			return fb, nil
		}
		// Keep failed lookups out of the cache.
		return nil, errUnresolved
	}

	// The API answered and genuinely knows no route.
	return []common.CausalPath{}, nil
}

// directPaths asks the knowledge base for shortest paths source → target.
func (s *Service) directPaths(ctx context.Context, source, target common.Entity, maxDepth int) ([]common.CausalPath, error) {
	apiPaths, err := s.client.FindPaths(ctx, source.CURIE(), target.CURIE(), maxDepth, s.topK)
	if err != nil {
		logger.Debug("[Discovery] Direct search failed", "source", source.ID(), "target", target.ID(), "err", err)
		return nil, err
	}

	paths := make([]common.CausalPath, 0, len(apiPaths))
	for _, p := range apiPaths {
		if converted, ok := pathFromAPI(p); ok {
			paths = append(paths, converted)
		}
	}
	return paths, nil
}

// expansionPaths compensates for knowledge-graph queries with no direct
// route: it walks one hop downstream from the source and runs the direct
// strategy from each neighbor toward the target with a reduced depth.
func (s *Service) expansionPaths(ctx context.Context, source, target common.Entity, maxDepth int) ([]common.CausalPath, error) {
	if maxDepth <= 2 {
		return nil, nil
	}

	neighbors, err := s.client.Neighbors(ctx, source.CURIE(), biokb.Downstream, 1, s.minNeighborBelief)
	if err != nil {
		logger.Debug("[Discovery] Neighbor expansion failed", "source", source.ID(), "err", err)
		return nil, err
	}

	var paths []common.CausalPath
	for _, neighbor := range neighbors {
		via := entityFromAPI(neighbor.Node)
		if via.ID() == source.ID() || via.ID() == target.ID() {
			continue
		}

		tails, err := s.directPaths(ctx, via, target, maxDepth-1)
		if err != nil {
			continue
		}
		for _, tail := range tails {
			if stitched, ok := prependHop(source, neighbor, tail); ok {
				paths = append(paths, stitched)
			}
		}
	}
	return paths, nil
}

// fallback serves pre-validated chains for the pair, composing through known
// biomarker regulators when no direct entry exists.
func (s *Service) fallback(source, target common.Entity) []common.CausalPath {
	if paths := FallbackPaths(source.ID(), target.ID()); len(paths) > 0 {
		metrics.CacheEvents.WithLabelValues("fallback").Inc()
		logger.Info("[Discovery] Serving fallback paths", "source", source.ID(), "target", target.ID())
		return paths
	}

	// Compose source → regulator → target from two fallback entries, e.g.
	// PM2.5 → IL6 joined with IL6 → CRP.
	var composed []common.CausalPath
	for _, regulator := range grounding.Regulators(target.ID()) {
		heads := FallbackPaths(source.ID(), regulator)
		tails := FallbackPaths(regulator, target.ID())
		for _, head := range heads {
			for _, tail := range tails {
				if joined, ok := joinPaths(head, tail); ok {
					composed = append(composed, joined)
				}
			}
		}
	}
	if len(composed) > 0 {
		metrics.CacheEvents.WithLabelValues("fallback").Inc()
		logger.Info("[Discovery] Serving composed fallback paths", "source", source.ID(), "target", target.ID(), "count", len(composed))
	}
	return composed
}

// ExpandNeighbors returns entities adjacent to entity in the knowledge
// graph. Failures yield an empty result, matching FindPaths semantics.
func (s *Service) ExpandNeighbors(ctx context.Context, entity common.Entity, direction biokb.Direction, hops int) []common.Entity {
	if hops <= 0 {
		hops = 1
	}
	neighbors, err := s.client.Neighbors(ctx, entity.CURIE(), direction, hops, s.minNeighborBelief)
	if err != nil {
		logger.Debug("[Discovery] ExpandNeighbors failed", "entity", entity.ID(), "err", err)
		return nil
	}

	entities := make([]common.Entity, 0, len(neighbors))
	for _, n := range neighbors {
		entities = append(entities, entityFromAPI(n.Node))
	}
	return entities
}

func entityFromAPI(node biokb.Node) common.Entity {
	db := common.NormalizeDatabase(node.Database)

	entity := common.Entity{
		Name:     node.Name,
		Key:      node.ID,
		Label:    node.Name,
		Database: db,
		Kind:     common.KindMolecular,
	}
	if db != common.DatabaseUngrounded {
		entity.Identifier = node.Identifier
	}
	return entity
}

// pathFromAPI converts a wire path into the domain shape, rejecting paths
// whose edge list does not line up with the node sequence.
func pathFromAPI(p biokb.Path) (common.CausalPath, bool) {
	if len(p.Nodes) < 2 || len(p.Edges) != len(p.Nodes)-1 {
		return common.CausalPath{}, false
	}

	nodes := make([]common.Entity, len(p.Nodes))
	for i, n := range p.Nodes {
		nodes[i] = entityFromAPI(n)
	}

	statements := make([]common.Statement, len(p.Edges))
	total := 0
	for i, e := range p.Edges {
		statements[i] = common.Statement{
			Type:          e.StatementType,
			Citations:     e.Citations,
			Belief:        e.Belief,
			EvidenceCount: e.EvidenceCount,
		}
		total += e.EvidenceCount
	}

	return common.CausalPath{
		Nodes:         nodes,
		Statements:    statements,
		EvidenceCount: total,
		Belief:        p.Belief,
	}, true
}

// prependHop extends a tail path with the source → neighbor edge that led to
// it during expansion.
func prependHop(source common.Entity, neighbor biokb.Neighbor, tail common.CausalPath) (common.CausalPath, bool) {
	if tail.Length() < 2 {
		return common.CausalPath{}, false
	}
	via := entityFromAPI(neighbor.Node)
	if tail.Nodes[0].ID() != via.ID() {
		return common.CausalPath{}, false
	}

	hop := common.Statement{
		Type:          "Activation",
		Belief:        neighbor.Belief,
		EvidenceCount: 1,
	}

	nodes := append([]common.Entity{source}, tail.Nodes...)
	statements := append([]common.Statement{hop}, tail.Statements...)

	belief := tail.Belief
	if neighbor.Belief < belief {
		belief = neighbor.Belief
	}

	return common.CausalPath{
		Nodes:         nodes,
		Statements:    statements,
		EvidenceCount: tail.EvidenceCount + hop.EvidenceCount,
		Belief:        belief,
	}, true
}

// joinPaths concatenates two paths sharing a junction node.
func joinPaths(head, tail common.CausalPath) (common.CausalPath, bool) {
	if head.Length() < 2 || tail.Length() < 2 {
		return common.CausalPath{}, false
	}
	if head.Nodes[head.Length()-1].ID() != tail.Nodes[0].ID() {
		return common.CausalPath{}, false
	}

	nodes := append(append([]common.Entity{}, head.Nodes...), tail.Nodes[1:]...)
	statements := append(append([]common.Statement{}, head.Statements...), tail.Statements...)

	belief := head.Belief
	if tail.Belief < belief {
		belief = tail.Belief
	}

	return common.CausalPath{
		Nodes:         nodes,
		Statements:    statements,
		EvidenceCount: head.EvidenceCount + tail.EvidenceCount,
		Belief:        belief,
	}, true
}

func dedupeBySignature(paths []common.CausalPath) []common.CausalPath {
	if len(paths) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(paths))
	out := make([]common.CausalPath, 0, len(paths))
	for _, path := range paths {
		sig := path.Signature()
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, path)
	}
	return out
}
