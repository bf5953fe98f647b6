package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/exposome-labs/causeway/backend/pkg/common"
	"github.com/exposome-labs/causeway/backend/pkg/graph"
	"github.com/exposome-labs/causeway/backend/pkg/logger"
	"github.com/exposome-labs/causeway/backend/pkg/metrics"
)

// State is a phase of the discovery pipeline. Done, NoPathFound, and Failed
// are terminal.
type State string

const (
	StateReceived            State = "received"
	StateGrounding           State = "grounding"
	StateSearching           State = "searching"
	StateRanking             State = "ranking"
	StateBuilding            State = "building"
	StateModifierApplication State = "modifier_application"
	StateValidating          State = "validating"
	StateDone                State = "done"
	StateNoPathFound         State = "no_path_found"
	StateFailed              State = "failed"
)

// Orchestrator sequences one discovery request through the pipeline:
// grounding, concurrent pair search, ranking, graph assembly, modifier
// overlay, and contract validation, under a per-request deadline.
//
// An orchestrator is stateless across requests and safe for concurrent use;
// all shared collaborators live in the Context.
type Orchestrator struct {
	dctx *Context
}

// NewOrchestrator creates an orchestrator over a discovery context.
func NewOrchestrator(dctx *Context) *Orchestrator {
	return &Orchestrator{dctx: dctx}
}

// entityPair is one (source, target) lookup of a request.
type entityPair struct {
	source, target common.Entity
}

// run carries the per-request pipeline state.
type run struct {
	requestID string
	state     State
	started   time.Time
}

func (r *run) transition(next State) {
	logger.Debug("[Orchestrator] State transition", "request", r.requestID, "from", r.state, "to", next)
	r.state = next
}

// Discover executes one request end to end and always returns a response,
// never an error: every failure mode maps to a typed error body. Cancelling
// ctx cancels all in-flight sub-queries for this request.
func (o *Orchestrator) Discover(ctx context.Context, request Request) Response {
	request = request.Normalized()
	if request.RequestID == "" {
		request.RequestID = gonanoid.Must()
	}

	r := &run{requestID: request.RequestID, state: StateReceived, started: time.Now()}
	defer func() {
		metrics.Requests.WithLabelValues(string(r.state)).Inc()
		metrics.RequestDuration.Observe(time.Since(r.started).Seconds())
	}()

	if len(request.FocusEntities) == 0 {
		r.transition(StateFailed)
		return ErrorResponse(request.RequestID, CodeInvalidRequest, "focusEntities must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, o.dctx.RequestDeadline)
	defer cancel()

	// Grounding is total: every name resolves to an entity, grounded or not.
	r.transition(StateGrounding)
	focus := o.dctx.Grounding.GroundMany(ctx, request.FocusEntities)
	contextual := o.dctx.Grounding.GroundMany(ctx, request.ContextEntities)

	groundedByID := map[string]common.Entity{}
	for _, entity := range append(append([]common.Entity{}, focus...), contextual...) {
		groundedByID[entity.ID()] = entity
	}

	pairs := buildPairs(focus, contextual)
	if len(pairs) == 0 {
		r.transition(StateNoPathFound)
		return ErrorResponse(request.RequestID, CodeNoCausalPath,
			"no source/target pairs could be formed from the given entities")
	}

	r.transition(StateSearching)
	allPaths := o.searchPairs(ctx, pairs, request.Options.MaxGraphDepth)

	if len(allPaths) == 0 {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			r.transition(StateFailed)
			logger.Warn("[Orchestrator] Deadline expired with nothing resolved", "request", request.RequestID)
			return ErrorResponse(request.RequestID, CodeTimeout, "discovery deadline expired before any path resolved")
		}
		r.transition(StateNoPathFound)
		logger.Info("[Orchestrator] No causal path", "request", request.RequestID, "pairs", len(pairs))
		return ErrorResponse(request.RequestID, CodeNoCausalPath,
			fmt.Sprintf("no causal path found across %d entity pairs", len(pairs)))
	}

	r.transition(StateRanking)
	ranked := Rank(allPaths)

	r.transition(StateBuilding)
	causalGraph := o.dctx.Builder.Build(ranked, groundedByID)
	causalGraph = filterEdges(causalGraph, request.Options.MinEvidenceCount)

	if len(causalGraph.Edges) == 0 {
		r.transition(StateNoPathFound)
		return ErrorResponse(request.RequestID, CodeNoCausalPath,
			"no relationship met the minimum evidence threshold")
	}

	r.transition(StateModifierApplication)
	graph.ApplyModifiers(&causalGraph, request.Genetics)

	r.transition(StateValidating)
	if err := graph.Validate(causalGraph); err != nil {
		r.transition(StateFailed)
		logger.Error("[Orchestrator] Graph failed contract validation", "request", request.RequestID, "err", err)
		return ErrorResponse(request.RequestID, CodeInternalContractError, err.Error())
	}

	r.transition(StateDone)

	totalEvidence := 0
	for _, edge := range causalGraph.Edges {
		totalEvidence += edge.Evidence.Count
	}

	logger.Info("[Orchestrator] Discovery complete",
		"request", request.RequestID,
		"nodes", len(causalGraph.Nodes),
		"edges", len(causalGraph.Edges),
		"paths", len(allPaths),
		"took", time.Since(r.started))

	return SuccessResponse(request.RequestID, causalGraph, Metadata{
		QueryTimeMs:         int(time.Since(r.started).Milliseconds()),
		PathsExplored:       len(allPaths),
		TotalEvidencePapers: totalEvidence,
	}, Explain(causalGraph, ranked))
}

// searchPairs fans the pair lookups out with bounded concurrency and
// collects whatever resolves before ctx expires. Lookups past the deadline
// are abandoned; partial results are preferred over failing the request.
func (o *Orchestrator) searchPairs(ctx context.Context, pairs []entityPair, maxDepth int) []common.CausalPath {
	var (
		mu       sync.Mutex
		gathered []common.CausalPath
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.dctx.PairConcurrency)

	for _, pair := range pairs {
		pair := pair
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			paths := o.dctx.Paths.FindPaths(groupCtx, pair.source, pair.target, maxDepth)
			if len(paths) == 0 {
				return nil
			}
			mu.Lock()
			gathered = append(gathered, paths...)
			mu.Unlock()
			return nil
		})
	}

	// Workers only ever return nil; Wait is for completion, not errors.
	_ = group.Wait()

	return gathered
}

// buildPairs forms the (source, target) lookups of a request. Focus entities
// are the sources and context entities the targets; when no context is
// given, non-biomarker focus entities are paired with biomarker focus
// entities instead.
func buildPairs(focus, contextual []common.Entity) []entityPair {
	var pairs []entityPair
	seen := map[string]struct{}{}

	add := func(source, target common.Entity) {
		if source.ID() == target.ID() {
			return
		}
		key := source.ID() + "\x00" + target.ID()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		pairs = append(pairs, entityPair{source: source, target: target})
	}

	if len(contextual) > 0 {
		for _, source := range focus {
			for _, target := range contextual {
				add(source, target)
			}
		}
		return pairs
	}

	for _, source := range focus {
		if source.Kind == common.KindBiomarker {
			continue
		}
		for _, target := range focus {
			if target.Kind != common.KindBiomarker {
				continue
			}
			add(source, target)
		}
	}
	return pairs
}

// filterEdges drops edges below the evidence threshold. Nodes are kept even
// when orphaned so grounding information is not lost from the response.
func filterEdges(g common.CausalGraph, minEvidence int) common.CausalGraph {
	if minEvidence <= 0 {
		return g
	}
	kept := make([]common.GraphEdge, 0, len(g.Edges))
	for _, edge := range g.Edges {
		if edge.Evidence.Count >= minEvidence {
			kept = append(kept, edge)
		}
	}
	g.Edges = kept
	return g
}
