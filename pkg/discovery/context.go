package discovery

import (
	"time"

	"github.com/exposome-labs/causeway/backend/pkg/biokb"
	"github.com/exposome-labs/causeway/backend/pkg/graph"
	"github.com/exposome-labs/causeway/backend/pkg/grounding"
)

// Context bundles the shared, process-lifetime collaborators of the
// discovery pipeline: the grounding service, the path discovery service with
// its cache, and the graph builder. It is constructed once at startup and
// handed to every orchestrator run; per-request state never lives here.
type Context struct {
	Grounding *grounding.Service
	Paths     *Service
	Builder   *graph.Builder

	// RequestDeadline bounds one whole discovery request.
	RequestDeadline time.Duration
	// PairConcurrency bounds concurrent (source, target) lookups inside a
	// single request.
	PairConcurrency int
}

// NewContextParams configures a discovery Context.
type NewContextParams struct {
	Client biokb.Client

	// RequestDeadline defaults to 5s.
	RequestDeadline time.Duration
	// PairConcurrency defaults to 5.
	PairConcurrency int
	// TopK is passed through to the path discovery service.
	TopK int
}

// NewContext wires the discovery pipeline around a knowledge-base client.
// The autocomplete endpoint of the same client doubles as the grounding
// enrichment source.
func NewContext(params NewContextParams) *Context {
	deadline := params.RequestDeadline
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	concurrency := params.PairConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	var enrichment grounding.EnrichmentSource
	if params.Client != nil {
		enrichment = grounding.NewAutocompleteEnrichment(params.Client)
	}

	return &Context{
		Grounding: grounding.NewService(grounding.NewServiceParams{
			Enrichment: enrichment,
		}),
		Paths: NewService(NewServiceParams{
			Client: params.Client,
			TopK:   params.TopK,
		}),
		Builder: graph.NewBuilder(graph.NewBuilderParams{
			IncludeUngrounded: true,
		}),
		RequestDeadline: deadline,
		PairConcurrency: concurrency,
	}
}
