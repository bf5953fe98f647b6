package grounding

import (
	"context"
	"strings"

	"github.com/exposome-labs/causeway/backend/pkg/common"
	"github.com/exposome-labs/causeway/backend/pkg/logger"
)

// Source resolves a free-text name to a grounded entity. Sources are tried
// in a fixed priority order; the first hit wins.
type Source interface {
	Resolve(ctx context.Context, name string) (common.Entity, bool)
}

// EnrichmentCandidate is one confidence-scored suggestion from an external
// semantic-enrichment lookup.
type EnrichmentCandidate struct {
	Name       string
	Database   common.Database
	Identifier string
	Kind       common.EntityKind
	Confidence float64
}

// EnrichmentSource is an optional external lookup that suggests canonical
// identifiers for terms the static table does not cover. Absence changes
// coverage, never correctness.
type EnrichmentSource interface {
	Lookup(ctx context.Context, name string) ([]EnrichmentCandidate, error)
}

// Service grounds free-text entity names to canonical database identifiers.
// Resolution order: static curated table, optional enrichment source, then
// a lexical heuristic that only infers a kind.
//
// Grounding never fails for an individual name: unresolvable names come back
// as UNGROUNDED entities with a best-effort kind.
type Service struct {
	sources []Source
}

// NewServiceParams configures a grounding Service.
type NewServiceParams struct {
	// Enrichment is optional; nil disables the enrichment step.
	Enrichment EnrichmentSource
	// MinEnrichmentConfidence is the acceptance threshold for enrichment
	// candidates. Zero or below defaults to 0.7.
	MinEnrichmentConfidence float64
}

// NewService creates a grounding service with the fixed strategy order.
func NewService(params NewServiceParams) *Service {
	threshold := params.MinEnrichmentConfidence
	if threshold <= 0 {
		threshold = 0.7
	}

	sources := []Source{newStaticSource()}
	if params.Enrichment != nil {
		sources = append(sources, &enrichmentSource{
			lookup:    params.Enrichment,
			threshold: threshold,
		})
	}
	sources = append(sources, heuristicSource{})

	return &Service{sources: sources}
}

// Ground resolves a single name. The returned entity is UNGROUNDED when no
// source produced a canonical identifier.
func (s *Service) Ground(ctx context.Context, name string) common.Entity {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return common.Entity{Name: name, Database: common.DatabaseUngrounded, Kind: common.KindMolecular}
	}

	for _, source := range s.sources {
		if entity, ok := source.Resolve(ctx, trimmed); ok {
			return entity
		}
	}

	// Heuristic source always matches, so this is unreachable in practice.
	return common.Entity{Name: trimmed, Database: common.DatabaseUngrounded, Kind: common.KindMolecular}
}

// GroundMany resolves a batch of names, preserving input order. It never
// fails for the batch as a whole; each name independently resolves or comes
// back ungrounded.
func (s *Service) GroundMany(ctx context.Context, names []string) []common.Entity {
	entities := make([]common.Entity, len(names))
	for i, name := range names {
		entities[i] = s.Ground(ctx, name)
	}
	return entities
}

type enrichmentSource struct {
	lookup    EnrichmentSource
	threshold float64
}

func (e *enrichmentSource) Resolve(ctx context.Context, name string) (common.Entity, bool) {
	candidates, err := e.lookup.Lookup(ctx, name)
	if err != nil {
		// Enrichment is best effort; failures fall through to the heuristic.
		logger.Debug("[Grounding] Enrichment lookup failed", "name", name, "err", err)
		return common.Entity{}, false
	}

	best := EnrichmentCandidate{}
	for _, c := range candidates {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	if best.Confidence < e.threshold || best.Identifier == "" {
		return common.Entity{}, false
	}

	kind := best.Kind
	if !kind.Valid() {
		kind = inferKind(name)
	}

	logger.Debug("[Grounding] Enrichment hit", "name", name, "id", best.Identifier, "confidence", best.Confidence)

	key := best.Name
	if key == "" {
		key = name
	}

	// Sources may hand back database labels outside the enum; those entities
	// must not pretend to be grounded.
	db := common.NormalizeDatabase(string(best.Database))
	identifier := best.Identifier
	if db == common.DatabaseUngrounded {
		identifier = ""
	}

	return common.Entity{
		Name:       name,
		Key:        key,
		Label:      best.Name,
		Database:   db,
		Identifier: identifier,
		Kind:       kind,
	}, true
}
