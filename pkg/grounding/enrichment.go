package grounding

import (
	"context"
	"fmt"
	"strings"

	"github.com/exposome-labs/causeway/backend/pkg/biokb"
	"github.com/exposome-labs/causeway/backend/pkg/common"
)

// AutocompleteEnrichment adapts the knowledge-base autocomplete endpoint to
// the EnrichmentSource interface. The API returns no confidence of its own,
// so one is assigned from match quality: exact name matches score high,
// anything else stays below the default acceptance threshold.
type AutocompleteEnrichment struct {
	client biokb.Client
	limit  int
}

// NewAutocompleteEnrichment wraps a knowledge-base client as an enrichment
// source.
func NewAutocompleteEnrichment(client biokb.Client) *AutocompleteEnrichment {
	return &AutocompleteEnrichment{client: client, limit: 5}
}

// Lookup queries autocomplete and scores the candidates.
func (a *AutocompleteEnrichment) Lookup(ctx context.Context, name string) ([]EnrichmentCandidate, error) {
	matches, err := a.client.Autocomplete(ctx, name, a.limit)
	if err != nil {
		return nil, fmt.Errorf("autocomplete lookup failed: %w", err)
	}

	candidates := make([]EnrichmentCandidate, 0, len(matches))
	for i, m := range matches {
		confidence := 0.6
		switch {
		case m.Name == name:
			confidence = 0.95
		case strings.EqualFold(m.Name, name):
			confidence = 0.85
		case i == 0:
			confidence = 0.65
		}

		candidates = append(candidates, EnrichmentCandidate{
			Name:       m.Name,
			Database:   common.NormalizeDatabase(m.Database),
			Identifier: m.ID,
			Confidence: confidence,
		})
	}
	return candidates, nil
}
