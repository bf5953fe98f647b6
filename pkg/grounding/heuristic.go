package grounding

import (
	"context"
	"strings"

	"github.com/exposome-labs/causeway/backend/pkg/common"
)

var environmentalCues = []string{
	"pollut", "particulate", "air quality", "exposure",
	"ozone", "dioxide", "smog", "aerosol", "smoke",
}

var biomarkerCues = []string{
	"biomarker", "marker", "-reactive", "indicator", "level",
}

var molecularCues = []string{
	"protein", "interleukin", "-cyte", "cytokine", "kinase",
	"receptor", "enzyme", "factor", "gene",
}

// inferKind guesses an entity kind from lexical cues in the name. It is the
// last resort for names no table or enrichment source recognizes, and it
// never produces an identifier.
func inferKind(name string) common.EntityKind {
	lower := strings.ToLower(name)

	for _, cue := range environmentalCues {
		if strings.Contains(lower, cue) {
			return common.KindEnvironmental
		}
	}
	for _, cue := range biomarkerCues {
		if strings.Contains(lower, cue) {
			return common.KindBiomarker
		}
	}
	for _, cue := range molecularCues {
		if strings.Contains(lower, cue) {
			return common.KindMolecular
		}
	}

	return common.KindMolecular
}

// heuristicSource terminates every resolution chain: it always matches,
// producing an ungrounded entity with an inferred kind.
type heuristicSource struct{}

func (heuristicSource) Resolve(_ context.Context, name string) (common.Entity, bool) {
	return common.Entity{
		Name:     name,
		Database: common.DatabaseUngrounded,
		Kind:     inferKind(name),
	}, true
}
