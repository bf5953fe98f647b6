package grounding

import (
	"context"
	"strings"

	"github.com/exposome-labs/causeway/backend/pkg/common"
)

// seedEntry is one row of the curated lookup table. Regulators lists known
// upstream molecular drivers for biomarkers; the discovery service uses them
// to seed the expansion strategy when the knowledge base is unreachable.
type seedEntry struct {
	entity     common.Entity
	aliases    []string
	regulators []string
}

var seedEntries = []seedEntry{
	{
		entity: common.Entity{
			Key: "CRP", Label: "C-Reactive Protein",
			Database: common.DatabaseHGNC, Identifier: "2367",
			Kind: common.KindBiomarker,
		},
		regulators: []string{"IL6", "IL1B", "TNF"},
	},
	{
		entity: common.Entity{
			Key: "IL6", Label: "Interleukin-6",
			Database: common.DatabaseHGNC, Identifier: "6018",
			Kind: common.KindBiomarker,
		},
		aliases:    []string{"IL-6"},
		regulators: []string{"NFKB1", "RELA"},
	},
	{
		entity: common.Entity{
			Key: "8-OHdG", Label: "8-Hydroxy-2-deoxyguanosine",
			Database: common.DatabaseCHEBI, Identifier: "40304",
			Kind: common.KindBiomarker,
		},
	},
	{
		entity: common.Entity{
			Key: "PM2.5", Label: "Particulate Matter (PM2.5)",
			Database: common.DatabaseMESH, Identifier: "D052638",
			Kind: common.KindEnvironmental,
		},
	},
	{
		entity: common.Entity{
			Key: "PM10", Label: "Particulate Matter (PM10)",
			Database: common.DatabaseMESH, Identifier: "D052638",
			Kind: common.KindEnvironmental,
		},
	},
	{
		entity: common.Entity{
			Key: "ozone", Label: "Ozone",
			Database: common.DatabaseCHEBI, Identifier: "25812",
			Kind: common.KindEnvironmental,
		},
	},
	{
		entity: common.Entity{
			Key: "NO2", Label: "Nitrogen Dioxide",
			Database: common.DatabaseCHEBI, Identifier: "33101",
			Kind: common.KindEnvironmental,
		},
	},
	{
		entity: common.Entity{
			Key: "NFKB1", Label: "NF-κB p50",
			Database: common.DatabaseHGNC, Identifier: "7794",
			Kind: common.KindMolecular,
		},
	},
	{
		entity: common.Entity{
			Key: "RELA", Label: "NF-κB p65 (RELA)",
			Database: common.DatabaseHGNC, Identifier: "9955",
			Kind: common.KindMolecular,
		},
	},
	{
		entity: common.Entity{
			Key: "TNF", Label: "TNF-α",
			Database: common.DatabaseHGNC, Identifier: "11892",
			Kind: common.KindMolecular,
		},
	},
	{
		entity: common.Entity{
			Key: "IL1B", Label: "IL-1β",
			Database: common.DatabaseHGNC, Identifier: "5992",
			Kind: common.KindMolecular,
		},
	},
	{
		entity: common.Entity{
			Key: "NFE2L2", Label: "NRF2 (NFE2L2)",
			Database: common.DatabaseHGNC, Identifier: "7782",
			Kind: common.KindMolecular,
		},
	},
	{
		entity: common.Entity{
			Key: "SOD1", Label: "Superoxide Dismutase 1",
			Database: common.DatabaseHGNC, Identifier: "11179",
			Kind: common.KindMolecular,
		},
	},
	{
		entity: common.Entity{
			Key: "ROS", Label: "Reactive Oxygen Species",
			Database: common.DatabaseMESH, Identifier: "D017382",
			Kind: common.KindMolecular,
		},
	},
	{
		entity: common.Entity{
			Key: "oxidative_stress", Label: "Oxidative Stress",
			Database: common.DatabaseGO, Identifier: "0006979",
			Kind: common.KindMolecular,
		},
		aliases: []string{"oxidative stress"},
	},
	{
		entity: common.Entity{
			Key: "inflammation", Label: "Inflammation",
			Database: common.DatabaseGO, Identifier: "0006954",
			Kind: common.KindMolecular,
		},
	},
}

type staticSource struct {
	byName map[string]common.Entity
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func newStaticSource() *staticSource {
	byName := make(map[string]common.Entity)
	for _, entry := range seedEntries {
		byName[normalize(entry.entity.Key)] = entry.entity
		for _, alias := range entry.aliases {
			byName[normalize(alias)] = entry.entity
		}
	}
	return &staticSource{byName: byName}
}

func (s *staticSource) Resolve(_ context.Context, name string) (common.Entity, bool) {
	normalized := normalize(name)

	if entity, ok := s.byName[normalized]; ok {
		entity.Name = name
		return entity, true
	}

	// Fall back to a substring match on display labels, so "interleukin 6
	// levels" still finds IL6.
	for _, entry := range seedEntries {
		if strings.Contains(strings.ToLower(entry.entity.Label), normalized) {
			entity := entry.entity
			entity.Name = name
			return entity, true
		}
	}

	return common.Entity{}, false
}

// Regulators returns known upstream molecular drivers for a seed biomarker,
// e.g. CRP → IL6, IL1B, TNF. Unknown names return nil.
func Regulators(name string) []string {
	normalized := normalize(name)
	for _, entry := range seedEntries {
		if normalize(entry.entity.Key) != normalized {
			continue
		}
		if len(entry.regulators) == 0 {
			return nil
		}
		out := make([]string, len(entry.regulators))
		copy(out, entry.regulators)
		return out
	}
	return nil
}
