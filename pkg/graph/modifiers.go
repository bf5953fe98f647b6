package graph

import (
	"sort"
	"strings"

	"github.com/exposome-labs/causeway/backend/pkg/common"
	"github.com/exposome-labs/causeway/backend/pkg/logger"
)

// variantEffect describes how one genotype shifts the strength of edges
// touching its affected nodes.
type variantEffect struct {
	affects    []string
	effectType common.EffectType
	magnitude  float64
}

// knownVariants maps "GENE_genotype" keys to their modifier effect. The
// genotype label is normalized with slashes removed, so "Val/Val" and
// "ValVal" resolve to the same key.
var knownVariants = map[string]variantEffect{
	"GSTM1_null": {
		affects:    []string{"oxidative_stress", "ROS"},
		effectType: common.EffectAmplifies,
		magnitude:  1.3,
	},
	"GSTP1_ValVal": {
		affects:    []string{"oxidative_stress"},
		effectType: common.EffectAmplifies,
		magnitude:  1.15,
	},
	"TNF-alpha_-308GA": {
		affects:    []string{"TNF", "IL6"},
		effectType: common.EffectAmplifies,
		magnitude:  1.2,
	},
	"SOD2_AlaAla": {
		affects:    []string{"oxidative_stress", "ROS"},
		effectType: common.EffectDampens,
		magnitude:  0.85,
	},
}

// variantKey builds the lookup key for a gene and genotype label. Slashes
// in the label are stripped so common genotype notations normalize.
func variantKey(gene, genotype string) string {
	return gene + "_" + strings.ReplaceAll(genotype, "/", "")
}

// ApplyModifiers overlays genetic modifiers on a built graph. Genotypes is
// a map of gene symbol to genotype label. A variant contributes a modifier
// only when at least one of its affected nodes is present in the graph;
// unknown variants and variants with no affected node in scope are skipped
// without error. Genes are processed in sorted order so output is
// deterministic regardless of map iteration.
func ApplyModifiers(graph *common.CausalGraph, genotypes map[string]string) {
	if len(genotypes) == 0 {
		return
	}

	present := graph.NodeIDs()

	genes := make([]string, 0, len(genotypes))
	for gene := range genotypes {
		genes = append(genes, gene)
	}
	sort.Strings(genes)

	for _, gene := range genes {
		key := variantKey(gene, genotypes[gene])
		effect, ok := knownVariants[key]
		if !ok {
			logger.Debug("[Graph] Unknown genetic variant", "variant", key)
			continue
		}

		inScope := []string{}
		for _, nodeID := range effect.affects {
			if _, ok := present[nodeID]; ok {
				inScope = append(inScope, nodeID)
			}
		}
		if len(inScope) == 0 {
			logger.Debug("[Graph] Variant affects no node in graph", "variant", key)
			continue
		}

		graph.GeneticModifiers = append(graph.GeneticModifiers, common.GeneticModifier{
			Variant:       key,
			AffectedNodes: inScope,
			EffectType:    effect.effectType,
			Magnitude:     effect.magnitude,
		})
	}
}
