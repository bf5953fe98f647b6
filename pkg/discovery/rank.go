package discovery

import (
	"sort"

	"github.com/exposome-labs/causeway/backend/pkg/common"
)

const (
	evidenceWeight = 0.4
	beliefWeight   = 0.3
	lengthWeight   = 0.3

	// evidenceCap is the evidence count at which the evidence component of
	// the score saturates.
	evidenceCap = 20.0
)

// Score computes the composite ranking score of a path: evidence volume
// (capped), aggregate belief, and brevity, weighted 0.4/0.3/0.3.
func Score(path common.CausalPath) float64 {
	evidenceScore := float64(path.EvidenceCount) / evidenceCap
	if evidenceScore > 1.0 {
		evidenceScore = 1.0
	}

	lengthScore := 0.0
	if path.Length() > 0 {
		lengthScore = 1.0 / float64(path.Length())
	}

	return evidenceWeight*evidenceScore + beliefWeight*path.Belief + lengthWeight*lengthScore
}

// Rank deduplicates and orders paths best first. It is pure: the input slice
// is not modified, and the output order is fully determined by the input.
//
// Paths with identical node sequences are duplicates; the one with the
// higher evidence count survives. Ordering is by descending score, with ties
// broken by shorter length, then higher belief.
func Rank(paths []common.CausalPath) []common.CausalPath {
	if len(paths) == 0 {
		return nil
	}

	bySignature := make(map[string]common.CausalPath, len(paths))
	order := make([]string, 0, len(paths))
	for _, path := range paths {
		sig := path.Signature()
		existing, seen := bySignature[sig]
		if !seen {
			bySignature[sig] = path
			order = append(order, sig)
			continue
		}
		if path.EvidenceCount > existing.EvidenceCount {
			bySignature[sig] = path
		}
	}

	ranked := make([]common.CausalPath, 0, len(order))
	for _, sig := range order {
		ranked = append(ranked, bySignature[sig])
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := Score(ranked[i]), Score(ranked[j])
		if si != sj {
			return si > sj
		}
		if ranked[i].Length() != ranked[j].Length() {
			return ranked[i].Length() < ranked[j].Length()
		}
		return ranked[i].Belief > ranked[j].Belief
	})

	return ranked
}
