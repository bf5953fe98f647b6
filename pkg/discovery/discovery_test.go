package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/exposome-labs/causeway/backend/pkg/biokb"
	"github.com/exposome-labs/causeway/backend/pkg/common"
)

// fakeClient is a scriptable in-memory knowledge-base client.
type fakeClient struct {
	mu sync.Mutex

	paths     map[string][]biokb.Path
	neighbors map[string][]biokb.Neighbor
	matches   map[string][]biokb.Match

	failAll bool
	// block makes every call wait for ctx and return its error.
	block bool

	findCalls     int
	neighborCalls int
}

func pairKey(source, target string) string {
	return source + "|" + target
}

func (f *fakeClient) wait(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.failAll {
		return errors.New("knowledge base unavailable")
	}
	return nil
}

func (f *fakeClient) FindPaths(ctx context.Context, source, target string, maxDepth, limit int) ([]biokb.Path, error) {
	f.mu.Lock()
	f.findCalls++
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.paths[pairKey(source, target)], nil
}

func (f *fakeClient) Neighbors(ctx context.Context, node string, direction biokb.Direction, hops int, minBelief float64) ([]biokb.Neighbor, error) {
	f.mu.Lock()
	f.neighborCalls++
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.neighbors[node], nil
}

func (f *fakeClient) Autocomplete(ctx context.Context, prefix string, limit int) ([]biokb.Match, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.matches[prefix], nil
}

func (f *fakeClient) Health(ctx context.Context) error {
	return f.wait(ctx)
}

func (f *fakeClient) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCalls, f.neighborCalls
}

func testEntity(key string, db common.Database, id string, kind common.EntityKind) common.Entity {
	return common.Entity{Name: key, Key: key, Label: key, Database: db, Identifier: id, Kind: kind}
}

var (
	testPM25 = testEntity("PM2.5", common.DatabaseMESH, "D052638", common.KindEnvironmental)
	testIL6  = testEntity("IL6", common.DatabaseHGNC, "6018", common.KindBiomarker)
	testCRP  = testEntity("CRP", common.DatabaseHGNC, "2367", common.KindBiomarker)
)

func apiPath(belief float64, hops ...biokb.Edge) biokb.Path {
	nodes := []biokb.Node{}
	for i, hop := range hops {
		if i == 0 {
			nodes = append(nodes, biokb.Node{ID: hop.Source, Name: hop.Source, Database: "HGNC", Identifier: hop.Source})
		}
		nodes = append(nodes, biokb.Node{ID: hop.Target, Name: hop.Target, Database: "HGNC", Identifier: hop.Target})
	}
	return biokb.Path{Nodes: nodes, Edges: hops, Belief: belief}
}

func TestFindPathsCacheIdempotence(t *testing.T) {
	client := &fakeClient{
		paths: map[string][]biokb.Path{
			pairKey(testPM25.CURIE(), testIL6.CURIE()): {
				apiPath(0.8, biokb.Edge{Source: "PM2.5", Target: "IL6", StatementType: "Activation", Belief: 0.8, EvidenceCount: 30}),
			},
		},
	}
	service := NewService(NewServiceParams{Client: client})

	first := service.FindPaths(context.Background(), testPM25, testIL6, 2)
	second := service.FindPaths(context.Background(), testPM25, testIL6, 2)

	if len(first) != 1 {
		t.Fatalf("expected one path, got %d", len(first))
	}
	if len(second) != len(first) || second[0].Signature() != first[0].Signature() {
		t.Fatalf("warm cache returned different results")
	}

	finds, _ := client.calls()
	if finds != 1 {
		t.Fatalf("expected exactly one network call with a warm cache, got %d", finds)
	}
}

func TestFindPathsFallbackWhenAPIDown(t *testing.T) {
	client := &fakeClient{failAll: true}
	service := NewService(NewServiceParams{Client: client})

	paths := service.FindPaths(context.Background(), testPM25, testCRP, 4)

	if len(paths) == 0 {
		t.Fatalf("expected fallback paths for (PM2.5, CRP) with a failing client")
	}
	for _, path := range paths {
		if path.Nodes[0].ID() != "PM2.5" {
			t.Fatalf("fallback path does not start at PM2.5: %s", path.Signature())
		}
		if path.Nodes[path.Length()-1].ID() != "CRP" {
			t.Fatalf("fallback path does not end at CRP: %s", path.Signature())
		}
		if len(path.Statements) != path.Length()-1 {
			t.Fatalf("malformed fallback path %s", path.Signature())
		}
	}
}

func TestFindPathsFailureWithoutFallbackIsNotCached(t *testing.T) {
	client := &fakeClient{failAll: true}
	service := NewService(NewServiceParams{Client: client})

	unknownA := testEntity("ABCA7", common.DatabaseHGNC, "23461", common.KindMolecular)
	unknownB := testEntity("PLCG2", common.DatabaseHGNC, "9066", common.KindMolecular)

	if paths := service.FindPaths(context.Background(), unknownA, unknownB, 2); len(paths) != 0 {
		t.Fatalf("expected no paths for unknown pair, got %d", len(paths))
	}
	if paths := service.FindPaths(context.Background(), unknownA, unknownB, 2); len(paths) != 0 {
		t.Fatalf("expected no paths on retry, got %d", len(paths))
	}

	finds, _ := client.calls()
	if finds != 2 {
		t.Fatalf("failed lookups must not be cached; expected 2 network calls, got %d", finds)
	}
}

func TestFindPathsCachesConfirmedEmptyResults(t *testing.T) {
	client := &fakeClient{paths: map[string][]biokb.Path{}}
	service := NewService(NewServiceParams{Client: client})

	unknownA := testEntity("ABCA7", common.DatabaseHGNC, "23461", common.KindMolecular)
	unknownB := testEntity("PLCG2", common.DatabaseHGNC, "9066", common.KindMolecular)

	service.FindPaths(context.Background(), unknownA, unknownB, 2)
	service.FindPaths(context.Background(), unknownA, unknownB, 2)

	finds, _ := client.calls()
	if finds != 1 {
		t.Fatalf("an API-confirmed empty result should be cached; expected 1 call, got %d", finds)
	}
}

func TestFindPathsExpansionStrategy(t *testing.T) {
	via := testEntity("NFKB1", common.DatabaseHGNC, "7794", common.KindMolecular)

	client := &fakeClient{
		paths: map[string][]biokb.Path{
			// No direct route; only neighbor -> target resolves.
			pairKey(via.CURIE(), testIL6.CURIE()): {
				apiPath(0.85, biokb.Edge{Source: "NFKB1", Target: "IL6", StatementType: "IncreaseAmount", Belief: 0.85, EvidenceCount: 40}),
			},
		},
		neighbors: map[string][]biokb.Neighbor{
			testPM25.CURIE(): {
				{Node: biokb.Node{ID: "NFKB1", Name: "NFKB1", Database: "HGNC", Identifier: "7794"}, Belief: 0.7},
			},
		},
	}
	service := NewService(NewServiceParams{Client: client})

	paths := service.FindPaths(context.Background(), testPM25, testIL6, 4)

	if len(paths) != 1 {
		t.Fatalf("expected one stitched path, got %d", len(paths))
	}
	path := paths[0]
	if path.Signature() != "PM2.5→NFKB1→IL6" {
		t.Fatalf("unexpected stitched path %s", path.Signature())
	}
	if path.Belief != 0.7 {
		t.Fatalf("stitched belief must be the minimum hop belief, got %v", path.Belief)
	}
	if len(path.Statements) != path.Length()-1 {
		t.Fatalf("stitched path has mismatched statement count")
	}
}

func TestFindPathsDeduplicatesAcrossStrategies(t *testing.T) {
	direct := apiPath(0.8,
		biokb.Edge{Source: "PM2.5", Target: "NFKB1", StatementType: "Activation", Belief: 0.8, EvidenceCount: 20},
		biokb.Edge{Source: "NFKB1", Target: "IL6", StatementType: "IncreaseAmount", Belief: 0.9, EvidenceCount: 50},
	)

	client := &fakeClient{
		paths: map[string][]biokb.Path{
			pairKey(testPM25.CURIE(), testIL6.CURIE()): {direct},
		},
		neighbors: map[string][]biokb.Neighbor{},
	}
	service := NewService(NewServiceParams{Client: client})

	paths := service.FindPaths(context.Background(), testPM25, testIL6, 4)

	seen := map[string]bool{}
	for _, path := range paths {
		if seen[path.Signature()] {
			t.Fatalf("duplicate path signature %s", path.Signature())
		}
		seen[path.Signature()] = true
	}
}

func TestExpandNeighborsFailureIsEmpty(t *testing.T) {
	client := &fakeClient{failAll: true}
	service := NewService(NewServiceParams{Client: client})

	if got := service.ExpandNeighbors(context.Background(), testPM25, biokb.Downstream, 1); len(got) != 0 {
		t.Fatalf("expected empty result on failure, got %d entities", len(got))
	}
}
