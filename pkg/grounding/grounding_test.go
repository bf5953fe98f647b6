package grounding

import (
	"context"
	"errors"
	"testing"

	"github.com/exposome-labs/causeway/backend/pkg/common"
)

func TestGroundStaticTable(t *testing.T) {
	service := NewService(NewServiceParams{})

	cases := []struct {
		name     string
		wantKey  string
		wantDB   common.Database
		wantID   string
		wantKind common.EntityKind
	}{
		{"CRP", "CRP", common.DatabaseHGNC, "2367", common.KindBiomarker},
		{"IL-6", "IL6", common.DatabaseHGNC, "6018", common.KindBiomarker},
		{"il6", "IL6", common.DatabaseHGNC, "6018", common.KindBiomarker},
		{"  PM2.5  ", "PM2.5", common.DatabaseMESH, "D052638", common.KindEnvironmental},
		{"oxidative stress", "oxidative_stress", common.DatabaseGO, "0006979", common.KindMolecular},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entity := service.Ground(context.Background(), tc.name)
			if !entity.Grounded() {
				t.Fatalf("expected %q to ground, got %+v", tc.name, entity)
			}
			if entity.Key != tc.wantKey || entity.Database != tc.wantDB || entity.Identifier != tc.wantID {
				t.Fatalf("Ground(%q) = %s/%s:%s, want %s/%s:%s",
					tc.name, entity.Key, entity.Database, entity.Identifier,
					tc.wantKey, tc.wantDB, tc.wantID)
			}
			if entity.Kind != tc.wantKind {
				t.Fatalf("Ground(%q) kind = %q, want %q", tc.name, entity.Kind, tc.wantKind)
			}
		})
	}
}

func TestGroundUnknownNameNeverFails(t *testing.T) {
	service := NewService(NewServiceParams{})

	entity := service.Ground(context.Background(), "coffee")
	if entity.Grounded() {
		t.Fatalf("unexpected grounding for unknown name: %+v", entity)
	}
	if entity.Database != common.DatabaseUngrounded {
		t.Fatalf("expected UNGROUNDED database, got %q", entity.Database)
	}
	if entity.Name != "coffee" {
		t.Fatalf("raw name must be preserved, got %q", entity.Name)
	}
}

func TestGroundHeuristicKindInference(t *testing.T) {
	service := NewService(NewServiceParams{})

	cases := []struct {
		name string
		want common.EntityKind
	}{
		{"urban air pollution", common.KindEnvironmental},
		{"cigarette smoke", common.KindEnvironmental},
		{"heat shock protein", common.KindMolecular},
		{"serum inflammatory marker", common.KindBiomarker},
		{"xyzzy", common.KindMolecular},
	}

	for _, tc := range cases {
		entity := service.Ground(context.Background(), tc.name)
		if entity.Kind != tc.want {
			t.Fatalf("Ground(%q) kind = %q, want %q", tc.name, entity.Kind, tc.want)
		}
	}
}

func TestGroundManyPreservesOrder(t *testing.T) {
	service := NewService(NewServiceParams{})

	names := []string{"PM2.5", "coffee", "CRP", "eye color"}
	entities := service.GroundMany(context.Background(), names)

	if len(entities) != len(names) {
		t.Fatalf("expected %d entities, got %d", len(names), len(entities))
	}
	for i, name := range names {
		if entities[i].Name != name {
			t.Fatalf("position %d: expected %q, got %q", i, name, entities[i].Name)
		}
	}
}

type stubEnrichment struct {
	candidates []EnrichmentCandidate
	err        error
	calls      int
}

func (s *stubEnrichment) Lookup(_ context.Context, _ string) ([]EnrichmentCandidate, error) {
	s.calls++
	return s.candidates, s.err
}

func TestGroundEnrichmentAboveThreshold(t *testing.T) {
	enrichment := &stubEnrichment{
		candidates: []EnrichmentCandidate{
			{Name: "HMOX1", Database: common.DatabaseHGNC, Identifier: "5013", Confidence: 0.9},
			{Name: "HMOX2", Database: common.DatabaseHGNC, Identifier: "5014", Confidence: 0.4},
		},
	}
	service := NewService(NewServiceParams{Enrichment: enrichment})

	entity := service.Ground(context.Background(), "heme oxygenase")
	if !entity.Grounded() {
		t.Fatalf("expected enrichment hit, got %+v", entity)
	}
	if entity.Identifier != "5013" {
		t.Fatalf("expected the highest-confidence candidate, got %q", entity.Identifier)
	}
}

func TestGroundEnrichmentBelowThresholdRejected(t *testing.T) {
	enrichment := &stubEnrichment{
		candidates: []EnrichmentCandidate{
			{Name: "HMOX1", Database: common.DatabaseHGNC, Identifier: "5013", Confidence: 0.5},
		},
	}
	service := NewService(NewServiceParams{Enrichment: enrichment})

	entity := service.Ground(context.Background(), "heme oxygenase")
	if entity.Grounded() {
		t.Fatalf("low-confidence candidate must be rejected, got %+v", entity)
	}
}

func TestGroundEnrichmentNormalizesForeignDatabase(t *testing.T) {
	enrichment := &stubEnrichment{
		candidates: []EnrichmentCandidate{
			{Name: "IL6", Database: "UP", Identifier: "P05231", Confidence: 0.9},
		},
	}
	service := NewService(NewServiceParams{Enrichment: enrichment})

	entity := service.Ground(context.Background(), "interleukin six")
	if entity.Grounded() {
		t.Fatalf("out-of-enum database must not ground an entity, got %+v", entity)
	}
	if entity.Database != common.DatabaseUngrounded {
		t.Errorf("expected UNGROUNDED database, got %q", entity.Database)
	}
	if entity.Identifier != "" {
		t.Errorf("ungrounded entities must not carry an identifier, got %q", entity.Identifier)
	}
}

func TestGroundEnrichmentFailureFallsThrough(t *testing.T) {
	enrichment := &stubEnrichment{err: errors.New("enrichment down")}
	service := NewService(NewServiceParams{Enrichment: enrichment})

	entity := service.Ground(context.Background(), "some protein")
	if entity.Database != common.DatabaseUngrounded {
		t.Fatalf("expected heuristic fallback, got %+v", entity)
	}
	if entity.Kind != common.KindMolecular {
		t.Fatalf("expected molecular kind from lexical cue, got %q", entity.Kind)
	}
	if enrichment.calls != 1 {
		t.Fatalf("expected one enrichment call, got %d", enrichment.calls)
	}
}

func TestGroundStaticBeatsEnrichment(t *testing.T) {
	enrichment := &stubEnrichment{
		candidates: []EnrichmentCandidate{
			{Name: "WRONG", Database: common.DatabaseHGNC, Identifier: "999", Confidence: 0.99},
		},
	}
	service := NewService(NewServiceParams{Enrichment: enrichment})

	entity := service.Ground(context.Background(), "CRP")
	if entity.Identifier != "2367" {
		t.Fatalf("static table must win over enrichment, got %q", entity.Identifier)
	}
	if enrichment.calls != 0 {
		t.Fatalf("enrichment must not be queried on a static hit, got %d calls", enrichment.calls)
	}
}

func TestRegulators(t *testing.T) {
	crp := Regulators("CRP")
	if len(crp) != 3 || crp[0] != "IL6" {
		t.Fatalf("unexpected CRP regulators: %v", crp)
	}
	if got := Regulators("xyzzy"); got != nil {
		t.Fatalf("expected nil for unknown name, got %v", got)
	}
}
