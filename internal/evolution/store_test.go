// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evolution

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

func sampleExperiment() *types.Experiment {
	return &types.Experiment{
		Domain: "quantum computing",
		SeedQueries: []types.SeedQuery{
			{Text: "q1", Response: "a1", GapCount: 2, ResponseLength: 2},
			{Text: "q2", Err: "timeout"},
		},
		Gaps: map[string]*types.Gap{
			"id-1": {
				ID: "id-1", Domain: "quantum computing", Description: "decoherence",
				Origin: types.OriginSeed, Status: types.GapOpen,
				DiscoveredBy: "q1", DiscoveryIndex: 0, Generation: 1,
			},
			"id-2": {
				ID: "id-2", Domain: "quantum computing", Description: "error correction",
				Origin: types.OriginEmergent, Status: types.GapFilled,
				DiscoveredBy: "decoherence", DiscoveryIndex: 1, Generation: 2,
				Response: "filled answer", FilledAt: time.Now().UTC().Truncate(time.Millisecond),
				LastError: "",
			},
		},
		Generation: 2,
		NextIndex:  2,
		Metrics: &types.ImprovementMetrics{
			PerQuery: []types.QueryImprovement{
				{Query: "q1", OldGapCount: 2, NewGapCount: 1, GapReduction: 0.5, LengthDelta: 10},
			},
			GapReduction: 0.5,
			LengthDelta:  10,
			MeasuredAt:   time.Now().UTC().Truncate(time.Millisecond),
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	exp := sampleExperiment()
	if err := store.Save(context.Background(), exp); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(context.Background(), "quantum computing")
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Generation != 2 || loaded.NextIndex != 2 {
		t.Errorf("counters lost: generation=%d next=%d", loaded.Generation, loaded.NextIndex)
	}
	if len(loaded.SeedQueries) != 2 {
		t.Fatalf("seed queries = %d, want 2", len(loaded.SeedQueries))
	}
	if loaded.SeedQueries[0].GapCount != 2 || loaded.SeedQueries[1].Err != "timeout" {
		t.Error("seed query fields lost in round trip")
	}

	if len(loaded.Gaps) != 2 {
		t.Fatalf("gaps = %d, want 2", len(loaded.Gaps))
	}
	g1 := loaded.Gaps["id-1"]
	if g1 == nil || g1.Origin != types.OriginSeed || g1.Status != types.GapOpen {
		t.Errorf("open seed gap lost: %+v", g1)
	}
	g2 := loaded.Gaps["id-2"]
	if g2 == nil || g2.Origin != types.OriginEmergent || g2.Status != types.GapFilled {
		t.Errorf("filled emergent gap lost: %+v", g2)
	}
	if g2.Response != "filled answer" || g2.FilledAt.IsZero() || g2.Generation != 2 {
		t.Errorf("fill detail lost: %+v", g2)
	}

	if loaded.Metrics == nil || loaded.Metrics.GapReduction != 0.5 {
		t.Errorf("metrics lost: %+v", loaded.Metrics)
	}
	if loaded.CreatedAt.IsZero() || loaded.UpdatedAt.IsZero() {
		t.Error("timestamps not set on save")
	}
}

func TestStore_LoadNotFound(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	_, err = store.Load(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	exp := sampleExperiment()
	if err := store.Save(context.Background(), exp); err != nil {
		t.Fatal(err)
	}

	// Fill one more gap and save again; the old row set is replaced.
	exp.Gaps["id-1"].Status = types.GapFilled
	exp.Generation = 3
	if err := store.Save(context.Background(), exp); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(context.Background(), exp.Domain)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Generation != 3 || loaded.Gaps["id-1"].Status != types.GapFilled {
		t.Error("second save did not replace state")
	}
	if len(loaded.Gaps) != 2 {
		t.Errorf("gaps = %d after re-save, want 2", len(loaded.Gaps))
	}
}

func TestStore_Domains(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for _, d := range []string{"zeta", "alpha"} {
		exp := &types.Experiment{Domain: d, Gaps: map[string]*types.Gap{}, Generation: 1}
		if err := store.Save(context.Background(), exp); err != nil {
			t.Fatal(err)
		}
	}

	domains, err := store.Domains(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(domains) != 2 || domains[0] != "alpha" || domains[1] != "zeta" {
		t.Errorf("domains = %v, want sorted [alpha zeta]", domains)
	}
}

func TestStore_ExportYAML(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	exp := sampleExperiment()
	if err := store.Save(context.Background(), exp); err != nil {
		t.Fatal(err)
	}

	path, err := store.ExportYAML(context.Background(), exp.Domain)
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{"decoherence", "error correction", "emergent", "filled", "gap_reduction"} {
		if !strings.Contains(content, want) {
			t.Errorf("export missing %q", want)
		}
	}
	if !strings.HasSuffix(path, "quantum_computing-experiment.yaml") {
		t.Errorf("unexpected export path %s", path)
	}
}

func TestStore_PerDomainLocks(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	a1 := store.Lock("a")
	a2 := store.Lock("a")
	b := store.Lock("b")

	if a1 != a2 {
		t.Error("same domain must share one lock")
	}
	if a1 == b {
		t.Error("different domains must not share a lock")
	}

	// The lock actually serializes: holding it blocks a second acquisition.
	a1.Lock()
	acquired := make(chan struct{})
	go func() {
		a2.Lock()
		close(acquired)
		a2.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second writer acquired a held domain lock")
	case <-time.After(50 * time.Millisecond):
	}
	a1.Unlock()
	<-acquired
}
