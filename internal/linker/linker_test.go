// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package linker

import (
	"context"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/pdiddy/knowledge-engine/internal/lumen"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// --- test helpers ---

type stubService struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (s *stubService) Query(_ context.Context, req lumen.Request) (*lumen.Result, error) {
	s.calls++
	s.prompts = append(s.prompts, req.Text)
	if s.err != nil {
		return nil, s.err
	}
	return &lumen.Result{Response: s.response}, nil
}

func experiment(domain string, gapDescriptions []string, responses []string) *types.Experiment {
	exp := &types.Experiment{
		Domain:     domain,
		Gaps:       make(map[string]*types.Gap),
		Generation: 1,
	}
	for i, d := range gapDescriptions {
		id := domain + "-" + d
		exp.Gaps[id] = &types.Gap{
			ID: id, Domain: domain, Description: d,
			Origin: types.OriginSeed, Status: types.GapOpen,
			DiscoveryIndex: i,
		}
	}
	for _, r := range responses {
		exp.SeedQueries = append(exp.SeedQueries, types.SeedQuery{
			Text: "seed", Response: r, ResponseLength: len(r),
		})
	}
	return exp
}

// --- concept extraction ---

func TestExtractConcepts(t *testing.T) {
	exp := experiment("neuro",
		[]string{"synaptic plasticity mechanisms"},
		[]string{"Hebbian learning strengthens synaptic connections."})

	set := ExtractConcepts(exp, 5)

	for _, want := range []string{"synaptic", "plasticity", "hebbian", "learning"} {
		if _, ok := set.Concepts[want]; !ok {
			t.Errorf("concept %q missing from %v", want, set.Sorted())
		}
	}
	// Below minimum length.
	if _, ok := set.Concepts["the"]; ok {
		t.Error("short token survived the length filter")
	}
}

func TestExtractConcepts_Stopwords(t *testing.T) {
	exp := experiment("d", []string{"information about specific implementation details"}, nil)
	set := ExtractConcepts(exp, 5)
	for tok := range set.Concepts {
		if _, stop := stopwords[tok]; stop {
			t.Errorf("stopword %q survived extraction", tok)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Quantum-Annealing, for (optimization)!")
	want := []string{"quantum", "annealing", "for", "optimization"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

// --- linking ---

func TestLink_SymmetricPairs(t *testing.T) {
	a := experiment("alpha", []string{"quantum annealing optimization"}, nil)
	b := experiment("beta", []string{"annealing schedules for optimization"}, nil)

	l := NewLinker(nil, types.LinkerConfig{})

	linksAB, err := l.Link(context.Background(), []*types.Experiment{a, b}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	linksBA, err := l.Link(context.Background(), []*types.Experiment{b, a}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	if len(linksAB) != 1 || len(linksBA) != 1 {
		t.Fatalf("links = %d/%d, want 1/1", len(linksAB), len(linksBA))
	}
	if !reflect.DeepEqual(linksAB[0].SharedConcepts, linksBA[0].SharedConcepts) {
		t.Errorf("shared concepts differ by input order: %v vs %v",
			linksAB[0].SharedConcepts, linksBA[0].SharedConcepts)
	}
	if linksAB[0].Domains != [2]string{"alpha", "beta"} || linksBA[0].Domains != [2]string{"alpha", "beta"} {
		t.Error("domain pair not stored sorted")
	}
}

func TestLink_EmptyIntersectionSkipped(t *testing.T) {
	a := experiment("alpha", []string{"quantum mechanics"}, nil)
	b := experiment("beta", []string{"sourdough fermentation"}, nil)

	l := NewLinker(nil, types.LinkerConfig{})
	links, err := l.Link(context.Background(), []*types.Experiment{a, b}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 0 {
		t.Errorf("links = %d, want 0 for disjoint vocabularies", len(links))
	}
}

func TestLink_DeterministicPairOrder(t *testing.T) {
	// Three overlapping domains: pairs come out lexicographically.
	a := experiment("alpha", []string{"shared tokens everywhere"}, nil)
	b := experiment("beta", []string{"shared tokens everywhere"}, nil)
	c := experiment("gamma", []string{"shared tokens everywhere"}, nil)

	l := NewLinker(nil, types.LinkerConfig{})
	links, err := l.Link(context.Background(), []*types.Experiment{c, a, b}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	wantPairs := [][2]string{{"alpha", "beta"}, {"alpha", "gamma"}, {"beta", "gamma"}}
	if len(links) != 3 {
		t.Fatalf("links = %d, want 3", len(links))
	}
	for i, link := range links {
		if link.Domains != wantPairs[i] {
			t.Errorf("pair %d = %v, want %v", i, link.Domains, wantPairs[i])
		}
	}
}

func TestLink_SynthesizesHypothesis(t *testing.T) {
	a := experiment("alpha", []string{"gradient descent optimization"}, []string{"alpha excerpt text"})
	b := experiment("beta", []string{"evolutionary optimization strategies"}, []string{"beta excerpt text"})

	svc := &stubService{response: "combine both approaches"}
	l := NewLinker(svc, types.LinkerConfig{Synthesize: true})

	links, err := l.Link(context.Background(), []*types.Experiment{a, b}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0].Hypothesis != "combine both approaches" {
		t.Fatalf("hypothesis not recorded: %+v", links)
	}
	if svc.calls != 1 {
		t.Errorf("synthesis calls = %d, want 1 per link", svc.calls)
	}
	prompt := svc.prompts[0]
	for _, want := range []string{"optimization", "alpha excerpt text", "beta excerpt text"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestLink_FatalSynthesisAborts(t *testing.T) {
	a := experiment("alpha", []string{"shared vocabulary tokens"}, nil)
	b := experiment("beta", []string{"shared vocabulary tokens"}, nil)
	c := experiment("gamma", []string{"shared vocabulary tokens"}, nil)

	svc := &stubService{err: &lumen.APIError{Kind: lumen.KindRateLimit, Message: "quota"}}
	l := NewLinker(svc, types.LinkerConfig{Synthesize: true})

	links, err := l.Link(context.Background(), []*types.Experiment{a, b, c}, io.Discard)
	if err == nil || !lumen.Fatal(err) {
		t.Fatalf("want fatal error, got %v", err)
	}
	// First pair's link survives with the failure recorded; later pairs
	// never got a call.
	if len(links) != 1 || links[0].SynthesisErr == "" {
		t.Fatalf("partial links = %+v", links)
	}
	if svc.calls != 1 {
		t.Errorf("calls = %d, want 1 (abort after fatal)", svc.calls)
	}
}

func TestLink_NeedsTwoExperiments(t *testing.T) {
	a := experiment("alpha", nil, nil)
	l := NewLinker(nil, types.LinkerConfig{})
	if _, err := l.Link(context.Background(), []*types.Experiment{a}, io.Discard); err == nil {
		t.Fatal("single experiment must be rejected")
	}
}
