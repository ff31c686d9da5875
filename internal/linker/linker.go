// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package linker

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pdiddy/knowledge-engine/internal/lumen"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

const excerptLen = 300

// Linker compares concept vocabularies across experiments.
type Linker struct {
	svc         lumen.Service
	minTokenLen int
	synthesize  bool
}

// NewLinker returns a linker. svc is only used when hypothesis synthesis
// is enabled and may be nil otherwise.
func NewLinker(svc lumen.Service, cfg types.LinkerConfig) *Linker {
	minTokenLen := cfg.MinTokenLen
	if minTokenLen <= 0 {
		minTokenLen = defaultMinTokenLen
	}
	return &Linker{svc: svc, minTokenLen: minTokenLen, synthesize: cfg.Synthesize}
}

// Link extracts a concept set per experiment and compares every unordered
// domain pair in a fixed deterministic order: domains sorted by name,
// pairs enumerated lexicographically, self-pairs skipped. Pairs with an
// empty intersection produce no link. When synthesis is enabled, each link
// gets one hypothesis query; a failed synthesis call leaves the link
// without a hypothesis, while auth or rate-limit failures abort the pass
// and return the links built so far.
func (l *Linker) Link(ctx context.Context, experiments []*types.Experiment, w io.Writer) ([]types.CrossDomainLink, error) {
	if len(experiments) < 2 {
		return nil, fmt.Errorf("linking needs at least two experiments, got %d", len(experiments))
	}

	byDomain := make(map[string]*types.Experiment, len(experiments))
	sets := make(map[string]types.ConceptSet, len(experiments))
	domains := make([]string, 0, len(experiments))
	for _, exp := range experiments {
		if _, dup := byDomain[exp.Domain]; dup {
			return nil, fmt.Errorf("duplicate domain %q", exp.Domain)
		}
		byDomain[exp.Domain] = exp
		sets[exp.Domain] = ExtractConcepts(exp, l.minTokenLen)
		domains = append(domains, exp.Domain)
	}
	sort.Strings(domains)

	var links []types.CrossDomainLink
	for i, a := range domains {
		for _, b := range domains[i+1:] {
			shared := intersect(sets[a], sets[b])
			if len(shared) == 0 {
				continue
			}

			link := types.CrossDomainLink{
				Domains:        [2]string{a, b},
				SharedConcepts: shared,
				Strength:       len(shared),
			}
			fmt.Fprintf(w, "link: %s <-> %s (%d shared concepts)\n", a, b, link.Strength)

			if l.synthesize {
				if err := ctx.Err(); err != nil {
					link.SynthesisErr = err.Error()
					links = append(links, link)
					return links, err
				}
				hypothesis, err := l.synthesizeHypothesis(ctx, byDomain[a], byDomain[b], shared)
				if err != nil {
					link.SynthesisErr = err.Error()
					links = append(links, link)
					if lumen.Fatal(err) {
						return links, err
					}
					fmt.Fprintf(w, "  hypothesis failed: %v\n", err)
					continue
				}
				link.Hypothesis = hypothesis
			}

			links = append(links, link)
		}
	}

	return links, nil
}

// synthesizeHypothesis asks the gateway for a connection hypothesis,
// prompting with the shared concepts and a short excerpt from each domain.
func (l *Linker) synthesizeHypothesis(ctx context.Context, a, b *types.Experiment, shared []string) (string, error) {
	concepts := shared
	if len(concepts) > 10 {
		concepts = concepts[:10]
	}

	prompt := fmt.Sprintf(`Two research domains share vocabulary: %q and %q.

Shared concepts: %s

Excerpt from %q:
%s

Excerpt from %q:
%s

Propose one concrete hypothesis for how insights from one domain could advance the other.`,
		a.Domain, b.Domain,
		strings.Join(concepts, ", "),
		a.Domain, excerpt(a),
		b.Domain, excerpt(b))

	result, err := l.svc.Query(ctx, lumen.Request{Text: prompt})
	if err != nil {
		return "", err
	}
	return result.Response, nil
}

// excerpt returns a short slice of the experiment's first stored response.
func excerpt(exp *types.Experiment) string {
	for _, sq := range exp.SeedQueries {
		if sq.Response != "" {
			return truncate(sq.Response, excerptLen)
		}
	}
	for _, g := range exp.FilledGaps() {
		if g.Response != "" {
			return truncate(g.Response, excerptLen)
		}
	}
	return "(no stored responses)"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
