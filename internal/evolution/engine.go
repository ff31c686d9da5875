// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evolution

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/knowledge-engine/internal/lumen"
	"github.com/pdiddy/knowledge-engine/internal/research"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

const (
	defaultMaxGaps = 5
	defaultWorkers = 4
)

// Engine runs the three evolution phases against one store. Phases on the
// same domain are serialized through the store's per-domain lock; every
// phase persists its outcome before returning, so independent process
// invocations compose.
type Engine struct {
	svc     lumen.Service
	store   *Store
	maxGaps int
	workers int
}

// NewEngine returns an engine backed by svc and store.
func NewEngine(svc lumen.Service, store *Store, cfg types.EvolutionConfig) *Engine {
	maxGaps := cfg.MaxGaps
	if maxGaps <= 0 {
		maxGaps = defaultMaxGaps
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Engine{svc: svc, store: store, maxGaps: maxGaps, workers: workers}
}

// Seed creates the experiment for domain by asking each seed query once at
// depth 0. Every missing-context item becomes an open seed-origin gap, in
// call order. Items repeated within one call are inserted once; the same
// text surfacing from different seed queries stays distinct.
//
// Seeding an existing domain is an error: an experiment is created exactly
// once and then evolved by fill passes.
func (e *Engine) Seed(ctx context.Context, domain string, queries []string, w io.Writer) (*types.Experiment, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("no seed queries for domain %q", domain)
	}

	lock := e.store.Lock(domain)
	lock.Lock()
	defer lock.Unlock()

	if _, err := e.store.Load(ctx, domain); err == nil {
		return nil, fmt.Errorf("domain %q already seeded; use fill to evolve it", domain)
	}

	exp := &types.Experiment{
		Domain:     domain,
		Gaps:       make(map[string]*types.Gap),
		Generation: 1,
	}

	var fatal error
	for i, query := range queries {
		fmt.Fprintf(w, "[%d/%d] seeding: %s\n", i+1, len(queries), query)

		if err := ctx.Err(); err != nil {
			exp.SeedQueries = append(exp.SeedQueries, types.SeedQuery{Text: query, Err: err.Error()})
			continue
		}

		result, err := e.svc.Query(ctx, lumen.Request{Text: query})
		if err != nil {
			fmt.Fprintf(w, "    failed: %v\n", err)
			exp.SeedQueries = append(exp.SeedQueries, types.SeedQuery{Text: query, Err: err.Error()})
			if lumen.Fatal(err) {
				fatal = err
				break
			}
			continue
		}

		exp.SeedQueries = append(exp.SeedQueries, types.SeedQuery{
			Text:           query,
			Response:       result.Response,
			GapCount:       len(result.MissingContext),
			ResponseLength: len(result.Response),
		})

		added := appendGaps(exp, result.MissingContext, query, types.OriginSeed)
		fmt.Fprintf(w, "    response: %d chars, gaps: %d\n", len(result.Response), added)
	}

	if err := e.store.Save(ctx, exp); err != nil {
		return exp, err
	}
	if fatal != nil {
		return exp, fatal
	}

	fmt.Fprintf(w, "\nseeded %s: %d queries, %d gaps\n", domain, len(exp.SeedQueries), len(exp.Gaps))
	return exp, nil
}

// FillReport summarizes one fill pass.
type FillReport struct {
	// Filled counts gaps that transitioned open → filled.
	Filled int

	// Emergent counts new second-order gaps discovered while filling.
	Emergent int

	// Failed counts gaps whose calls failed; they stay open with the
	// error recorded.
	Failed int
}

// Ratio is the emergent-growth ratio: emergent gaps per filled gap.
func (r FillReport) Ratio() float64 {
	if r.Filled == 0 {
		return 0
	}
	return float64(r.Emergent) / float64(r.Filled)
}

// Fill resolves up to maxGaps open gaps in discovery order (FIFO). Each
// gap's description is asked as a query, one level deep: the call's
// missing-context items enter the experiment as open emergent gaps, and
// the processed gap becomes filled. Calls run concurrently through the
// worker pool; mutations apply in selection order, so discovery indices
// stay deterministic. maxGaps <= 0 uses the configured default.
func (e *Engine) Fill(ctx context.Context, domain string, maxGaps int, w io.Writer) (*types.Experiment, FillReport, error) {
	if maxGaps <= 0 {
		maxGaps = e.maxGaps
	}

	lock := e.store.Lock(domain)
	lock.Lock()
	defer lock.Unlock()

	exp, err := e.store.Load(ctx, domain)
	if err != nil {
		return nil, FillReport{}, err
	}

	open := exp.OpenGaps()
	if len(open) > maxGaps {
		open = open[:maxGaps]
	}
	if len(open) == 0 {
		fmt.Fprintf(w, "no open gaps in %s\n", domain)
		return exp, FillReport{}, nil
	}

	exp.Generation++
	fmt.Fprintf(w, "filling %d gap(s) in %s (generation %d)\n", len(open), domain, exp.Generation)

	type outcome struct {
		result *lumen.Result
		err    error
	}
	outcomes := make([]outcome, len(open))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, gap := range open {
		i, gap := i, gap
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = outcome{err: err}
				return nil
			}
			result, err := e.svc.Query(gctx, lumen.Request{Text: gap.Description})
			outcomes[i] = outcome{result: result, err: err}
			if err != nil && lumen.Fatal(err) {
				return err
			}
			return nil
		})
	}
	fatal := g.Wait()

	var report FillReport
	for i, gap := range open {
		out := outcomes[i]
		if out.err != nil {
			gap.LastError = out.err.Error()
			report.Failed++
			fmt.Fprintf(w, "  failed  %s: %v\n", truncate(gap.Description, 60), out.err)
			continue
		}

		gap.Status = types.GapFilled
		gap.Response = out.result.Response
		gap.FilledAt = time.Now().UTC()
		gap.LastError = ""
		report.Filled++

		emergent := appendGaps(exp, out.result.MissingContext, gap.Description, types.OriginEmergent)
		report.Emergent += emergent
		fmt.Fprintf(w, "  filled  %s (%d emergent)\n", truncate(gap.Description, 60), emergent)
	}

	if err := e.store.Save(ctx, exp); err != nil {
		return exp, report, err
	}
	if fatal != nil {
		return exp, report, fatal
	}

	fmt.Fprintf(w, "\nfilled: %d, emergent: %d, failed: %d, growth ratio: %.2f\n",
		report.Filled, report.Emergent, report.Failed, report.Ratio())
	return exp, report, nil
}

// Measure re-asks every seed query and compares each new missing-context
// count against the seeded baseline: gap_reduction = 1 - new/old, with a
// baseline of zero counting as fully reduced only when the re-run is also
// clean. Response-length delta is kept as a secondary signal. The result
// lands in the experiment's metrics field; gaps are untouched.
func (e *Engine) Measure(ctx context.Context, domain string, w io.Writer) (*types.Experiment, error) {
	lock := e.store.Lock(domain)
	lock.Lock()
	defer lock.Unlock()

	exp, err := e.store.Load(ctx, domain)
	if err != nil {
		return nil, err
	}

	metrics := &types.ImprovementMetrics{MeasuredAt: time.Now().UTC()}
	var fatal error

	for i, sq := range exp.SeedQueries {
		fmt.Fprintf(w, "[%d/%d] re-querying: %s\n", i+1, len(exp.SeedQueries), sq.Text)

		qi := types.QueryImprovement{Query: sq.Text, OldGapCount: sq.GapCount}

		if err := ctx.Err(); err != nil {
			qi.Err = err.Error()
			metrics.PerQuery = append(metrics.PerQuery, qi)
			continue
		}

		result, err := e.svc.Query(ctx, lumen.Request{Text: sq.Text})
		if err != nil {
			fmt.Fprintf(w, "    failed: %v\n", err)
			qi.Err = err.Error()
			metrics.PerQuery = append(metrics.PerQuery, qi)
			if lumen.Fatal(err) {
				fatal = err
				break
			}
			continue
		}

		qi.NewGapCount = len(result.MissingContext)
		qi.GapReduction = gapReduction(sq.GapCount, qi.NewGapCount)
		qi.LengthDelta = len(result.Response) - sq.ResponseLength
		metrics.PerQuery = append(metrics.PerQuery, qi)

		fmt.Fprintf(w, "    gaps: %d -> %d (reduction %.2f), length %+d\n",
			qi.OldGapCount, qi.NewGapCount, qi.GapReduction, qi.LengthDelta)
	}

	var sum float64
	var measured int
	for _, qi := range metrics.PerQuery {
		if qi.Err != "" {
			continue
		}
		sum += qi.GapReduction
		metrics.LengthDelta += qi.LengthDelta
		measured++
	}
	if measured > 0 {
		metrics.GapReduction = sum / float64(measured)
	}

	exp.Metrics = metrics
	if err := e.store.Save(ctx, exp); err != nil {
		return exp, err
	}
	if fatal != nil {
		return exp, fatal
	}

	fmt.Fprintf(w, "\naggregate gap reduction: %.2f, length delta: %+d\n",
		metrics.GapReduction, metrics.LengthDelta)
	return exp, nil
}

// gapReduction computes 1 - new/old. An old count of zero means the seed
// call was already clean: still clean scores 1.0, regressed scores 0.
func gapReduction(old, new int) float64 {
	if old == 0 {
		if new == 0 {
			return 1.0
		}
		return 0
	}
	return 1.0 - float64(new)/float64(old)
}

// appendGaps adds one gap per missing-context item, deduplicating by
// normalized text within this single call only. Returns the number added.
func appendGaps(exp *types.Experiment, items []string, discoveredBy string, origin types.GapOrigin) int {
	seen := make(map[string]struct{}, len(items))
	added := 0
	for _, item := range items {
		key := research.Normalize(item)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		gap := &types.Gap{
			ID:             uuid.NewString(),
			Domain:         exp.Domain,
			Description:    item,
			Origin:         origin,
			Status:         types.GapOpen,
			DiscoveredBy:   discoveredBy,
			DiscoveryIndex: exp.NextIndex,
			Generation:     exp.Generation,
		}
		exp.Gaps[gap.ID] = gap
		exp.NextIndex++
		added++
	}
	return added
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
