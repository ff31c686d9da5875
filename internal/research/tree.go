// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research builds bounded-depth research trees by recursively
// following the missing-context items the Lumen gateway returns for each
// query. Expansion is breadth-first over an explicit frontier rather than
// call-stack recursion, so tree depth never threatens the stack.
package research

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/knowledge-engine/internal/lumen"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

const (
	defaultMaxDepth = 2
	defaultWorkers  = 4
)

// Builder explores queries into research trees.
type Builder struct {
	svc       lumen.Service
	maxDepth  int
	maxBranch int
	workers   int
}

// NewBuilder returns a tree builder backed by svc. Zero-valued config
// fields fall back to defaults; MaxBranch zero means unlimited branching.
func NewBuilder(svc lumen.Service, cfg types.ResearchConfig) *Builder {
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Builder{
		svc:       svc,
		maxDepth:  maxDepth,
		maxBranch: cfg.MaxBranch,
		workers:   workers,
	}
}

// Explore builds the research tree rooted at query. Nodes at the same depth
// are queried concurrently through a bounded worker pool; sibling order
// always matches the order the gateway returned the missing-context items.
//
// A failed call marks its node with an error and stops that branch only;
// siblings continue. Auth and rate-limit failures abort the whole build:
// no further calls are issued and the partial tree is returned alongside
// the error. Cancellation is honored between calls, never mid-call.
//
// Identical query texts are never merged: every missing-context item
// becomes its own node even when a sibling or another branch already asked
// the same thing, so total calls grow combinatorially with depth. Use
// EstimateCalls before deep builds.
func (b *Builder) Explore(ctx context.Context, query string) (*types.ResearchTree, error) {
	root := newNode(query, 0, nil)
	tree := &types.ResearchTree{Root: root, MaxDepth: b.maxDepth}

	seen := make(map[string]struct{})
	var mu sync.Mutex // guards tree counters and seen

	frontier := []*types.ResearchNode{root}

	for len(frontier) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.workers)

		for _, node := range frontier {
			node := node
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					node.Err = err.Error()
					return nil
				}

				mu.Lock()
				tree.Calls++
				key := Normalize(node.Query)
				if _, ok := seen[key]; !ok {
					seen[key] = struct{}{}
					tree.UniqueQueries++
				}
				mu.Unlock()

				result, err := b.svc.Query(gctx, lumen.Request{Text: node.Query})
				if err != nil {
					node.Err = err.Error()
					if lumen.Fatal(err) {
						return err
					}
					return nil
				}

				node.Response = result.Response
				node.MissingContext = result.MissingContext
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return tree, err
		}

		frontier = b.expand(frontier)
	}

	return tree, nil
}

// expand creates the next frontier: one child per missing-context item of
// every healthy node below the depth bound, in returned order.
func (b *Builder) expand(frontier []*types.ResearchNode) []*types.ResearchNode {
	var next []*types.ResearchNode
	for _, node := range frontier {
		if node.Err != "" || node.Depth >= b.maxDepth {
			continue
		}
		items := node.MissingContext
		if b.maxBranch > 0 && len(items) > b.maxBranch {
			items = items[:b.maxBranch]
		}
		for _, item := range items {
			child := newNode(item, node.Depth+1, node)
			node.Children = append(node.Children, child)
			next = append(next, child)
		}
	}
	return next
}

func newNode(query string, depth int, parent *types.ResearchNode) *types.ResearchNode {
	return &types.ResearchNode{
		ID:     uuid.NewString(),
		Query:  query,
		Depth:  depth,
		Parent: parent,
	}
}

// Normalize reduces a query text to the form used for unique-query
// bookkeeping: lowercased with surrounding whitespace trimmed.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
