// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/pdiddy/knowledge-engine/internal/lumen"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// --- mock service ---

// mockService answers from a query → result map. Unknown queries get an
// empty result. Calls are counted under a lock so concurrent workers are safe.
type mockService struct {
	mu        sync.Mutex
	responses map[string]*lumen.Result
	errs      map[string]error
	calls     int
}

func (m *mockService) Query(_ context.Context, req lumen.Request) (*lumen.Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err, ok := m.errs[req.Text]; ok {
		return nil, err
	}
	if resp, ok := m.responses[req.Text]; ok {
		return resp, nil
	}
	return &lumen.Result{Response: "answer: " + req.Text}, nil
}

func (m *mockService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func result(response string, missing ...string) *lumen.Result {
	return &lumen.Result{Response: response, MissingContext: missing}
}

// --- Explore ---

func TestExplore_RootAndChildren(t *testing.T) {
	// Root returns two missing items, children return none: 3 nodes, 3 calls.
	svc := &mockService{
		responses: map[string]*lumen.Result{
			"root": result("root answer", "a", "b"),
		},
	}
	b := NewBuilder(svc, types.ResearchConfig{MaxDepth: 1, Workers: 1})

	tree, err := b.Explore(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}

	if got := tree.NodeCount(); got != 3 {
		t.Errorf("NodeCount = %d, want 3", got)
	}
	if svc.callCount() != 3 {
		t.Errorf("calls = %d, want 3", svc.callCount())
	}
	if tree.Calls != 3 {
		t.Errorf("tree.Calls = %d, want 3", tree.Calls)
	}
	if len(tree.Root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(tree.Root.Children))
	}
	if tree.Root.Children[0].Query != "a" || tree.Root.Children[1].Query != "b" {
		t.Errorf("sibling order = [%s, %s], want [a, b]",
			tree.Root.Children[0].Query, tree.Root.Children[1].Query)
	}
}

func TestExplore_DepthBound(t *testing.T) {
	// Every node returns a missing item; expansion must stop at MaxDepth.
	svc := &mockService{responses: map[string]*lumen.Result{}}
	svc.responses["q"] = result("r", "q")

	b := NewBuilder(svc, types.ResearchConfig{MaxDepth: 3, Workers: 2})
	tree, err := b.Explore(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}

	tree.Root.Walk(func(n *types.ResearchNode) {
		if n.Depth > tree.MaxDepth {
			t.Errorf("node %q at depth %d exceeds max depth %d", n.Query, n.Depth, tree.MaxDepth)
		}
		for _, c := range n.Children {
			if c.Depth != n.Depth+1 {
				t.Errorf("child depth %d, want parent depth %d + 1", c.Depth, n.Depth)
			}
			if c.Parent != n {
				t.Error("child parent back-reference broken")
			}
		}
	})

	// Chain of q → q → q → q: 4 nodes, one per depth level.
	if got := tree.NodeCount(); got != 4 {
		t.Errorf("NodeCount = %d, want 4", got)
	}
}

func TestExplore_NoDeduplication(t *testing.T) {
	// Two siblings with identical text both get their own node and call.
	svc := &mockService{
		responses: map[string]*lumen.Result{
			"root": result("r", "same", "same"),
		},
	}
	b := NewBuilder(svc, types.ResearchConfig{MaxDepth: 1, Workers: 2})

	tree, err := b.Explore(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}

	if len(tree.Root.Children) != 2 {
		t.Fatalf("children = %d, want 2 (identical siblings are not merged)", len(tree.Root.Children))
	}
	if svc.callCount() != 3 {
		t.Errorf("calls = %d, want 3", svc.callCount())
	}
	if tree.UniqueQueries != 2 {
		t.Errorf("UniqueQueries = %d, want 2 (root + same)", tree.UniqueQueries)
	}
}

func TestExplore_PartialFailure(t *testing.T) {
	// One child fails; the sibling is still explored and the build succeeds.
	svc := &mockService{
		responses: map[string]*lumen.Result{
			"root": result("r", "bad", "good"),
			"good": result("good answer", "deeper"),
		},
		errs: map[string]error{
			"bad": &lumen.APIError{Kind: lumen.KindTransport, Message: "connection reset"},
		},
	}
	b := NewBuilder(svc, types.ResearchConfig{MaxDepth: 2, Workers: 2})

	tree, err := b.Explore(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}

	failed := tree.FailedNodes()
	if len(failed) != 1 || failed[0].Query != "bad" {
		t.Fatalf("FailedNodes = %v, want one node for %q", failed, "bad")
	}
	if !failed[0].Leaf() {
		t.Error("failed node must be a leaf")
	}

	good := tree.Root.Children[1]
	if good.Err != "" || len(good.Children) != 1 {
		t.Errorf("sibling of failed node not explored: err=%q children=%d", good.Err, len(good.Children))
	}
}

func TestExplore_FatalAbortsBuild(t *testing.T) {
	svc := &mockService{
		responses: map[string]*lumen.Result{
			"root": result("r", "quota"),
		},
		errs: map[string]error{
			"quota": &lumen.APIError{Kind: lumen.KindRateLimit, Message: "daily quota exceeded"},
		},
	}
	b := NewBuilder(svc, types.ResearchConfig{MaxDepth: 3, Workers: 1})

	tree, err := b.Explore(context.Background(), "root")
	if err == nil {
		t.Fatal("want fatal error from rate-limited build")
	}
	if !lumen.Fatal(err) {
		t.Errorf("error not classified fatal: %v", err)
	}
	// Partial tree: root succeeded, child recorded the failure.
	if tree == nil || tree.Root.Response == "" {
		t.Fatal("partial tree missing root result")
	}
	if len(tree.FailedNodes()) != 1 {
		t.Errorf("FailedNodes = %d, want 1", len(tree.FailedNodes()))
	}
}

func TestExplore_BranchCap(t *testing.T) {
	svc := &mockService{
		responses: map[string]*lumen.Result{
			"root": result("r", "a", "b", "c", "d"),
		},
	}
	b := NewBuilder(svc, types.ResearchConfig{MaxDepth: 1, MaxBranch: 2, Workers: 2})

	tree, err := b.Explore(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Root.Children) != 2 {
		t.Fatalf("children = %d, want 2 with MaxBranch=2", len(tree.Root.Children))
	}
	// The cap trims the tail, never reorders.
	if tree.Root.Children[0].Query != "a" || tree.Root.Children[1].Query != "b" {
		t.Error("branch cap changed sibling order")
	}
}

func TestExplore_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := &mockService{responses: map[string]*lumen.Result{}}
	b := NewBuilder(svc, types.ResearchConfig{MaxDepth: 1, Workers: 1})

	tree, err := b.Explore(ctx, "root")
	if err != nil {
		t.Fatalf("cancellation is not an error, got %v", err)
	}
	if tree.Root.Err == "" {
		t.Error("cancelled root should carry an error marker")
	}
	if svc.callCount() != 0 {
		t.Errorf("calls = %d, want 0 after cancellation", svc.callCount())
	}
}

func TestExplore_ConcurrentSiblings(t *testing.T) {
	// Many siblings with a worker pool; order must still match the
	// missing-context order.
	items := make([]string, 20)
	for i := range items {
		items[i] = fmt.Sprintf("item-%02d", i)
	}
	svc := &mockService{
		responses: map[string]*lumen.Result{
			"root": result("r", items...),
		},
	}
	b := NewBuilder(svc, types.ResearchConfig{MaxDepth: 1, Workers: 8})

	tree, err := b.Explore(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range tree.Root.Children {
		if c.Query != items[i] {
			t.Fatalf("child %d = %q, want %q", i, c.Query, items[i])
		}
	}
}

// --- helpers ---

func TestNormalize(t *testing.T) {
	if Normalize("  What Is A Qubit?  ") != "what is a qubit?" {
		t.Error("Normalize should trim and lowercase")
	}
}

func TestEstimateCalls(t *testing.T) {
	tests := []struct {
		branching, depth, want int
	}{
		{2, 0, 1},
		{2, 1, 3},
		{2, 2, 7},
		{3, 2, 13},
		{0, 3, 1},
		{5, -1, 0},
	}
	for _, tt := range tests {
		if got := EstimateCalls(tt.branching, tt.depth); got != tt.want {
			t.Errorf("EstimateCalls(%d, %d) = %d, want %d", tt.branching, tt.depth, got, tt.want)
		}
	}
}

func TestWalkOrder(t *testing.T) {
	svc := &mockService{
		responses: map[string]*lumen.Result{
			"root": result("r", "a", "b"),
			"a":    result("ra", "a1"),
		},
	}
	b := NewBuilder(svc, types.ResearchConfig{MaxDepth: 2, Workers: 1})
	tree, err := b.Explore(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}

	var order []string
	tree.Root.Walk(func(n *types.ResearchNode) { order = append(order, n.Query) })
	want := "root,a,a1,b"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("walk order = %s, want %s", got, want)
	}
}
