// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the knowledge-engine stages.
package types

// ResearchNode is one explored query in a research tree. A node whose call
// failed records the error marker and carries no response or children.
type ResearchNode struct {
	// ID is a stable identifier for this node, unique within its tree.
	ID string `json:"id" yaml:"id"`

	// Query is the question text issued for this node.
	Query string `json:"query" yaml:"query"`

	// Depth is the recursion depth; the root is 0.
	Depth int `json:"depth" yaml:"depth"`

	// Response is the answer text. Empty when the call failed.
	Response string `json:"response,omitempty" yaml:"response,omitempty"`

	// MissingContext is the ordered list of items the service reported it
	// lacks. Each item becomes one child at Depth+1 unless the depth bound
	// or branch cap stops expansion.
	MissingContext []string `json:"missing_context,omitempty" yaml:"missing_context,omitempty"`

	// Err is the error marker for a failed call. Failed nodes are leaves
	// and are not retried.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`

	// Children holds the expanded missing-context branches in the order the
	// service returned them. The tree owns all nodes below the root.
	Children []*ResearchNode `json:"children,omitempty" yaml:"children,omitempty"`

	// Parent is a traversal-only back-reference; nil at the root.
	Parent *ResearchNode `json:"-" yaml:"-"`
}

// Leaf reports whether the node has no children.
func (n *ResearchNode) Leaf() bool {
	return len(n.Children) == 0
}

// Walk visits the node and every descendant in depth-first, sibling order.
func (n *ResearchNode) Walk(visit func(*ResearchNode)) {
	visit(n)
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// ResearchTree is the bounded-depth structure produced by recursively
// following missing-context items from an initial query.
type ResearchTree struct {
	// Root is the node for the initial query, at depth 0.
	Root *ResearchNode `json:"root" yaml:"root"`

	// MaxDepth is the depth bound the tree was built with. No node in the
	// tree has a depth above it.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// Calls is the total number of query-service calls issued, including
	// failed ones.
	Calls int `json:"calls" yaml:"calls"`

	// UniqueQueries counts distinct normalized query texts issued during
	// construction. Duplicates are still expanded; this is bookkeeping for
	// cost auditing only.
	UniqueQueries int `json:"unique_queries" yaml:"unique_queries"`
}

// NodeCount returns the number of nodes in the tree.
func (t *ResearchTree) NodeCount() int {
	n := 0
	t.Root.Walk(func(*ResearchNode) { n++ })
	return n
}

// FailedNodes returns every node whose call failed, in depth-first order,
// so completeness can be audited without re-running the build.
func (t *ResearchTree) FailedNodes() []*ResearchNode {
	var failed []*ResearchNode
	t.Root.Walk(func(n *ResearchNode) {
		if n.Err != "" {
			failed = append(failed, n)
		}
	})
	return failed
}
