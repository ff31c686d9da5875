// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

// EstimateCalls returns the total gateway calls a build would issue if
// every node returned `branching` missing-context items down to maxDepth:
// 1 + b + b^2 + ... + b^maxDepth. Because the builder never deduplicates
// across branches, this is the true worst case, not a loose bound; callers
// should surface it before committing to a deep build.
func EstimateCalls(branching, maxDepth int) int {
	if maxDepth < 0 {
		return 0
	}
	if branching <= 0 {
		return 1
	}
	total := 0
	level := 1
	for d := 0; d <= maxDepth; d++ {
		total += level
		level *= branching
	}
	return total
}
