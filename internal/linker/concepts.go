// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package linker detects vocabulary overlap between completed experiments
// in different domains. Concept extraction is a deliberate lexical
// heuristic: lowercase tokens from gap descriptions and stored responses,
// minus stopwords and short words. Overlapping vocabularies become
// cross-domain links, optionally with a synthesized hypothesis.
package linker

import (
	"strings"
	"unicode"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

const defaultMinTokenLen = 5

// stopwords are common English words excluded from concept sets. Short
// words fall to the length filter; this list catches the long ones.
var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "against": {}, "because": {},
	"before": {}, "being": {}, "below": {}, "between": {}, "could": {},
	"doing": {}, "during": {}, "further": {}, "having": {}, "implement": {},
	"implementation": {}, "other": {}, "should": {}, "specific": {},
	"their": {}, "there": {}, "these": {}, "those": {}, "through": {},
	"under": {}, "until": {}, "using": {}, "which": {}, "while": {},
	"would": {}, "where": {}, "describe": {}, "details": {}, "information": {},
	"context": {}, "missing": {}, "example": {}, "examples": {},
}

// ExtractConcepts builds the concept set for one experiment from every gap
// description and every stored response (seed answers and fill answers).
func ExtractConcepts(exp *types.Experiment, minTokenLen int) types.ConceptSet {
	if minTokenLen <= 0 {
		minTokenLen = defaultMinTokenLen
	}

	set := types.ConceptSet{
		Domain:   exp.Domain,
		Concepts: make(map[string]struct{}),
	}

	add := func(text string) {
		for _, tok := range Tokenize(text) {
			if len(tok) < minTokenLen {
				continue
			}
			if _, stop := stopwords[tok]; stop {
				continue
			}
			set.Concepts[tok] = struct{}{}
		}
	}

	for _, sq := range exp.SeedQueries {
		add(sq.Response)
	}
	for _, g := range exp.Gaps {
		add(g.Description)
		add(g.Response)
	}
	return set
}

// Tokenize splits text into lowercase alphanumeric tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// intersect returns the sorted intersection of two concept sets.
func intersect(a, b types.ConceptSet) []string {
	small, large := a, b
	if len(b.Concepts) < len(a.Concepts) {
		small, large = b, a
	}

	shared := types.ConceptSet{Concepts: make(map[string]struct{})}
	for tok := range small.Concepts {
		if _, ok := large.Concepts[tok]; ok {
			shared.Concepts[tok] = struct{}{}
		}
	}
	return shared.Sorted()
}
