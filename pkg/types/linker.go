// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "sort"

// ConceptSet is the lexical vocabulary extracted from one domain's gap
// descriptions and stored responses: lowercased tokens with stopwords and
// short tokens removed.
type ConceptSet struct {
	// Domain is the experiment the concepts came from.
	Domain string `json:"domain" yaml:"domain"`

	// Concepts is the extracted token set.
	Concepts map[string]struct{} `json:"-" yaml:"-"`
}

// Sorted returns the concepts in lexicographic order.
func (c ConceptSet) Sorted() []string {
	out := make([]string, 0, len(c.Concepts))
	for t := range c.Concepts {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CrossDomainLink is a detected vocabulary overlap between two domains.
// The pair is unordered; Domains is stored sorted so (A,B) and (B,A)
// produce identical links.
type CrossDomainLink struct {
	// Domains is the linked pair, sorted by name.
	Domains [2]string `json:"domains" yaml:"domains"`

	// SharedConcepts is the non-empty intersection of the two domains'
	// concept sets, sorted.
	SharedConcepts []string `json:"shared_concepts" yaml:"shared_concepts"`

	// Strength is len(SharedConcepts).
	Strength int `json:"strength" yaml:"strength"`

	// Hypothesis is the synthesized connection text, when synthesis is
	// enabled and the call succeeded.
	Hypothesis string `json:"hypothesis,omitempty" yaml:"hypothesis,omitempty"`

	// SynthesisErr records a failed hypothesis call; the link is still kept.
	SynthesisErr string `json:"synthesis_error,omitempty" yaml:"synthesis_error,omitempty"`
}
