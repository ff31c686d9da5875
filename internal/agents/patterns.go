// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agents

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// Pattern selects an orchestration variant. All patterns except refine
// share the perspectives-then-synthesis skeleton; they differ only in role
// prompts and attached schema.
type Pattern string

const (
	// PatternGraph extracts a knowledge graph: perspectives survey the
	// topic, the synthesis call carries an entity/relationship schema.
	PatternGraph Pattern = "graph"

	// PatternCompare contrasts the two sides of a "X vs Y" topic.
	PatternCompare Pattern = "compare"

	// PatternRefine iterates one query using missing context; it does not
	// run perspectives.
	PatternRefine Pattern = "refine"

	// PatternSynthesis combines a technical and an ethics perspective.
	PatternSynthesis Pattern = "synthesis"
)

// Patterns lists the supported variants.
func Patterns() []Pattern {
	return []Pattern{PatternGraph, PatternCompare, PatternRefine, PatternSynthesis}
}

// graphSchema is the structured-output specification for knowledge-graph
// extraction. It is passed through the gateway opaquely.
var graphSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"entities": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string"},
					"type":        map[string]any{"type": "string", "enum": []string{"person", "organization", "concept", "technology"}},
					"description": map[string]any{"type": "string"},
				},
				"required": []string{"name", "type"},
			},
		},
		"relationships": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"from": map[string]any{"type": "string"},
					"to":   map[string]any{"type": "string"},
					"type": map[string]any{"type": "string"},
				},
			},
		},
	},
	"additionalProperties": false,
}

// patternRoles returns the role set and synthesis schema for a skeleton
// pattern.
func patternRoles(p Pattern) ([]Role, map[string]any, error) {
	switch p {
	case PatternGraph:
		return []Role{
			{Label: "systems analyst", Template: "As a systems analyst, enumerate the key components of %s and how they interact."},
			{Label: "domain expert", Template: "As a domain expert, name the central concepts, people, and technologies behind %s."},
		}, graphSchema, nil
	case PatternCompare:
		return []Role{
			{Label: "advocate for the first option", Template: "Considering %s, argue the case for the first option: its key features, strengths, and best use cases."},
			{Label: "advocate for the second option", Template: "Considering %s, argue the case for the second option: its key features, strengths, and best use cases."},
		}, nil, nil
	case PatternSynthesis:
		return []Role{
			{Label: "technical expert", Template: "As a technical expert, explain %s focusing on the technologies and methods involved."},
			{Label: "ethics specialist", Template: "As an ethics specialist, discuss %s focusing on ethical considerations and societal impacts."},
		}, nil, nil
	case PatternRefine:
		return nil, nil, fmt.Errorf("refine does not use the perspective skeleton")
	default:
		return nil, nil, fmt.Errorf("unknown pattern %q", p)
	}
}

// RunPattern executes a skeleton pattern end to end: perspectives first,
// then the synthesis call. Refine is not a skeleton pattern; call Refine.
func (o *Orchestrator) RunPattern(ctx context.Context, p Pattern, topic string, w io.Writer) (*types.SynthesisResult, error) {
	roles, schema, err := patternRoles(p)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(w, "running %s pattern on: %s\n", p, topic)
	perspectives, err := o.RunPerspectives(ctx, topic, roles)
	if err != nil {
		return &types.SynthesisResult{Topic: topic, Perspectives: perspectives}, err
	}
	for _, pers := range perspectives {
		if pers.Err != "" {
			fmt.Fprintf(w, "  %s: failed: %s\n", pers.Role, pers.Err)
		} else {
			fmt.Fprintf(w, "  %s: %d chars\n", pers.Role, len(pers.Response))
		}
	}

	return o.Synthesize(ctx, topic, perspectives, schema)
}
