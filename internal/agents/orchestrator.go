// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agents orchestrates multi-perspective queries: independent role
// agents answer the same topic, then one synthesis call combines their
// responses. Pattern variants share this skeleton and differ only in role
// prompts and the attached output schema; refine instead iterates a single
// query, feeding missing-context items back into follow-up questions.
package agents

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/knowledge-engine/internal/lumen"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

const (
	defaultWorkers       = 4
	defaultMaxIterations = 3
)

// Role is one perspective agent: a label plus a prompt template with a
// single %s verb for the topic.
type Role struct {
	Label    string
	Template string
}

// DefaultRole wraps a bare label in the generic perspective template.
func DefaultRole(label string) Role {
	return Role{
		Label:    label,
		Template: "As a " + label + ", analyze %s. Focus on the aspects your role is best placed to judge.",
	}
}

// Prompt renders the role's prompt for a topic.
func (r Role) Prompt(topic string) string {
	return fmt.Sprintf(r.Template, topic)
}

// Orchestrator runs perspective and synthesis calls against one service.
type Orchestrator struct {
	svc           lumen.Service
	workers       int
	maxIterations int
}

// New returns an orchestrator backed by svc.
func New(svc lumen.Service, cfg types.AgentsConfig) *Orchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &Orchestrator{svc: svc, workers: workers, maxIterations: maxIterations}
}

// RunPerspectives issues one independent call per role through the worker
// pool and returns the perspectives in role order. A failed perspective
// records its error and the rest still run; auth and rate-limit failures
// abort with the partial slice.
func (o *Orchestrator) RunPerspectives(ctx context.Context, topic string, roles []Role) ([]types.AgentPerspective, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("no roles given for topic %q", topic)
	}

	perspectives := make([]types.AgentPerspective, len(roles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, role := range roles {
		i, role := i, role
		g.Go(func() error {
			prompt := role.Prompt(topic)
			perspectives[i] = types.AgentPerspective{Role: role.Label, Prompt: prompt}

			if err := gctx.Err(); err != nil {
				perspectives[i].Err = err.Error()
				return nil
			}

			result, err := o.svc.Query(gctx, lumen.Request{Text: prompt})
			if err != nil {
				perspectives[i].Err = err.Error()
				if lumen.Fatal(err) {
					return err
				}
				return nil
			}

			perspectives[i].Response = result.Response
			perspectives[i].MissingContext = result.MissingContext
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return perspectives, err
	}
	return perspectives, nil
}

// Synthesize issues the combining call: every perspective's response,
// labeled by role, concatenated into one prompt, with an optional output
// schema attached. Failed perspectives are listed as unavailable rather
// than silently dropped, so the synthesis sees what is missing.
func (o *Orchestrator) Synthesize(ctx context.Context, topic string, perspectives []types.AgentPerspective, schema map[string]any) (*types.SynthesisResult, error) {
	if len(perspectives) == 0 {
		return nil, fmt.Errorf("no perspectives to synthesize for topic %q", topic)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Synthesize these perspectives on %s:\n", topic)
	for _, p := range perspectives {
		fmt.Fprintf(&sb, "\n%s:\n", p.Role)
		if p.Err != "" {
			fmt.Fprintf(&sb, "(perspective unavailable: %s)\n", p.Err)
			continue
		}
		sb.WriteString(p.Response)
		sb.WriteString("\n")
	}
	sb.WriteString("\nProvide a balanced synthesis highlighting how these perspectives complement each other.")

	result, err := o.svc.Query(ctx, lumen.Request{Text: sb.String(), OutputSchema: schema})
	if err != nil {
		return &types.SynthesisResult{Topic: topic, Perspectives: perspectives}, err
	}

	return &types.SynthesisResult{
		Topic:          topic,
		Perspectives:   perspectives,
		Response:       result.Response,
		MissingContext: result.MissingContext,
	}, nil
}
