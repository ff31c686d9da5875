// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agents

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/knowledge-engine/internal/lumen"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// refineState is the phase of the refinement loop.
type refineState int

const (
	stateQuerying refineState = iota
	stateRefining
	stateDone
)

// Refine iteratively sharpens an answer: ask, and while the response
// reports missing context and the iteration cap allows, fold those items
// into a follow-up question and ask again. The loop always reaches done
// within the cap; the last step carries the final answer. Cancellation is
// honored between calls. Any call failure ends the loop with the steps
// gathered so far.
func (o *Orchestrator) Refine(ctx context.Context, question string, w io.Writer) (*types.RefineResult, error) {
	result := &types.RefineResult{Question: question}

	state := stateQuerying
	query := question
	var lastResponse string
	var missing []string

	for iteration := 0; state != stateDone; iteration++ {
		fmt.Fprintf(w, "[iteration %d] %s\n", iteration+1, truncate(query, 70))

		if err := ctx.Err(); err != nil {
			return result, err
		}

		callResult, err := o.svc.Query(ctx, lumen.Request{Text: query})
		if err != nil {
			return result, err
		}

		result.Steps = append(result.Steps, types.RefineStep{
			Query:          query,
			Response:       callResult.Response,
			MissingContext: callResult.MissingContext,
		})
		lastResponse = callResult.Response
		missing = callResult.MissingContext

		switch {
		case len(missing) == 0:
			result.Converged = true
			state = stateDone
		case iteration+1 >= o.maxIterations:
			state = stateDone
		default:
			state = stateRefining
			query = refinementPrompt(lastResponse, missing)
			state = stateQuerying
		}
	}

	if result.Converged {
		fmt.Fprintf(w, "converged after %d iteration(s)\n", len(result.Steps))
	} else {
		fmt.Fprintf(w, "iteration cap reached after %d iteration(s)\n", len(result.Steps))
	}
	return result, nil
}

// refinementPrompt builds the follow-up question from the previous answer
// and its missing-context items.
func refinementPrompt(previous string, missing []string) string {
	items := missing
	if len(items) > 3 {
		items = items[:3]
	}
	return fmt.Sprintf(`You previously answered: %q

You indicated these missing context items: %s

Provide a more complete answer addressing those missing pieces.`,
		truncate(previous, 400), strings.Join(items, "; "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
