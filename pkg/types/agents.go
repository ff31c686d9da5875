// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AgentPerspective is one role's independent take on a topic.
type AgentPerspective struct {
	// Role labels the perspective (e.g. "technical expert").
	Role string `json:"role" yaml:"role"`

	// Prompt is the rendered role-specific prompt that was issued.
	Prompt string `json:"prompt" yaml:"prompt"`

	// Response is the answer text. Empty when the call failed.
	Response string `json:"response,omitempty" yaml:"response,omitempty"`

	// MissingContext is the service's missing-context list for this call.
	MissingContext []string `json:"missing_context,omitempty" yaml:"missing_context,omitempty"`

	// Err marks a failed perspective call; the remaining perspectives still run.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// SynthesisResult combines independent perspectives into one answer.
type SynthesisResult struct {
	// Topic is the subject all perspectives addressed.
	Topic string `json:"topic" yaml:"topic"`

	// Perspectives holds the individual takes in role order.
	Perspectives []AgentPerspective `json:"perspectives" yaml:"perspectives"`

	// Response is the combined answer from the synthesis call.
	Response string `json:"response" yaml:"response"`

	// MissingContext is the synthesis call's missing-context list.
	MissingContext []string `json:"missing_context,omitempty" yaml:"missing_context,omitempty"`
}

// FailedPerspectives returns the perspectives whose calls failed, in role
// order, so completeness can be audited.
func (r *SynthesisResult) FailedPerspectives() []AgentPerspective {
	var failed []AgentPerspective
	for _, p := range r.Perspectives {
		if p.Err != "" {
			failed = append(failed, p)
		}
	}
	return failed
}

// RefineStep records one iteration of the refine loop.
type RefineStep struct {
	// Query is the question issued this iteration.
	Query string `json:"query" yaml:"query"`

	// Response is the answer received.
	Response string `json:"response" yaml:"response"`

	// MissingContext drove the next iteration when non-empty.
	MissingContext []string `json:"missing_context,omitempty" yaml:"missing_context,omitempty"`
}

// RefineResult is the outcome of the iterative refinement state machine.
type RefineResult struct {
	// Question is the user's original question.
	Question string `json:"question" yaml:"question"`

	// Steps holds every iteration in order; the last step carries the
	// final response.
	Steps []RefineStep `json:"steps" yaml:"steps"`

	// Converged is true when the loop ended because missing-context was
	// empty, false when the iteration cap stopped it.
	Converged bool `json:"converged" yaml:"converged"`
}

// Final returns the last step's response, or "" if no call succeeded.
func (r *RefineResult) Final() string {
	if len(r.Steps) == 0 {
		return ""
	}
	return r.Steps[len(r.Steps)-1].Response
}
