// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lumen is the client for the Lumen query gateway: a stateless
// text-completion API that returns, for every query, an answer plus an
// ordered list of missing-context items the service lacked. Every
// knowledge-engine stage consumes the gateway through the Service
// interface so tests can supply mocks.
package lumen

import (
	"context"
	"encoding/json"
)

// Request is one query to the gateway. Immutable once issued.
type Request struct {
	// Text is the prompt or question.
	Text string `json:"query"`

	// Model is the model identifier (e.g. "gpt-5-nano").
	Model string `json:"model"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature"`

	// MaxTokens limits the generation length; zero omits the field.
	MaxTokens int `json:"max_tokens,omitempty"`

	// OutputSchema is an optional JSON schema for structured output. The
	// engine passes it through opaquely; authoring and validation are the
	// caller's concern.
	OutputSchema map[string]any `json:"output_schema,omitempty"`
}

// Usage holds the gateway's token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the gateway's answer to one Request.
type Result struct {
	// Response is the answer text.
	Response string

	// MissingContext is the ordered, possibly empty list of short strings
	// naming information the service indicated it lacks.
	MissingContext []string

	// Usage is the token accounting, when the gateway reported it.
	Usage Usage

	// Raw is the undecoded response envelope, kept for auditing.
	Raw json.RawMessage
}

// Service executes one query and returns its result. Implementations must
// honor ctx and never block past their configured timeout.
type Service interface {
	Query(ctx context.Context, req Request) (*Result, error)
}
