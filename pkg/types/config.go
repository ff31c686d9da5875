// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// QueryConfig holds shared settings for stages that call the Lumen query API.
type QueryConfig struct {
	// BaseURL is the root URL of the Lumen gateway.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Token is the bearer token for the gateway. Normally loaded from
	// .secrets/lumen-token rather than config.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// Model is the model identifier passed on every query (e.g. "gpt-5-nano").
	Model string `json:"model" yaml:"model"`

	// Temperature is the sampling temperature passed on every query.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Timeout is the per-request HTTP timeout. No call may block past it.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// CallInterval is the minimum interval between any two outgoing calls,
	// shared across all components regardless of concurrency (default 750ms).
	CallInterval time.Duration `json:"call_interval" yaml:"call_interval"`
}

// ResearchConfig holds settings for the research tree builder.
type ResearchConfig struct {
	QueryConfig `yaml:",inline"`

	// MaxDepth bounds tree recursion; the root is depth 0 (default 2).
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// MaxBranch caps how many missing-context items are expanded per node.
	// Zero means no cap; cost then grows combinatorially with depth.
	MaxBranch int `json:"max_branch" yaml:"max_branch"`

	// Workers bounds concurrent sibling exploration (default 4).
	Workers int `json:"workers" yaml:"workers"`
}

// EvolutionConfig holds settings for the knowledge evolution engine.
type EvolutionConfig struct {
	QueryConfig `yaml:",inline"`

	// DataDir is the base directory for experiment storage
	// (contains experiments.db and exported YAML).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxGaps is the default cap on gaps processed per fill pass (default 5).
	MaxGaps int `json:"max_gaps" yaml:"max_gaps"`

	// Workers bounds concurrent gap-fill queries (default 4).
	Workers int `json:"workers" yaml:"workers"`
}

// LinkerConfig holds settings for the cross-domain linker.
type LinkerConfig struct {
	QueryConfig `yaml:",inline"`

	// MinTokenLen discards concept tokens shorter than this (default 5).
	MinTokenLen int `json:"min_token_len" yaml:"min_token_len"`

	// Synthesize controls whether a hypothesis query is issued per link.
	Synthesize bool `json:"synthesize" yaml:"synthesize"`
}

// AgentsConfig holds settings for the multi-agent orchestrator.
type AgentsConfig struct {
	QueryConfig `yaml:",inline"`

	// Workers bounds concurrent perspective queries (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// MaxIterations caps the refine loop (default 3).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
}

// EngineConfig groups all stage configurations.
type EngineConfig struct {
	Research  ResearchConfig  `json:"research" yaml:"research"`
	Evolution EvolutionConfig `json:"evolution" yaml:"evolution"`
	Linker    LinkerConfig    `json:"linker" yaml:"linker"`
	Agents    AgentsConfig    `json:"agents" yaml:"agents"`
}
