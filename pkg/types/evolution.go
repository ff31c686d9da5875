// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"sort"
	"time"
)

// GapOrigin identifies how a gap entered an experiment.
type GapOrigin string

const (
	// OriginSeed marks a gap discovered by a seed query.
	OriginSeed GapOrigin = "seed"

	// OriginEmergent marks a second-order gap discovered while filling
	// another gap.
	OriginEmergent GapOrigin = "emergent"
)

// GapStatus is the one-way fill state of a gap: open → filled.
type GapStatus string

const (
	GapOpen   GapStatus = "open"
	GapFilled GapStatus = "filled"
)

// Gap is a tracked instance of a missing-context item within a domain's
// experiment.
type Gap struct {
	// ID is unique within the experiment.
	ID string `json:"id" yaml:"id"`

	// Domain is the owning experiment's domain name.
	Domain string `json:"domain" yaml:"domain"`

	// Description is the missing-context text; it doubles as the query text
	// when the gap is filled.
	Description string `json:"description" yaml:"description"`

	// Origin is seed or emergent.
	Origin GapOrigin `json:"origin" yaml:"origin"`

	// Status is open until a fill pass processes the gap.
	Status GapStatus `json:"status" yaml:"status"`

	// DiscoveredBy is the query text whose result surfaced this gap.
	DiscoveredBy string `json:"discovered_by" yaml:"discovered_by"`

	// DiscoveryIndex orders gaps by discovery; it increases monotonically
	// across seed and fill passes and drives FIFO fill selection.
	DiscoveryIndex int `json:"discovery_index" yaml:"discovery_index"`

	// Generation is 1 for seeded gaps and the experiment generation that
	// produced the gap for emergent ones.
	Generation int `json:"generation" yaml:"generation"`

	// Response is the answer recorded when the gap was filled.
	Response string `json:"response,omitempty" yaml:"response,omitempty"`

	// FilledAt is set when the gap transitions to filled.
	FilledAt time.Time `json:"filled_at,omitempty" yaml:"filled_at,omitempty"`

	// LastError records the most recent fill failure; the gap stays open.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// SeedQuery is one original question asked during the seed phase, with the
// baseline the measure phase compares against.
type SeedQuery struct {
	// Text is the question as asked.
	Text string `json:"text" yaml:"text"`

	// Response is the depth-0 answer recorded at seed time.
	Response string `json:"response,omitempty" yaml:"response,omitempty"`

	// GapCount is the number of missing-context items the seed call
	// returned, before per-call dedup.
	GapCount int `json:"gap_count" yaml:"gap_count"`

	// ResponseLength is len(Response) at seed time, kept as the baseline
	// for the length-delta signal.
	ResponseLength int `json:"response_length" yaml:"response_length"`

	// Err records a failed seed call; the query contributed no gaps.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// QueryImprovement compares one seed query's re-run against its baseline.
type QueryImprovement struct {
	Query        string  `json:"query" yaml:"query"`
	OldGapCount  int     `json:"old_gap_count" yaml:"old_gap_count"`
	NewGapCount  int     `json:"new_gap_count" yaml:"new_gap_count"`
	GapReduction float64 `json:"gap_reduction" yaml:"gap_reduction"`
	LengthDelta  int     `json:"length_delta" yaml:"length_delta"`

	// Err records a failed re-query; the entry carries no new counts.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ImprovementMetrics is the measure-phase output for an experiment.
type ImprovementMetrics struct {
	// PerQuery holds one entry per seed query, in seed order.
	PerQuery []QueryImprovement `json:"per_query" yaml:"per_query"`

	// GapReduction is the mean of the per-query reductions.
	GapReduction float64 `json:"gap_reduction" yaml:"gap_reduction"`

	// LengthDelta is the summed response-length delta, a secondary signal.
	LengthDelta int `json:"length_delta" yaml:"length_delta"`

	// MeasuredAt is when the measure phase ran.
	MeasuredAt time.Time `json:"measured_at" yaml:"measured_at"`
}

// Experiment is the persisted, domain-scoped record of seed queries and all
// gaps discovered and filled against them. It is created by the seed phase,
// mutated in place by fill passes, and read-only to measure (which writes
// only Metrics).
type Experiment struct {
	// Domain names the experiment; one experiment per domain.
	Domain string `json:"domain" yaml:"domain"`

	// SeedQueries holds the original questions in ask order.
	SeedQueries []SeedQuery `json:"seed_queries" yaml:"seed_queries"`

	// Gaps maps gap ID to gap.
	Gaps map[string]*Gap `json:"gaps" yaml:"gaps"`

	// Generation counts completed fill passes; seeding leaves it at 1.
	Generation int `json:"generation" yaml:"generation"`

	// NextIndex is the next discovery index to assign.
	NextIndex int `json:"next_index" yaml:"next_index"`

	// Metrics is nil until the measure phase runs.
	Metrics *ImprovementMetrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// CreatedAt and UpdatedAt bracket the experiment's lifetime on disk.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// OpenGaps returns the experiment's open gaps in ascending discovery order.
func (e *Experiment) OpenGaps() []*Gap {
	return e.gapsByStatus(GapOpen)
}

// FilledGaps returns the experiment's filled gaps in ascending discovery order.
func (e *Experiment) FilledGaps() []*Gap {
	return e.gapsByStatus(GapFilled)
}

func (e *Experiment) gapsByStatus(status GapStatus) []*Gap {
	var out []*Gap
	for _, g := range e.Gaps {
		if g.Status == status {
			out = append(out, g)
		}
	}
	sortGaps(out)
	return out
}

// AllGaps returns every gap in ascending discovery order.
func (e *Experiment) AllGaps() []*Gap {
	out := make([]*Gap, 0, len(e.Gaps))
	for _, g := range e.Gaps {
		out = append(out, g)
	}
	sortGaps(out)
	return out
}

func sortGaps(gaps []*Gap) {
	sort.Slice(gaps, func(i, j int) bool {
		return gaps[i].DiscoveryIndex < gaps[j].DiscoveryIndex
	})
}
