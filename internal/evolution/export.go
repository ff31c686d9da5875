// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evolution

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// Stats summarizes an experiment for display.
type Stats struct {
	Domain     string  `json:"domain" yaml:"domain"`
	Generation int     `json:"generation" yaml:"generation"`
	SeedCount  int     `json:"seed_queries" yaml:"seed_queries"`
	GapsTotal  int     `json:"gaps_total" yaml:"gaps_total"`
	GapsOpen   int     `json:"gaps_open" yaml:"gaps_open"`
	GapsFilled int     `json:"gaps_filled" yaml:"gaps_filled"`
	Emergent   int     `json:"gaps_emergent" yaml:"gaps_emergent"`
	FillRate   float64 `json:"fill_rate" yaml:"fill_rate"`
	Measured   bool    `json:"measured" yaml:"measured"`
}

// ExperimentStats computes display statistics for an experiment.
func ExperimentStats(exp *types.Experiment) Stats {
	st := Stats{
		Domain:     exp.Domain,
		Generation: exp.Generation,
		SeedCount:  len(exp.SeedQueries),
		GapsTotal:  len(exp.Gaps),
		Measured:   exp.Metrics != nil,
	}
	for _, g := range exp.Gaps {
		switch g.Status {
		case types.GapOpen:
			st.GapsOpen++
		case types.GapFilled:
			st.GapsFilled++
		}
		if g.Origin == types.OriginEmergent {
			st.Emergent++
		}
	}
	if st.GapsTotal > 0 {
		st.FillRate = float64(st.GapsFilled) / float64(st.GapsTotal)
	}
	return st
}

// exportDoc is the YAML export layout: the experiment plus its stats.
type exportDoc struct {
	Stats      Stats             `yaml:"stats"`
	Experiment *types.Experiment `yaml:"experiment"`
}

// ExportYAML writes the full experiment to dataDir/<domain>-experiment.yaml
// and returns the path. The export is a human-auditable snapshot; the
// SQLite database stays the source of truth.
func (s *Store) ExportYAML(ctx context.Context, domain string) (string, error) {
	exp, err := s.Load(ctx, domain)
	if err != nil {
		return "", err
	}

	doc := exportDoc{Stats: ExperimentStats(exp), Experiment: exp}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("encoding experiment: %w", err)
	}

	path := filepath.Join(s.dataDir, slug(domain)+"-experiment.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

// slug turns a domain name into a safe filename component.
func slug(domain string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, domain)
}
