// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evolution tracks how a domain's knowledge improves across runs:
// a seed phase builds the initial gap set, fill passes resolve gaps and
// surface second-order ones, and a measure phase re-asks the original
// questions to quantify the improvement.
package evolution

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

const dbFile = "experiments.db"

// ErrNotFound is returned by Load for a domain with no experiment.
var ErrNotFound = errors.New("experiment not found")

// Store persists experiments in a SQLite database under dataDir. Every
// field of an experiment round-trips, including gap origin and status, so
// seed, fill, and measure can run as independent process invocations.
type Store struct {
	db      *sql.DB
	dataDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore opens or creates dataDir/experiments.db and its schema.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:      db,
		dataDir: dataDir,
		locks:   make(map[string]*sync.Mutex),
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lock returns the mutex serializing writers for one domain. Seed, fill,
// and measure hold it for their whole phase, so concurrent phases on the
// same domain are impossible while different domains proceed independently.
func (s *Store) Lock(domain string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[domain]; !ok {
		s.locks[domain] = &sync.Mutex{}
	}
	return s.locks[domain]
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS experiments (
			domain TEXT PRIMARY KEY,
			generation INTEGER NOT NULL,
			next_index INTEGER NOT NULL,
			metrics TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS seed_queries (
			domain TEXT NOT NULL REFERENCES experiments(domain) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			text TEXT NOT NULL,
			response TEXT NOT NULL DEFAULT '',
			gap_count INTEGER NOT NULL,
			response_length INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (domain, position)
		)`,
		`CREATE TABLE IF NOT EXISTS gaps (
			domain TEXT NOT NULL REFERENCES experiments(domain) ON DELETE CASCADE,
			id TEXT NOT NULL,
			description TEXT NOT NULL,
			origin TEXT NOT NULL,
			status TEXT NOT NULL,
			discovered_by TEXT NOT NULL,
			discovery_index INTEGER NOT NULL,
			generation INTEGER NOT NULL,
			response TEXT NOT NULL DEFAULT '',
			filled_at TEXT NOT NULL DEFAULT '',
			last_error TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (domain, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gaps_status ON gaps(domain, status, discovery_index)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Load reads the experiment for domain, or ErrNotFound.
func (s *Store) Load(ctx context.Context, domain string) (*types.Experiment, error) {
	exp := &types.Experiment{
		Domain: domain,
		Gaps:   make(map[string]*types.Gap),
	}

	var metricsJSON sql.NullString
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT generation, next_index, metrics, created_at, updated_at
		 FROM experiments WHERE domain = ?`, domain,
	).Scan(&exp.Generation, &exp.NextIndex, &metricsJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("domain %q: %w", domain, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading experiment: %w", err)
	}

	exp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	exp.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	if metricsJSON.Valid && metricsJSON.String != "" {
		var metrics types.ImprovementMetrics
		if err := json.Unmarshal([]byte(metricsJSON.String), &metrics); err != nil {
			return nil, fmt.Errorf("decoding metrics: %w", err)
		}
		exp.Metrics = &metrics
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT text, response, gap_count, response_length, error
		 FROM seed_queries WHERE domain = ? ORDER BY position`, domain)
	if err != nil {
		return nil, fmt.Errorf("loading seed queries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sq types.SeedQuery
		if err := rows.Scan(&sq.Text, &sq.Response, &sq.GapCount, &sq.ResponseLength, &sq.Err); err != nil {
			return nil, fmt.Errorf("scanning seed query: %w", err)
		}
		exp.SeedQueries = append(exp.SeedQueries, sq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating seed queries: %w", err)
	}

	gapRows, err := s.db.QueryContext(ctx,
		`SELECT id, description, origin, status, discovered_by, discovery_index,
		        generation, response, filled_at, last_error
		 FROM gaps WHERE domain = ? ORDER BY discovery_index`, domain)
	if err != nil {
		return nil, fmt.Errorf("loading gaps: %w", err)
	}
	defer gapRows.Close()
	for gapRows.Next() {
		g := &types.Gap{Domain: domain}
		var filledAt string
		if err := gapRows.Scan(&g.ID, &g.Description, &g.Origin, &g.Status,
			&g.DiscoveredBy, &g.DiscoveryIndex, &g.Generation,
			&g.Response, &filledAt, &g.LastError); err != nil {
			return nil, fmt.Errorf("scanning gap: %w", err)
		}
		if filledAt != "" {
			g.FilledAt, _ = time.Parse(time.RFC3339Nano, filledAt)
		}
		exp.Gaps[g.ID] = g
	}
	if err := gapRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating gaps: %w", err)
	}

	return exp, nil
}

// Save writes the experiment transactionally, replacing any previous
// state for the domain.
func (s *Store) Save(ctx context.Context, exp *types.Experiment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if exp.CreatedAt.IsZero() {
		exp.CreatedAt = now
	}
	exp.UpdatedAt = now

	var metricsJSON string
	if exp.Metrics != nil {
		data, err := json.Marshal(exp.Metrics)
		if err != nil {
			return fmt.Errorf("encoding metrics: %w", err)
		}
		metricsJSON = string(data)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO experiments (domain, generation, next_index, metrics, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET
			generation=excluded.generation, next_index=excluded.next_index,
			metrics=excluded.metrics, updated_at=excluded.updated_at`,
		exp.Domain, exp.Generation, exp.NextIndex, metricsJSON,
		exp.CreatedAt.Format(time.RFC3339Nano), exp.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting experiment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM seed_queries WHERE domain = ?`, exp.Domain); err != nil {
		return fmt.Errorf("clearing seed queries: %w", err)
	}
	for i, sq := range exp.SeedQueries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO seed_queries (domain, position, text, response, gap_count, response_length, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			exp.Domain, i, sq.Text, sq.Response, sq.GapCount, sq.ResponseLength, sq.Err)
		if err != nil {
			return fmt.Errorf("inserting seed query %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM gaps WHERE domain = ?`, exp.Domain); err != nil {
		return fmt.Errorf("clearing gaps: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO gaps (domain, id, description, origin, status, discovered_by,
		                   discovery_index, generation, response, filled_at, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing gap insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range exp.AllGaps() {
		filledAt := ""
		if !g.FilledAt.IsZero() {
			filledAt = g.FilledAt.UTC().Format(time.RFC3339Nano)
		}
		_, err := stmt.ExecContext(ctx,
			exp.Domain, g.ID, g.Description, string(g.Origin), string(g.Status),
			g.DiscoveredBy, g.DiscoveryIndex, g.Generation, g.Response, filledAt, g.LastError)
		if err != nil {
			return fmt.Errorf("inserting gap %s: %w", g.ID, err)
		}
	}

	return tx.Commit()
}

// Domains lists every domain with a stored experiment, sorted.
func (s *Store) Domains(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain FROM experiments ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("listing domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}
