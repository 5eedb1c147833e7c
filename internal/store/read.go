package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ducktest/internal/summary"
)

const runColumns = `id, suite, seq, plan, passed, failed, skipped, ok, bailed, bail_reason, digest`

// ListRuns returns runs newest first. An empty suite lists every suite; a
// limit of zero or less lists all runs.
func (s *Store) ListRuns(ctx context.Context, suite string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE ? = '' OR suite = ?
		ORDER BY seq DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, suite, suite, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given ID, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// LatestRun returns the most recent run of suite, or ErrNotFound.
func (s *Store) LatestRun(ctx context.Context, suite string) (Run, error) {
	runs, err := s.ListRuns(ctx, suite, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("latest run of %q: %w", suite, ErrNotFound)
	}
	return runs[0], nil
}

// RunsWithDigest returns the runs whose report text matched digest, oldest first.
func (s *Store) RunsWithDigest(ctx context.Context, digest string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE digest = ?
		ORDER BY seq ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("query runs by digest: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadResults returns the results of a run in report order.
func (s *Store) ReadResults(ctx context.Context, runID string) ([]summary.Result, error) {
	return s.queryResults(ctx, `
		SELECT path, depth, ok, directive, composite, line
		FROM results
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
}

// ReadFailures returns the failing leaf results of a run in report order.
func (s *Store) ReadFailures(ctx context.Context, runID string) ([]summary.Result, error) {
	return s.queryResults(ctx, `
		SELECT path, depth, ok, directive, composite, line
		FROM results
		WHERE run_id = ? AND ok = 0 AND composite = 0
		ORDER BY idx ASC
	`, runID)
}

func (s *Store) queryResults(ctx context.Context, query string, args ...any) ([]summary.Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []summary.Result{}
	for rows.Next() {
		var (
			r             summary.Result
			path          string
			ok, composite int
		)
		if err := rows.Scan(&path, &r.Depth, &ok, &r.Directive, &composite, &r.Line); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.Path, err = unmarshalPath(path); err != nil {
			return nil, err
		}
		r.OK = ok != 0
		r.Composite = composite != 0
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		ok, bailed int
	)
	err := row.Scan(
		&run.ID,
		&run.Suite,
		&run.Seq,
		&run.Plan,
		&run.Passed,
		&run.Failed,
		&run.Skipped,
		&ok,
		&bailed,
		&run.BailReason,
		&run.Digest,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.OK = ok != 0
	run.Bailed = bailed != 0
	return run, nil
}
