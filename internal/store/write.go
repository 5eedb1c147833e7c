package store

import (
	"context"
	"fmt"

	"github.com/roach88/ducktest/internal/summary"
)

// Run is one recorded report.
type Run struct {
	ID         string `json:"id"`
	Suite      string `json:"suite"`
	Seq        int64  `json:"seq"`
	Plan       int    `json:"plan"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	OK         bool   `json:"ok"`
	Bailed     bool   `json:"bailed"`
	BailReason string `json:"bail_reason,omitempty"`
	Digest     string `json:"digest"`
}

// RecordRun stores sum as a new run of suite, together with every result,
// in one transaction.
func (s *Store) RecordRun(ctx context.Context, suite string, sum *summary.Summary) (Run, error) {
	totals := sum.Totals()
	run := Run{
		ID:         s.ids.Generate(),
		Suite:      suite,
		Seq:        s.clock.Next(),
		Plan:       sum.Plan,
		Passed:     totals.Passed,
		Failed:     totals.Failed,
		Skipped:    totals.Skipped,
		OK:         sum.OK(),
		Bailed:     sum.Bailed,
		BailReason: sum.BailReason,
		Digest:     sum.Digest,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, suite, seq, plan, passed, failed, skipped, ok, bailed, bail_reason, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Suite,
		run.Seq,
		run.Plan,
		run.Passed,
		run.Failed,
		run.Skipped,
		boolInt(run.OK),
		boolInt(run.Bailed),
		run.BailReason,
		run.Digest,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	for i, r := range sum.Results {
		path, err := marshalPath(r.Path)
		if err != nil {
			return Run{}, fmt.Errorf("record run: result %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO results
			(run_id, idx, path, depth, ok, directive, composite, line)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			i,
			path,
			r.Depth,
			boolInt(r.OK),
			r.Directive,
			boolInt(r.Composite),
			r.Line,
		)
		if err != nil {
			return Run{}, fmt.Errorf("record run: result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: commit: %w", err)
	}
	return run, nil
}

// DeleteRun removes a run and its results.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrNotFound)
	}
	return nil
}
