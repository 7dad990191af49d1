package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jadesonbruno/dataquality/rules"
)

// PostgresSink stores run results in the validation_runs and
// rule_outcomes tables. See migrations/ for the schema.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink creates a sink writing to db.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Name() string { return "postgres" }

// Publish writes the run and all of its outcomes in one transaction.
func (s *PostgresSink) Publish(ctx context.Context, r *rules.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stats := r.Statistics()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO validation_runs
			(run_id, run_name, suite, source, started_at, finished_at, success, evaluated, passed, failed, critical_failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.RunID, r.RunName, r.Suite, r.Source, r.StartedAt, r.FinishedAt, r.Success,
		stats.Evaluated, stats.Passed, stats.Failed, stats.CriticalFailed)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rule_outcomes
			(run_id, position, kind, target, severity, passed, observed_value, message, error, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range r.Outcomes {
		var observed []byte
		if o.ObservedValue != nil {
			if observed, err = json.Marshal(o.ObservedValue); err != nil {
				return fmt.Errorf("failed to encode observed value of rule %d: %w", i+1, err)
			}
		}
		_, err = stmt.ExecContext(ctx, r.RunID, i, string(o.Rule.Kind), o.Rule.Target(), string(o.Rule.Severity),
			o.Passed, nullableJSON(observed), o.Message, nullString(o.Error), nullString(o.Rule.Notes))
		if err != nil {
			return fmt.Errorf("failed to insert outcome %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RunSummary is one row of validation_runs.
type RunSummary struct {
	RunID      string           `json:"run_id"`
	RunName    string           `json:"run_name"`
	Suite      string           `json:"suite"`
	Source     string           `json:"source"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Success    bool             `json:"success"`
	Statistics rules.Statistics `json:"statistics"`
}

// RecentRuns returns up to limit runs, newest first. An empty suite
// matches every suite.
func (s *PostgresSink) RecentRuns(ctx context.Context, suite string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, run_name, suite, source, started_at, finished_at, success,
		       evaluated, passed, failed, critical_failed
		FROM validation_runs
		WHERE $1 = '' OR suite = $1
		ORDER BY started_at DESC, run_id
		LIMIT $2
	`, suite, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var rs RunSummary
		st := &rs.Statistics
		if err := rows.Scan(&rs.RunID, &rs.RunName, &rs.Suite, &rs.Source, &rs.StartedAt, &rs.FinishedAt, &rs.Success,
			&st.Evaluated, &st.Passed, &st.Failed, &st.CriticalFailed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		st.SuccessPercent = 100
		if st.Evaluated > 0 {
			st.SuccessPercent = float64(st.Passed) * 100 / float64(st.Evaluated)
		}
		runs = append(runs, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

var _ rules.Sink = (*PostgresSink)(nil)
