package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

const schemaLockID int64 = 2026101901

// RunRepository archives finished grading runs and their per-paper results.
type RunRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db, now: time.Now}
}

func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Concurrent graders may bootstrap the same database.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS grading_runs (
	run_id TEXT PRIMARY KEY,
	input_dir TEXT NOT NULL,
	rubric_title TEXT NOT NULL,
	rubric_max_score INTEGER NOT NULL DEFAULT 0,
	state TEXT NOT NULL,
	total INTEGER NOT NULL,
	graded INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	average_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	archived_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS grading_results (
	run_id TEXT NOT NULL REFERENCES grading_runs(run_id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	file TEXT NOT NULL,
	score INTEGER NOT NULL,
	answer TEXT NOT NULL,
	reason TEXT,
	status TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_grading_runs_started_at ON grading_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_grading_results_file ON grading_results(file);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveRun writes the run header and every record in one transaction.
func (r *RunRepository) SaveRun(ctx context.Context, run domain.RunResult) error {
	if run.RunID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save run", errors.New("run id is required"))
	}
	stats := run.Stats()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO grading_runs (
	run_id, input_dir, rubric_title, rubric_max_score, state, total, graded, failed, average_score, started_at, finished_at, archived_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		run.RunID, run.InputDir, run.Rubric.Title, run.Rubric.MaxScore, string(run.State),
		stats.Total, stats.Graded, stats.Failed, stats.AverageScore,
		run.StartedAt.UTC(), run.FinishedAt.UTC(), r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, rec := range run.Records {
		var reason sql.NullString
		if rec.Reason != "" {
			reason = sql.NullString{String: rec.Reason, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO grading_results (run_id, position, file, score, answer, reason, status)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, run.RunID, i, rec.File, rec.Score, rec.Answer, reason, string(rec.Status))
		if err != nil {
			return fmt.Errorf("insert result %s: %w", rec.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run tx: %w", err)
	}
	return nil
}

// ScoreHistory returns the archived scores for a file name, newest run first.
func (r *RunRepository) ScoreHistory(ctx context.Context, file string, limit int) ([]domain.ResultRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT res.file, res.score, res.answer, res.reason, res.status
FROM grading_results res
JOIN grading_runs run ON run.run_id = res.run_id
WHERE res.file = $1
ORDER BY run.started_at DESC
LIMIT $2
`, file, limit)
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer rows.Close()

	var out []domain.ResultRecord
	for rows.Next() {
		var rec domain.ResultRecord
		var reason sql.NullString
		var status string
		if err := rows.Scan(&rec.File, &rec.Score, &rec.Answer, &reason, &status); err != nil {
			return nil, fmt.Errorf("scan score history: %w", err)
		}
		rec.Reason = reason.String
		rec.Status = domain.RecordStatus(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score history: %w", err)
	}
	return out, nil
}
