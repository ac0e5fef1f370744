package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dfedorov/codequery/internal/core/ports"
)

// EvaluationRepository persists quality telemetry for answered questions.
type EvaluationRepository struct {
	db *sql.DB
}

func NewEvaluationRepository(db *sql.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *EvaluationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS evaluation_runs (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	strategy TEXT NOT NULL,
	answer TEXT NOT NULL,
	score DOUBLE PRECISION,
	grounded BOOLEAN,
	attempts INTEGER NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluation_runs_finished_at ON evaluation_runs(finished_at DESC);
CREATE INDEX IF NOT EXISTS idx_evaluation_runs_strategy ON evaluation_runs(strategy);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveRun is idempotent on the run id: the worker may see the same event
// twice after a reconnect.
func (r *EvaluationRepository) SaveRun(ctx context.Context, run ports.EvaluationRun) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO evaluation_runs (id, question, strategy, answer, score, grounded, attempts, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO NOTHING
`,
		run.ID, run.Question, run.Strategy, run.Answer, run.Score, run.Grounded, run.Attempts, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest audit rows, most recent first.
func (r *EvaluationRepository) RecentRuns(ctx context.Context, limit int) ([]ports.EvaluationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, question, strategy, answer, score, grounded, attempts, finished_at
FROM evaluation_runs
ORDER BY finished_at DESC
LIMIT $1
`, limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query evaluation runs: %w", err)
	}
	defer rows.Close()

	out := make([]ports.EvaluationRun, 0, limit)
	for rows.Next() {
		var run ports.EvaluationRun
		if err := rows.Scan(&run.ID, &run.Question, &run.Strategy, &run.Answer, &run.Score, &run.Grounded, &run.Attempts, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluation runs: %w", err)
	}
	return out, nil
}
