// Package db provides the PostgreSQL implementation of store.Store.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/types"
)

// querier is the subset of pgxpool.Pool and pgx.Tx used by the queries in this package.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ store.Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string, logger *slog.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &DB{pool: pool, logger: logger.With("component", "db")}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Pool exposes the underlying pool for migrations and health checks.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// WithTx runs fn in a READ COMMITTED transaction. Row locks taken through the Tx are held until
// commit or rollback.
func (db *DB) WithTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	pgTx, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if rerr := pgTx.Rollback(ctx); rerr != nil && !errors.Is(rerr, pgx.ErrTxClosed) {
			db.logger.Warn("rollback failed", "error", rerr)
		}
	}()

	if err = fn(&tx{q: pgTx}); err != nil {
		return err
	}
	if err = pgTx.Commit(ctx); err != nil {
		return apperrors.MapDBError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// GetJob returns a job by ID
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	return getJob(ctx, db.pool, id, false)
}

// GetJobByDelegatedCode returns the job carrying a delegation code
func (db *DB) GetJobByDelegatedCode(ctx context.Context, code string) (*types.Job, error) {
	j, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE delegated_job_id = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("no job carries delegation code %s", code)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("failed to get job by delegation code: %w", err))
	}
	return j, nil
}

// ListJobs returns jobs matching the filter, newest first
func (db *DB) ListJobs(ctx context.Context, filter store.JobFilter) ([]*types.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE ($1::uuid IS NULL OR user_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3`
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}
	return queryJobs(ctx, db.pool, query, filter.UserID, status, store.EffectiveLimit(filter.Limit))
}

// ListTasks returns delegated jobs, highest priority first, then oldest delegation first
func (db *DB) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*types.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE status = 'delegate_to_va'
		  AND (NOT $1::boolean OR assigned_to IS NULL)
		  AND ($2::uuid IS NULL OR assigned_to = $2)
		ORDER BY CASE priority WHEN 'high' THEN 2 WHEN 'normal' THEN 1 ELSE 0 END DESC,
		         delegated_at ASC NULLS FIRST, id
		LIMIT $3`
	return queryJobs(ctx, db.pool, query, filter.Unassigned, filter.AssignedTo, store.EffectiveLimit(filter.Limit))
}

// GetTailoredResume returns the tailoring record for a job, or nil if none exists
func (db *DB) GetTailoredResume(ctx context.Context, jobID uuid.UUID) (*types.TailoredResume, error) {
	return getTailoredResume(ctx, db.pool, jobID, false)
}

// StaleTailoring returns the job IDs of tailoring records processing since before the cutoff
func (db *DB) StaleTailoring(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT job_id FROM tailored_resumes
		 WHERE status = 'processing' AND updated_at < $1
		 ORDER BY updated_at
		 LIMIT $2`, before, store.EffectiveLimit(limit))
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("failed to query stale tailoring: %w", err))
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("failed to scan stale tailoring: %w", err))
	}
	return ids, nil
}

// GetResume returns a resume by ID
func (db *DB) GetResume(ctx context.Context, id uuid.UUID) (*types.Resume, error) {
	return getResume(ctx, db.pool, id)
}

// GetAccount returns a user's credit account, or a zero-balance account if none exists
func (db *DB) GetAccount(ctx context.Context, userID uuid.UUID) (*types.CreditAccount, error) {
	return getAccount(ctx, db.pool, userID)
}
