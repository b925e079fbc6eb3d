package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/types"
)

// tx implements store.Tx on top of a pgx transaction.
type tx struct {
	q querier
}

var _ store.Tx = (*tx)(nil)

func (t *tx) GetJobForUpdate(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	return getJob(ctx, t.q, id, true)
}

func (t *tx) InsertJob(ctx context.Context, job *types.Job) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		         $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`,
		jobArgs(job)...,
	)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("failed to insert job: %w", err))
	}
	return nil
}

func (t *tx) UpdateJob(ctx context.Context, job *types.Job) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE jobs SET
			user_id = $2, title = $3, company = $4, description = $5, url = $6, status = $7,
			delegated_job_id = $8, resume_id = $9, tailored_status = $10, cover_letter = $11,
			submission_proof = $12, custom_resume_proof = $13, assigned_to = $14,
			assigned_to_name = $15, priority = $16, credits = $17, labels = $18,
			client_notes = $19, cannot_apply_reason = $20, created_at = $21, updated_at = $22,
			delegated_at = $23, trashed_at = $24, applied_at = $25
		 WHERE id = $1`,
		jobArgs(job)...,
	)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("failed to update job: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("job %s not found", job.ID)
	}
	return nil
}

func (t *tx) DelegatedCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM jobs WHERE delegated_job_id = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("failed to check delegation code: %w", err))
	}
	return exists, nil
}

// NextPendingTailoring locks the job row first, matching the lock order of every other path
// that touches both a job and its tailoring record.
func (t *tx) NextPendingTailoring(ctx context.Context) (*types.Job, error) {
	query := `SELECT ` + prefixedJobColumns + `
		FROM jobs j
		JOIN tailored_resumes tr ON tr.job_id = j.id
		WHERE tr.status = 'pending'
		ORDER BY tr.updated_at
		LIMIT 1
		FOR UPDATE OF j SKIP LOCKED`
	jobs, err := queryJobs(ctx, t.q, query)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return jobs[0], nil
}

func (t *tx) GetTailoredResumeForUpdate(ctx context.Context, jobID uuid.UUID) (*types.TailoredResume, error) {
	return getTailoredResume(ctx, t.q, jobID, true)
}

func (t *tx) SaveTailoredResume(ctx context.Context, tr *types.TailoredResume) error {
	return saveTailoredResume(ctx, t.q, tr)
}

func (t *tx) GetResume(ctx context.Context, id uuid.UUID) (*types.Resume, error) {
	return getResume(ctx, t.q, id)
}

func (t *tx) InsertResume(ctx context.Context, r *types.Resume) error {
	return insertResume(ctx, t.q, r)
}

func (t *tx) GetAccount(ctx context.Context, userID uuid.UUID) (*types.CreditAccount, error) {
	return getAccount(ctx, t.q, userID)
}

func (t *tx) DebitCredits(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	return debitCredits(ctx, t.q, userID, amount)
}

func (t *tx) GrantCredits(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	return grantCredits(ctx, t.q, userID, amount)
}

func (t *tx) SetAccountFlags(ctx context.Context, userID uuid.UUID, requireCustomResume bool) (*types.CreditAccount, error) {
	return setAccountFlags(ctx, t.q, userID, requireCustomResume)
}
