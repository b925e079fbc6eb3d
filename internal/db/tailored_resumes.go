package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/types"
)

const tailoredColumns = `id, job_id, resume_id, status, attempt, error_message, content, analytics,
	created_at, updated_at, completed_at`

func getTailoredResume(ctx context.Context, q querier, jobID uuid.UUID, forUpdate bool) (*types.TailoredResume, error) {
	query := `SELECT ` + tailoredColumns + ` FROM tailored_resumes WHERE job_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		tr                     types.TailoredResume
		status                 string
		contentJSON, statsJSON []byte
	)
	err := q.QueryRow(ctx, query, jobID).Scan(
		&tr.ID, &tr.JobID, &tr.ResumeID, &status, &tr.Attempt, &tr.ErrorMessage,
		&contentJSON, &statsJSON, &tr.CreatedAt, &tr.UpdatedAt, &tr.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("failed to get tailored resume: %w", err))
	}
	tr.Status = types.TailorStatus(status)

	if len(contentJSON) > 0 {
		tr.Content = &types.TailoredContent{}
		if err := json.Unmarshal(contentJSON, tr.Content); err != nil {
			return nil, apperrors.Internal("failed to decode tailored content", err)
		}
	}
	if len(statsJSON) > 0 {
		tr.Analytics = &types.MatchAnalytics{}
		if err := json.Unmarshal(statsJSON, tr.Analytics); err != nil {
			return nil, apperrors.Internal("failed to decode match analytics", err)
		}
	}
	return &tr, nil
}

// saveTailoredResume upserts on job_id; a job has at most one tailoring record.
func saveTailoredResume(ctx context.Context, q querier, tr *types.TailoredResume) error {
	var contentJSON, statsJSON []byte
	var err error
	if tr.Content != nil {
		if contentJSON, err = json.Marshal(tr.Content); err != nil {
			return fmt.Errorf("failed to marshal tailored content: %w", err)
		}
	}
	if tr.Analytics != nil {
		if statsJSON, err = json.Marshal(tr.Analytics); err != nil {
			return fmt.Errorf("failed to marshal match analytics: %w", err)
		}
	}

	_, err = q.Exec(ctx,
		`INSERT INTO tailored_resumes (`+tailoredColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (job_id) DO UPDATE SET
			resume_id = EXCLUDED.resume_id,
			status = EXCLUDED.status,
			attempt = EXCLUDED.attempt,
			error_message = EXCLUDED.error_message,
			content = EXCLUDED.content,
			analytics = EXCLUDED.analytics,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at`,
		tr.ID, tr.JobID, tr.ResumeID, string(tr.Status), tr.Attempt, tr.ErrorMessage,
		contentJSON, statsJSON, tr.CreatedAt, tr.UpdatedAt, tr.CompletedAt,
	)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("failed to save tailored resume: %w", err))
	}
	return nil
}
