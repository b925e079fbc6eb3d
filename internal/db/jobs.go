package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/types"
)

var jobColumnList = []string{
	"id", "user_id", "title", "company", "description", "url", "status",
	"delegated_job_id", "resume_id", "tailored_status", "cover_letter",
	"submission_proof", "custom_resume_proof", "assigned_to", "assigned_to_name",
	"priority", "credits", "labels", "client_notes", "cannot_apply_reason",
	"created_at", "updated_at", "delegated_at", "trashed_at", "applied_at",
}

var (
	jobColumns         = strings.Join(jobColumnList, ", ")
	prefixedJobColumns = "j." + strings.Join(jobColumnList, ", j.")
)

// jobArgs returns the column values of a job in jobColumnList order.
func jobArgs(j *types.Job) []any {
	labels := j.Labels
	if labels == nil {
		labels = []string{}
	}
	return []any{
		j.ID, j.UserID, j.Title, j.Company, j.Description, j.URL, string(j.Status),
		j.DelegatedJobID, j.ResumeID, string(j.TailoredStatus), j.CoverLetter,
		j.SubmissionProof, j.CustomResumeProof, j.AssignedTo, j.AssignedToName,
		string(j.Priority), j.Credits, labels, j.ClientNotes, j.CannotApplyReason,
		j.CreatedAt, j.UpdatedAt, j.DelegatedAt, j.TrashedAt, j.AppliedAt,
	}
}

func scanJob(row pgx.Row) (*types.Job, error) {
	var (
		j                                types.Job
		status, tailoredStatus, priority string
	)
	err := row.Scan(
		&j.ID, &j.UserID, &j.Title, &j.Company, &j.Description, &j.URL, &status,
		&j.DelegatedJobID, &j.ResumeID, &tailoredStatus, &j.CoverLetter,
		&j.SubmissionProof, &j.CustomResumeProof, &j.AssignedTo, &j.AssignedToName,
		&priority, &j.Credits, &j.Labels, &j.ClientNotes, &j.CannotApplyReason,
		&j.CreatedAt, &j.UpdatedAt, &j.DelegatedAt, &j.TrashedAt, &j.AppliedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Status = types.JobStatus(status)
	j.TailoredStatus = types.TailorStatus(tailoredStatus)
	j.Priority = types.Priority(priority)
	return &j, nil
}

func getJob(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*types.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	j, err := scanJob(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("job %s not found", id)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("failed to get job: %w", err))
	}
	return j, nil
}

func queryJobs(ctx context.Context, q querier, query string, args ...any) ([]*types.Job, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("failed to query jobs: %w", err))
	}
	defer rows.Close()

	var jobs []*types.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, apperrors.MapDBError(fmt.Errorf("failed to scan job: %w", err))
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("failed to iterate jobs: %w", err))
	}
	return jobs, nil
}
