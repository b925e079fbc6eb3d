package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/types"
)

func getResume(ctx context.Context, q querier, id uuid.UUID) (*types.Resume, error) {
	var r types.Resume
	err := q.QueryRow(ctx,
		`SELECT id, user_id, title, content, created_at FROM resumes WHERE id = $1`, id,
	).Scan(&r.ID, &r.UserID, &r.Title, &r.Content, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("resume %s not found", id)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("failed to get resume: %w", err))
	}
	return &r, nil
}

func insertResume(ctx context.Context, q querier, r *types.Resume) error {
	_, err := q.Exec(ctx,
		`INSERT INTO resumes (id, user_id, title, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.UserID, r.Title, r.Content, r.CreatedAt,
	)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("failed to insert resume: %w", err))
	}
	return nil
}
