package jobs

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/ingestion"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/types"
)

// CreateResume stores a base resume for the actor.
func (s *Service) CreateResume(ctx context.Context, actor types.Actor, req *types.CreateResumeRequest) (*types.Resume, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.FromValidator(err)
	}
	content := ingestion.CleanText(req.Content)
	if content == "" {
		return nil, apperrors.Validation("content", "content is required")
	}
	r := &types.Resume{
		ID:        uuid.New(),
		UserID:    actor.ID,
		Title:     strings.TrimSpace(req.Title),
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertResume(ctx, r)
	}); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "resume created", "resume_id", r.ID, "user_id", r.UserID)
	return r, nil
}

// GetResume returns a resume to its owner or an agent/admin.
func (s *Service) GetResume(ctx context.Context, actor types.Actor, id uuid.UUID) (*types.Resume, error) {
	r, err := s.store.GetResume(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != actor.ID && !actor.IsAgent() {
		return nil, apperrors.Forbidden("resume %s belongs to another user", id)
	}
	return r, nil
}
