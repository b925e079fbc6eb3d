// Package jobs implements the job lifecycle: creation and edits, the status state machine,
// delegation with unique codes, soft deletion and restore, and their bulk variants.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/ingestion"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/types"
)

const (
	// maxCodeAttempts bounds collision retries when drawing a delegation code.
	maxCodeAttempts = 5
	// maxDelegateAttempts bounds whole-transaction retries after a unique index conflict.
	maxDelegateAttempts = 5
	defaultBulkWorkers  = 8
)

// Options groups dependencies for Service.
type Options struct {
	Store       store.Store      // Required
	Logger      *slog.Logger     // Optional: structured logger
	Codes       CodeGenerator    // Optional: defaults to NewDelegationCode
	Now         func() time.Time // Optional: defaults to time.Now
	BulkWorkers int              // Optional: concurrent items in bulk operations
}

// Service manages jobs on behalf of their owners.
type Service struct {
	store       store.Store
	logger      *slog.Logger
	codes       CodeGenerator
	now         func() time.Time
	bulkWorkers int
}

// NewService constructs a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	s := &Service{
		store:       opts.Store,
		logger:      opts.Logger,
		codes:       opts.Codes,
		now:         opts.Now,
		bulkWorkers: opts.BulkWorkers,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "jobs")
	if s.codes == nil {
		s.codes = NewDelegationCode
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.bulkWorkers <= 0 {
		s.bulkWorkers = defaultBulkWorkers
	}
	return s, nil
}

// Create creates a job in the saved state owned by the actor.
func (s *Service) Create(ctx context.Context, actor types.Actor, req *types.CreateJobRequest) (*types.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.FromValidator(err)
	}
	title, company := strings.TrimSpace(req.Title), strings.TrimSpace(req.Company)
	if title == "" {
		return nil, apperrors.Validation("title", "title is required")
	}
	if company == "" {
		return nil, apperrors.Validation("company", "company is required")
	}
	desc, err := ingestion.NormalizeDescription(req.Description)
	if err != nil {
		return nil, apperrors.Validation("description", err.Error())
	}

	now := s.now()
	job := &types.Job{
		ID:          uuid.New(),
		UserID:      actor.ID,
		Title:       title,
		Company:     company,
		Description: desc,
		Status:      types.JobStatusSaved,
		ResumeID:    req.ResumeID,
		Priority:    types.PriorityNormal,
		Labels:      normalizeLabels(req.Labels),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.URL != "" {
		job.URL = &req.URL
	}
	if notes := strings.TrimSpace(req.ClientNotes); notes != "" {
		job.ClientNotes = &notes
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if job.ResumeID != nil {
			if err := checkResumeOwner(ctx, tx, *job.ResumeID, job.UserID); err != nil {
				return err
			}
		}
		return tx.InsertJob(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "job created", "job_id", job.ID, "user_id", job.UserID)
	return job, nil
}

// Get returns a job visible to the actor: its owner, an admin, or an agent once delegated.
func (s *Service) Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*types.Job, error) {
	j, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Owns(j) || actor.IsAdmin() || (actor.IsAgent() && j.DelegatedJobID != nil) {
		return j, nil
	}
	return nil, apperrors.Forbidden("job %s is not visible to you", id)
}

// ListFilter narrows List.
type ListFilter struct {
	Status *types.JobStatus
	Limit  int
}

// List returns the actor's own jobs, newest first.
func (s *Service) List(ctx context.Context, actor types.Actor, filter ListFilter) ([]*types.Job, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperrors.Validation("status", "unknown status "+string(*filter.Status))
	}
	return s.store.ListJobs(ctx, store.JobFilter{UserID: &actor.ID, Status: filter.Status, Limit: filter.Limit})
}

// Update edits owner-controlled fields. Jobs past the applied transition are read-only.
func (s *Service) Update(ctx context.Context, actor types.Actor, id uuid.UUID, req *types.UpdateJobRequest) (*types.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.FromValidator(err)
	}
	return s.mutate(ctx, id, func(tx store.Tx, j *types.Job) (bool, error) {
		if err := requireOwner(actor, j); err != nil {
			return false, err
		}
		if IsTerminal(j.Status) {
			return false, apperrors.InvalidTransition("job is %s and can no longer be edited", j.Status)
		}
		if err := applyUpdate(ctx, tx, j, req); err != nil {
			return false, err
		}
		j.UpdatedAt = s.now()
		return true, nil
	})
}

func applyUpdate(ctx context.Context, tx store.Tx, j *types.Job, req *types.UpdateJobRequest) error {
	if req.Title != nil {
		if j.Title = strings.TrimSpace(*req.Title); j.Title == "" {
			return apperrors.Validation("title", "title is required")
		}
	}
	if req.Company != nil {
		if j.Company = strings.TrimSpace(*req.Company); j.Company == "" {
			return apperrors.Validation("company", "company is required")
		}
	}
	if req.Description != nil {
		desc, err := ingestion.NormalizeDescription(*req.Description)
		if err != nil {
			return apperrors.Validation("description", err.Error())
		}
		j.Description = desc
	}
	if req.URL != nil {
		if *req.URL == "" {
			j.URL = nil
		} else {
			j.URL = req.URL
		}
	}
	if req.ResumeID != nil {
		if err := checkResumeOwner(ctx, tx, *req.ResumeID, j.UserID); err != nil {
			return err
		}
		j.ResumeID = req.ResumeID
	}
	if req.Labels != nil {
		j.Labels = normalizeLabels(*req.Labels)
	}
	if req.ClientNotes != nil {
		if notes := strings.TrimSpace(*req.ClientNotes); notes == "" {
			j.ClientNotes = nil
		} else {
			j.ClientNotes = &notes
		}
	}
	if req.Priority != nil {
		j.Priority = *req.Priority
	}
	return nil
}

// Trash soft-deletes a job. Trashing an already trashed job is a no-op.
func (s *Service) Trash(ctx context.Context, actor types.Actor, id uuid.UUID) (*types.Job, error) {
	j, err := s.mutate(ctx, id, func(_ store.Tx, j *types.Job) (bool, error) {
		if err := requireOwner(actor, j); err != nil {
			return false, err
		}
		if j.Status == types.JobStatusTrashed {
			return false, nil
		}
		return true, Transition(j, types.JobStatusTrashed, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "job trashed", "job_id", id)
	return j, nil
}

// Restore returns a trashed job to saved. The delegation code is kept so a later delegation
// reuses it, but the claim is released: a restored job starts a fresh delegation cycle.
func (s *Service) Restore(ctx context.Context, actor types.Actor, id uuid.UUID) (*types.Job, error) {
	j, err := s.mutate(ctx, id, func(_ store.Tx, j *types.Job) (bool, error) {
		if err := requireOwner(actor, j); err != nil {
			return false, err
		}
		if j.Status != types.JobStatusTrashed {
			return false, apperrors.InvalidTransition("only trashed jobs can be restored, job is %s", j.Status)
		}
		if err := Transition(j, types.JobStatusSaved, s.now()); err != nil {
			return false, err
		}
		j.AssignedTo = nil
		j.AssignedToName = nil
		j.CannotApplyReason = nil
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "job restored", "job_id", id)
	return j, nil
}

// Delegate hands a saved or tailored job to the agent pool, assigning its delegation code on
// first delegation. Code collisions with a concurrent delegation surface as a unique index
// conflict and the whole transaction is retried with a fresh code.
func (s *Service) Delegate(ctx context.Context, actor types.Actor, id uuid.UUID) (*types.Job, error) {
	for attempt := 1; ; attempt++ {
		j, err := s.mutate(ctx, id, func(tx store.Tx, j *types.Job) (bool, error) {
			return true, s.delegate(ctx, tx, actor, j)
		})
		if err == nil {
			s.logger.InfoContext(ctx, "job delegated", "job_id", id, "code", *j.DelegatedJobID)
			return j, nil
		}
		if attempt < maxDelegateAttempts && isCodeConflict(err) {
			s.logger.WarnContext(ctx, "delegation code conflict, retrying", "job_id", id, "attempt", attempt)
			continue
		}
		return nil, err
	}
}

func (s *Service) delegate(ctx context.Context, tx store.Tx, actor types.Actor, j *types.Job) error {
	if err := requireOwner(actor, j); err != nil {
		return err
	}
	if !CanTransition(j.Status, types.JobStatusDelegated) {
		return apperrors.InvalidTransition("only saved or tailored jobs can be delegated, job is %s", j.Status)
	}
	if j.DelegatedJobID == nil {
		code, err := s.allocateCode(ctx, tx)
		if err != nil {
			return err
		}
		j.DelegatedJobID = &code
	}
	acct, err := tx.GetAccount(ctx, j.UserID)
	if err != nil {
		return err
	}
	j.Credits = acct.Balance
	return Transition(j, types.JobStatusDelegated, s.now())
}

func (s *Service) allocateCode(ctx context.Context, tx store.Tx) (string, error) {
	for range maxCodeAttempts {
		code, err := s.codes()
		if err != nil {
			return "", apperrors.Internal("failed to generate delegation code", err)
		}
		exists, err := tx.DelegatedCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", apperrors.Internal("could not allocate a unique delegation code", nil)
}

// Progress records post-application outcomes: applied -> interviewing | offer, interviewing -> offer.
func (s *Service) Progress(ctx context.Context, actor types.Actor, id uuid.UUID, to types.JobStatus) (*types.Job, error) {
	if to != types.JobStatusInterviewing && to != types.JobStatusOffer {
		return nil, apperrors.Validation("status", "progress must be interviewing or offer")
	}
	return s.mutate(ctx, id, func(_ store.Tx, j *types.Job) (bool, error) {
		if err := requireOwner(actor, j); err != nil {
			return false, err
		}
		return true, Transition(j, to, s.now())
	})
}

// mutate locks the job, applies fn and persists the job if fn reports a change.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(tx store.Tx, j *types.Job) (bool, error)) (*types.Job, error) {
	var out *types.Job
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		j, err := tx.GetJobForUpdate(ctx, id)
		if err != nil {
			return err
		}
		changed, err := fn(tx, j)
		if err != nil {
			return err
		}
		if changed {
			if err := tx.UpdateJob(ctx, j); err != nil {
				return err
			}
		}
		out = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func requireOwner(actor types.Actor, j *types.Job) error {
	if actor.Owns(j) || actor.IsAdmin() {
		return nil
	}
	return apperrors.Forbidden("job %s belongs to another user", j.ID)
}

func checkResumeOwner(ctx context.Context, tx store.Tx, resumeID, userID uuid.UUID) error {
	r, err := tx.GetResume(ctx, resumeID)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		return apperrors.Validation("resume_id", "resume does not exist")
	}
	if err != nil {
		return err
	}
	if r.UserID != userID {
		return apperrors.Validation("resume_id", "resume belongs to another user")
	}
	return nil
}

func isCodeConflict(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && appErr.Code == apperrors.CodeConflict && appErr.Field == "delegated_job_id"
}

// normalizeLabels trims, drops empties and de-duplicates labels, keeping first-seen order.
func normalizeLabels(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, l := range in {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
