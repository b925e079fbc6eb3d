// Package submission implements the proof-of-work gate guarding delegate_to_va -> applied,
// plus proof uploads and cannot-apply reports by the assigned agent.
package submission

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/claims"
	"github.com/jonathan/applydesk/internal/credits"
	"github.com/jonathan/applydesk/internal/jobs"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/types"
)

// Options groups dependencies for Gate.
type Options struct {
	Store  store.Store      // Required
	Logger *slog.Logger     // Optional: structured logger
	Now    func() time.Time // Optional: defaults to time.Now
}

// Gate validates and performs submissions.
type Gate struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewGate constructs a Gate.
func NewGate(opts Options) (*Gate, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Gate{store: opts.Store, logger: logger.With("component", "submission"), now: now}, nil
}

// Submit marks a delegated job applied. Proof references in req are used when given,
// otherwise the ones already attached to the job. Preconditions are checked in order
// (state, claim, proof, custom resume, credit) and the first failing one is reported. Debit,
// proof persistence and the status change commit together or not at all.
func (g *Gate) Submit(ctx context.Context, agent types.Actor, jobID uuid.UUID, req *types.ProofRequest) (*types.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	var out *types.Job
	err := g.store.WithTx(ctx, func(tx store.Tx) error {
		j, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if j.Status != types.JobStatusDelegated {
			return apperrors.InvalidTransition("only delegated jobs can be submitted, job is %s", j.Status)
		}
		if err := claims.RequireAssignee(j, agent); err != nil {
			return err
		}

		proof := pick(req.SubmissionProof, j.SubmissionProof)
		if proof == "" {
			return apperrors.MissingPrerequisite("submission_proof", "upload a submission proof first")
		}
		acct, err := tx.GetAccount(ctx, j.UserID)
		if err != nil {
			return err
		}
		customProof := pick(req.CustomResumeProof, j.CustomResumeProof)
		if acct.RequireCustomResume && customProof == "" {
			return apperrors.MissingPrerequisite("custom_resume_proof", "this client requires a custom resume, upload it first")
		}

		balance, err := credits.Debit(ctx, tx, j.UserID, credits.SubmissionCost)
		if err != nil {
			return err
		}

		j.SubmissionProof = &proof
		if customProof != "" {
			j.CustomResumeProof = &customProof
		}
		j.Credits = balance
		if err := jobs.MarkApplied(j, g.now()); err != nil {
			return err
		}
		if err := tx.UpdateJob(ctx, j); err != nil {
			return err
		}
		out = j
		return nil
	})
	if err != nil {
		g.logger.InfoContext(ctx, "submission rejected", "job_id", jobID, "agent_id", agent.ID, "code", apperrors.CodeOf(err))
		return nil, err
	}
	g.logger.InfoContext(ctx, "job applied", "job_id", jobID, "agent_id", agent.ID, "balance", out.Credits)
	return out, nil
}

// AttachProof stores proof references on a delegated job without submitting it. Fields left
// empty in req are not changed.
func (g *Gate) AttachProof(ctx context.Context, agent types.Actor, jobID uuid.UUID, req *types.ProofRequest) (*types.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.FromValidator(err)
	}
	proof, custom := strings.TrimSpace(req.SubmissionProof), strings.TrimSpace(req.CustomResumeProof)
	if proof == "" && custom == "" {
		return nil, apperrors.Validation("submission_proof", "at least one proof reference is required")
	}

	return g.mutateTask(ctx, agent, jobID, func(j *types.Job) error {
		if proof != "" {
			j.SubmissionProof = &proof
		}
		if custom != "" {
			j.CustomResumeProof = &custom
		}
		return nil
	})
}

// ReportCannotApply trashes a delegated job with the agent's reason, e.g. an expired posting.
func (g *Gate) ReportCannotApply(ctx context.Context, agent types.Actor, jobID uuid.UUID, req *types.CannotApplyRequest) (*types.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.FromValidator(err)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperrors.Validation("reason", "reason is required")
	}

	j, err := g.mutateTask(ctx, agent, jobID, func(j *types.Job) error {
		j.CannotApplyReason = &reason
		return jobs.Transition(j, types.JobStatusTrashed, g.now())
	})
	if err != nil {
		return nil, err
	}
	g.logger.InfoContext(ctx, "cannot apply reported", "job_id", jobID, "agent_id", agent.ID)
	return j, nil
}

// mutateTask locks a delegated job, checks the claim and persists fn's changes.
func (g *Gate) mutateTask(ctx context.Context, agent types.Actor, jobID uuid.UUID, fn func(j *types.Job) error) (*types.Job, error) {
	var out *types.Job
	err := g.store.WithTx(ctx, func(tx store.Tx) error {
		j, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if j.Status != types.JobStatusDelegated {
			return apperrors.InvalidTransition("job is %s, not delegated", j.Status)
		}
		if err := claims.RequireAssignee(j, agent); err != nil {
			return err
		}
		if err := fn(j); err != nil {
			return err
		}
		j.UpdatedAt = g.now()
		if err := tx.UpdateJob(ctx, j); err != nil {
			return err
		}
		out = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func pick(given string, stored *string) string {
	if s := strings.TrimSpace(given); s != "" {
		return s
	}
	if stored != nil {
		return *stored
	}
	return ""
}
