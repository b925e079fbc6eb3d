// Package tailoring runs the AI tailoring pipeline. A run moves its record through
// pending -> processing -> completed | failed and mirrors that status onto the job in the same
// transaction. Direct runs finish inside the request; queued runs are reserved by a Worker.
// Clients discover completion only by polling Status.
package tailoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/claims"
	"github.com/jonathan/applydesk/internal/ingestion"
	"github.com/jonathan/applydesk/internal/jobs"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/types"
)

// DefaultTimeout bounds a single transformation.
const DefaultTimeout = 60 * time.Second

const (
	reapBatchSize = 50
	staleFailure  = "tailoring run was interrupted, trigger it again"
)

// StatusCache holds terminal tailoring records for cheap polling.
// Get returns nil on a miss.
type StatusCache interface {
	Get(ctx context.Context, jobID uuid.UUID) (*types.TailoredResume, error)
	Set(ctx context.Context, tr *types.TailoredResume) error
	// Invalidate drops the cached record and refuses later writes older than attempt.
	Invalidate(ctx context.Context, jobID uuid.UUID, attempt int) error
}

// Options groups dependencies for Service.
type Options struct {
	Store       store.Store      // Required
	Tailorer    Tailorer         // Required
	Cache       StatusCache      // Optional: terminal status cache
	Logger      *slog.Logger     // Optional: structured logger
	Now         func() time.Time // Optional: defaults to time.Now
	Timeout     time.Duration    // Optional: defaults to DefaultTimeout
	StaleAfter  time.Duration    // Optional: processing age at which a run is reaped, defaults to 2x Timeout
	DefaultMode types.TailorMode // Optional: defaults to queued
}

// Service triggers and reports tailoring runs.
type Service struct {
	store       store.Store
	tailorer    Tailorer
	cache       StatusCache
	logger      *slog.Logger
	now         func() time.Time
	timeout     time.Duration
	staleAfter  time.Duration
	defaultMode types.TailorMode
	wake        chan struct{}
}

// NewService constructs a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Tailorer == nil {
		return nil, errors.New("tailorer is required")
	}
	s := &Service{
		store:       opts.Store,
		tailorer:    opts.Tailorer,
		cache:       opts.Cache,
		logger:      opts.Logger,
		now:         opts.Now,
		timeout:     opts.Timeout,
		staleAfter:  opts.StaleAfter,
		defaultMode: opts.DefaultMode,
		wake:        make(chan struct{}, 1),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "tailoring")
	if s.now == nil {
		s.now = time.Now
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.staleAfter <= s.timeout {
		s.staleAfter = 2 * s.timeout
	}
	if s.defaultMode == "" {
		s.defaultMode = types.TailorModeQueued
	}
	return s, nil
}

// run is what one transformation needs, captured while the job was locked.
type run struct {
	jobID   uuid.UUID
	attempt int
	input   Input
}

// Trigger starts a tailoring run for the job. Queued mode returns the pending record at once;
// direct mode returns the terminal record, which may be failed.
//
// Owner-driven runs move the job into tailoring. On a delegated job the caller must hold the
// claim and the job status is left alone.
func (s *Service) Trigger(ctx context.Context, actor types.Actor, jobID uuid.UUID, req *types.TriggerTailoringRequest) (*types.TailoredResume, error) {
	if req == nil {
		req = &types.TriggerTailoringRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.FromValidator(err)
	}
	mode := req.Mode
	if mode == "" {
		mode = s.defaultMode
	}

	var (
		out *types.TailoredResume
		r   run
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		j, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		ownerDriven, err := authorizeWrite(actor, j)
		if err != nil {
			return err
		}
		if ownerDriven {
			switch j.Status {
			case types.JobStatusSaved, types.JobStatusTailoring, types.JobStatusTailored:
			default:
				return apperrors.InvalidTransition("cannot tailor a %s job", j.Status)
			}
		}

		if req.JobDescription != "" {
			desc, err := ingestion.NormalizeDescription(req.JobDescription)
			if err != nil {
				return apperrors.Validation("job_description", "job description could not be read")
			}
			j.Description = desc
		}
		if req.ResumeID != nil {
			j.ResumeID = req.ResumeID
		}
		if j.ResumeID == nil {
			return apperrors.MissingPrerequisite("resume_id", "select a resume before tailoring")
		}
		resume, err := ownedResume(ctx, tx, *j.ResumeID, j.UserID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(j.Description) == "" {
			return apperrors.MissingPrerequisite("job_description", "add a job description before tailoring")
		}

		now := s.now()
		tr, err := tx.GetTailoredResumeForUpdate(ctx, j.ID)
		if err != nil {
			return err
		}
		if tr == nil {
			tr = &types.TailoredResume{ID: uuid.New(), JobID: j.ID, CreatedAt: now}
		}
		tr.ResumeID = resume.ID
		tr.Attempt++
		tr.Status = types.TailorStatusPending
		if mode == types.TailorModeDirect {
			tr.Status = types.TailorStatusProcessing
		}
		tr.ErrorMessage = nil
		tr.Content = nil
		tr.Analytics = nil
		tr.CompletedAt = nil
		tr.UpdatedAt = now

		if ownerDriven && j.Status != types.JobStatusTailoring {
			if err := jobs.Transition(j, types.JobStatusTailoring, now); err != nil {
				return err
			}
		}
		j.TailoredStatus = tr.Status
		j.UpdatedAt = now
		if err := tx.UpdateJob(ctx, j); err != nil {
			return err
		}
		if err := tx.SaveTailoredResume(ctx, tr); err != nil {
			return err
		}

		out = tr
		r = run{jobID: j.ID, attempt: tr.Attempt, input: inputFor(j, resume)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, jobID, r.attempt)
	s.logger.InfoContext(ctx, "tailoring triggered", "job_id", jobID, "mode", mode, "attempt", r.attempt)

	if mode == types.TailorModeQueued {
		s.notify()
		return out, nil
	}
	return s.execute(ctx, r)
}

// Status returns the job's tailoring record. It never changes state.
func (s *Service) Status(ctx context.Context, actor types.Actor, jobID uuid.UUID) (*types.TailoredResume, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(actor, j); err != nil {
		return nil, err
	}

	if s.cache != nil {
		tr, err := s.cache.Get(ctx, jobID)
		if err != nil {
			s.logger.WarnContext(ctx, "status cache read failed", "job_id", jobID, "error", err)
		} else if tr != nil {
			return tr, nil
		}
	}

	tr, err := s.store.GetTailoredResume(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, apperrors.NotFound("job %s has not been tailored", jobID)
	}
	if tr.Status.Terminal() {
		s.remember(ctx, tr)
	}
	return tr, nil
}

// Tweak edits the content of a completed record. The status is unchanged and the match
// analytics are recomputed against the job description.
func (s *Service) Tweak(ctx context.Context, actor types.Actor, jobID uuid.UUID, req *types.TweakTailoringRequest) (*types.TailoredResume, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	var out *types.TailoredResume
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		j, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if _, err := authorizeWrite(actor, j); err != nil {
			return err
		}
		tr, err := tx.GetTailoredResumeForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if tr == nil {
			return apperrors.NotFound("job %s has not been tailored", jobID)
		}
		if tr.Status != types.TailorStatusCompleted {
			return apperrors.InvalidTransition("only completed tailoring can be tweaked, status is %s", tr.Status)
		}

		content := tr.Content.Clone()
		if content == nil {
			content = &types.TailoredContent{}
		}
		if req.Summary != nil {
			content.Summary = strings.TrimSpace(*req.Summary)
		}
		if req.Experience != nil {
			content.Experience = *req.Experience
		}
		if req.Skills != nil {
			content.Skills = *req.Skills
		}
		if err := types.ValidateContent(content); err != nil {
			return apperrors.FromValidator(err)
		}

		analytics := Analyze(j.Description, content)
		tr.Content = content
		tr.Analytics = &analytics
		tr.UpdatedAt = s.now()
		if err := tx.SaveTailoredResume(ctx, tr); err != nil {
			return err
		}
		out = tr
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.remember(ctx, out)
	return out, nil
}

// GenerateCoverLetter writes a cover letter for the job and stores it on the job.
// The model call runs outside any transaction.
func (s *Service) GenerateCoverLetter(ctx context.Context, actor types.Actor, jobID uuid.UUID, req *types.CoverLetterRequest) (*types.Job, error) {
	if req == nil {
		req = &types.CoverLetterRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	var in CoverLetterInput
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		j, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if _, err := authorizeWrite(actor, j); err != nil {
			return err
		}
		if jobs.IsTerminal(j.Status) || j.Status == types.JobStatusTrashed {
			return apperrors.InvalidTransition("cannot write a cover letter for a %s job", j.Status)
		}

		changed := false
		if req.JobDescription != "" {
			desc, err := ingestion.NormalizeDescription(req.JobDescription)
			if err != nil {
				return apperrors.Validation("job_description", "job description could not be read")
			}
			j.Description, changed = desc, true
		}
		resumeID := j.ResumeID
		if req.ResumeID != nil {
			resumeID = req.ResumeID
		}
		if resumeID == nil {
			return apperrors.MissingPrerequisite("resume_id", "select a resume before writing a cover letter")
		}
		resume, err := ownedResume(ctx, tx, *resumeID, j.UserID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(j.Description) == "" {
			return apperrors.MissingPrerequisite("job_description", "add a job description before writing a cover letter")
		}

		in = CoverLetterInput{Input: inputFor(j, resume), Notes: strings.TrimSpace(req.Notes)}
		if changed {
			j.UpdatedAt = s.now()
			return tx.UpdateJob(ctx, j)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	letter, err := s.tailorer.CoverLetter(callCtx, in)
	if err != nil {
		s.logger.WarnContext(ctx, "cover letter generation failed", "job_id", jobID, "error", err)
		return nil, apperrors.UpstreamFailure(failureMessage("cover letter generation", err, s.timeout), err)
	}

	var out *types.Job
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		j, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		// The claim may have moved while the model was writing.
		if _, err := authorizeWrite(actor, j); err != nil {
			return err
		}
		j.CoverLetter = &letter
		j.UpdatedAt = s.now()
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

// execute performs the transformation and records its outcome. The caller's cancellation does
// not abort the run, but the timeout always does.
//
// A superseded run records its outcome over a processing or terminal record (last writer wins)
// but never over a pending one: that attempt has not started and still has to run with its own
// input. A run that was reaped while in flight keeps the reaped failure.
func (s *Service) execute(ctx context.Context, r run) (*types.TailoredResume, error) {
	ctx = context.WithoutCancel(ctx)
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	content, runErr := s.tailorer.Tailor(callCtx, r.input)
	var analytics types.MatchAnalytics
	if runErr == nil {
		analytics = Analyze(r.input.Description, content)
	}

	var (
		out       *types.TailoredResume
		discarded bool
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		j, err := tx.GetJobForUpdate(ctx, r.jobID)
		if err != nil {
			return err
		}
		tr, err := tx.GetTailoredResumeForUpdate(ctx, r.jobID)
		if err != nil {
			return err
		}
		if tr == nil {
			return apperrors.NotFound("tailoring record for job %s disappeared", r.jobID)
		}
		switch {
		case tr.Attempt != r.attempt && tr.Status == types.TailorStatusPending:
			s.logger.WarnContext(ctx, "discarding superseded tailoring result", "job_id", r.jobID, "attempt", r.attempt, "current_attempt", tr.Attempt)
			out, discarded = tr, true
			return nil
		case tr.Attempt == r.attempt && tr.Status.Terminal():
			s.logger.WarnContext(ctx, "discarding result of a reaped tailoring run", "job_id", r.jobID, "attempt", r.attempt)
			out, discarded = tr, true
			return nil
		case tr.Attempt != r.attempt:
			s.logger.WarnContext(ctx, "superseded tailoring run finished", "job_id", r.jobID, "attempt", r.attempt, "current_attempt", tr.Attempt)
		}

		var failure string
		if runErr != nil {
			failure = failureMessage("tailoring", runErr, s.timeout)
		}
		if err := finish(ctx, tx, j, tr, content, &analytics, failure, s.now()); err != nil {
			return err
		}
		out = tr
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record tailoring outcome: %w", err)
	}
	if discarded {
		return out, nil
	}

	if runErr != nil {
		s.logger.WarnContext(ctx, "tailoring failed", "job_id", r.jobID, "attempt", r.attempt, "duration", s.now().Sub(start), "error", runErr)
	} else {
		s.logger.InfoContext(ctx, "tailoring completed", "job_id", r.jobID, "attempt", r.attempt, "duration", s.now().Sub(start), "score", analytics.Score)
	}
	s.remember(ctx, out)
	return out, nil
}

// finish writes a terminal outcome to the record and mirrors it onto the job. An empty failure
// means the run completed with content.
func finish(ctx context.Context, tx store.Tx, j *types.Job, tr *types.TailoredResume, content *types.TailoredContent, analytics *types.MatchAnalytics, failure string, now time.Time) error {
	tr.UpdatedAt = now
	if failure != "" {
		tr.Status = types.TailorStatusFailed
		tr.ErrorMessage = &failure
		tr.Content = nil
		tr.Analytics = nil
		tr.CompletedAt = nil
	} else {
		tr.Status = types.TailorStatusCompleted
		tr.ErrorMessage = nil
		tr.Content = content
		tr.Analytics = analytics
		tr.CompletedAt = &now
	}

	if j.Status == types.JobStatusTailoring {
		to := types.JobStatusTailored
		if failure != "" {
			to = types.JobStatusSaved
		}
		if err := jobs.Transition(j, to, now); err != nil {
			return err
		}
	}
	j.TailoredStatus = tr.Status
	j.UpdatedAt = now
	if err := tx.UpdateJob(ctx, j); err != nil {
		return err
	}
	return tx.SaveTailoredResume(ctx, tr)
}

// ReapStale fails runs that have been processing since before the stale cutoff, which happens
// when a worker dies mid-run or cannot record its outcome. It returns how many runs it failed.
func (s *Service) ReapStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.staleAfter)
	ids, err := s.store.StaleTailoring(ctx, cutoff, reapBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale tailoring runs: %w", err)
	}
	reaped := 0
	for _, id := range ids {
		tr, err := s.reap(ctx, id, cutoff)
		if err != nil {
			return reaped, err
		}
		if tr == nil {
			continue
		}
		reaped++
		s.logger.WarnContext(ctx, "reaped stale tailoring run", "job_id", id, "attempt", tr.Attempt)
		s.remember(ctx, tr)
	}
	return reaped, nil
}

func (s *Service) reap(ctx context.Context, jobID uuid.UUID, cutoff time.Time) (*types.TailoredResume, error) {
	var out *types.TailoredResume
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		j, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		tr, err := tx.GetTailoredResumeForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		// Re-checked under the lock: the run may have finished since it was listed.
		if tr == nil || tr.Status != types.TailorStatusProcessing || !tr.UpdatedAt.Before(cutoff) {
			return nil
		}
		if err := finish(ctx, tx, j, tr, nil, nil, staleFailure, s.now()); err != nil {
			return err
		}
		out = tr
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reap tailoring run for job %s: %w", jobID, err)
	}
	return out, nil
}

// ProcessNext reserves the oldest pending run, if any, and executes it.
// It reports whether a run was found.
func (s *Service) ProcessNext(ctx context.Context) (bool, error) {
	var (
		r     run
		found bool
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		j, err := tx.NextPendingTailoring(ctx)
		if err != nil || j == nil {
			return err
		}
		tr, err := tx.GetTailoredResumeForUpdate(ctx, j.ID)
		if err != nil {
			return err
		}
		if tr == nil || tr.Status != types.TailorStatusPending {
			return nil
		}
		resume, err := tx.GetResume(ctx, tr.ResumeID)
		if err != nil {
			return err
		}

		now := s.now()
		tr.Status = types.TailorStatusProcessing
		tr.UpdatedAt = now
		j.TailoredStatus = tr.Status
		j.UpdatedAt = now
		if err := tx.UpdateJob(ctx, j); err != nil {
			return err
		}
		if err := tx.SaveTailoredResume(ctx, tr); err != nil {
			return err
		}
		r = run{jobID: j.ID, attempt: tr.Attempt, input: inputFor(j, resume)}
		found = true
		return nil
	})
	if err != nil || !found {
		return false, err
	}
	_, err = s.execute(ctx, r)
	return true, err
}

// notify wakes one idle worker in this process.
func (s *Service) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) remember(ctx context.Context, tr *types.TailoredResume) {
	if s.cache == nil || tr == nil || !tr.Status.Terminal() {
		return
	}
	if err := s.cache.Set(ctx, tr); err != nil {
		s.logger.WarnContext(ctx, "status cache write failed", "job_id", tr.JobID, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, jobID uuid.UUID, attempt int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, jobID, attempt); err != nil {
		s.logger.WarnContext(ctx, "status cache invalidate failed", "job_id", jobID, "error", err)
	}
}

// authorizeWrite admits the owner (or an admin) on an undelegated job and only the assignee on
// a delegated one. ownerDriven reports which case applied.
func authorizeWrite(actor types.Actor, j *types.Job) (ownerDriven bool, err error) {
	if j.Status == types.JobStatusDelegated {
		return false, claims.RequireAssignee(j, actor)
	}
	if actor.Owns(j) || actor.IsAdmin() {
		return true, nil
	}
	return false, apperrors.Forbidden("job %s belongs to another user", j.ID)
}

func authorizeRead(actor types.Actor, j *types.Job) error {
	if actor.Owns(j) || actor.IsAdmin() {
		return nil
	}
	if actor.IsAgent() && j.DelegatedJobID != nil {
		return nil
	}
	return apperrors.Forbidden("job %s belongs to another user", j.ID)
}

func ownedResume(ctx context.Context, tx store.Tx, resumeID, userID uuid.UUID) (*types.Resume, error) {
	r, err := tx.GetResume(ctx, resumeID)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		return nil, apperrors.MissingPrerequisite("resume_id", "selected resume does not exist")
	}
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, apperrors.Validation("resume_id", "resume belongs to another user")
	}
	return r, nil
}

func inputFor(j *types.Job, r *types.Resume) Input {
	return Input{JobTitle: j.Title, Company: j.Company, Description: j.Description, Resume: r.Content}
}

func failureMessage(what string, err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s timed out after %s", what, timeout)
	}
	return err.Error()
}
