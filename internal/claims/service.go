package claims

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/jobs"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/types"
)

// Options groups dependencies for Service.
type Options struct {
	Store  store.Store      // Required
	Logger *slog.Logger     // Optional: structured logger
	Now    func() time.Time // Optional: defaults to time.Now
}

// Service exposes claims and the agent task queue.
type Service struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(opts Options) (*Service, error) {
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
	return &Service{store: opts.Store, logger: logger.With("component", "claims"), now: now}, nil
}

// Claim assigns the task to the acting agent.
func (s *Service) Claim(ctx context.Context, agent types.Actor, jobID uuid.UUID) (*types.DelegationTask, error) {
	var task types.DelegationTask
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		j, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if err := Claim(j, agent, s.now()); err != nil {
			return err
		}
		if err := tx.UpdateJob(ctx, j); err != nil {
			return err
		}
		acct, err := tx.GetAccount(ctx, j.UserID)
		if err != nil {
			return err
		}
		task = types.NewDelegationTask(j, acct)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "task claimed", "job_id", jobID, "agent_id", agent.ID)
	return &task, nil
}

// Unassign releases the task's claim.
func (s *Service) Unassign(ctx context.Context, actor types.Actor, jobID uuid.UUID) (*types.DelegationTask, error) {
	var (
		task    types.DelegationTask
		changed bool
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		j, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if changed, err = Unassign(j, actor, s.now()); err != nil {
			return err
		}
		if changed {
			if err := tx.UpdateJob(ctx, j); err != nil {
				return err
			}
		}
		acct, err := tx.GetAccount(ctx, j.UserID)
		if err != nil {
			return err
		}
		task = types.NewDelegationTask(j, acct)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.InfoContext(ctx, "task unassigned", "job_id", jobID, "by", actor.ID, "admin", actor.IsAdmin())
	}
	return &task, nil
}

// QueueFilter narrows ListQueue.
type QueueFilter struct {
	// Mine lists the acting agent's claimed tasks instead of the open pool.
	Mine  bool
	Limit int
}

// ListQueue returns open delegated tasks, or the agent's own, with credits read through from
// each owner's account.
func (s *Service) ListQueue(ctx context.Context, agent types.Actor, filter QueueFilter) ([]types.DelegationTask, error) {
	if !agent.IsAgent() {
		return nil, apperrors.Forbidden("only agents can list tasks")
	}
	tf := store.TaskFilter{Unassigned: !filter.Mine, Limit: filter.Limit}
	if filter.Mine {
		tf.AssignedTo = &agent.ID
	}
	found, err := s.store.ListTasks(ctx, tf)
	if err != nil {
		return nil, err
	}

	accounts := make(map[uuid.UUID]*types.CreditAccount)
	tasks := make([]types.DelegationTask, 0, len(found))
	for _, j := range found {
		acct, ok := accounts[j.UserID]
		if !ok {
			if acct, err = s.store.GetAccount(ctx, j.UserID); err != nil {
				return nil, err
			}
			accounts[j.UserID] = acct
		}
		tasks = append(tasks, types.NewDelegationTask(j, acct))
	}
	return tasks, nil
}

// GetTask returns the task view of a delegated job to agents and to the job's owner.
func (s *Service) GetTask(ctx context.Context, actor types.Actor, jobID uuid.UUID) (*types.DelegationTask, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.taskView(ctx, actor, j)
}

// GetTaskByCode is GetTask for the human-readable delegation code.
func (s *Service) GetTaskByCode(ctx context.Context, actor types.Actor, code string) (*types.DelegationTask, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !jobs.IsDelegationCode(code) {
		return nil, apperrors.Validation("code", "must be a 6-character delegation code")
	}
	j, err := s.store.GetJobByDelegatedCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.taskView(ctx, actor, j)
}

func (s *Service) taskView(ctx context.Context, actor types.Actor, j *types.Job) (*types.DelegationTask, error) {
	if !actor.IsAgent() && !actor.Owns(j) {
		return nil, apperrors.Forbidden("task %s is not visible to you", j.ID)
	}
	if j.DelegatedJobID == nil {
		return nil, apperrors.NotFound("job %s has never been delegated", j.ID)
	}
	acct, err := s.store.GetAccount(ctx, j.UserID)
	if err != nil {
		return nil, err
	}
	task := types.NewDelegationTask(j, acct)
	return &task, nil
}
