// Package store defines the persistence contract shared by the PostgreSQL and in-memory backends.
//
// Every mutation happens inside WithTx. Implementations guarantee that rows read through a Tx
// "ForUpdate" method stay locked until the transaction ends, which makes per-job transitions
// linearizable and turns read-decide-write sequences into compare-and-set operations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/types"
)

// Store is a transactional job/tailoring/credit store.
type Store interface {
	// WithTx runs fn in a transaction. If fn returns an error nothing it wrote is kept.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// GetJob returns a snapshot of a job or a not_found AppError.
	GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error)
	// GetJobByDelegatedCode returns the job carrying the delegation code or a not_found AppError.
	GetJobByDelegatedCode(ctx context.Context, code string) (*types.Job, error)
	// ListJobs returns jobs matching the filter, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*types.Job, error)
	// ListTasks returns delegated jobs ordered by priority then delegation time.
	ListTasks(ctx context.Context, filter TaskFilter) ([]*types.Job, error)
	// GetTailoredResume returns the job's tailoring record, or nil if it was never tailored.
	GetTailoredResume(ctx context.Context, jobID uuid.UUID) (*types.TailoredResume, error)
	// StaleTailoring returns the job IDs of up to limit records that have been processing since
	// before the cutoff, oldest first.
	StaleTailoring(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
	// GetResume returns a resume or a not_found AppError.
	GetResume(ctx context.Context, id uuid.UUID) (*types.Resume, error)
	// GetAccount returns the user's credit account; users without one have a zero balance.
	GetAccount(ctx context.Context, userID uuid.UUID) (*types.CreditAccount, error)

	Close()
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	// GetJobForUpdate locks the job row until the transaction ends.
	GetJobForUpdate(ctx context.Context, id uuid.UUID) (*types.Job, error)
	InsertJob(ctx context.Context, job *types.Job) error
	UpdateJob(ctx context.Context, job *types.Job) error
	// DelegatedCodeExists reports whether any job already carries the code.
	DelegatedCodeExists(ctx context.Context, code string) (bool, error)

	// NextPendingTailoring locks and returns the job whose tailoring record has waited longest
	// in pending, skipping rows locked by other workers. Returns nil when there is none.
	NextPendingTailoring(ctx context.Context) (*types.Job, error)
	// GetTailoredResumeForUpdate locks the job's tailoring record. Returns nil if none exists.
	GetTailoredResumeForUpdate(ctx context.Context, jobID uuid.UUID) (*types.TailoredResume, error)
	// SaveTailoredResume inserts or overwrites the job's tailoring record.
	SaveTailoredResume(ctx context.Context, tr *types.TailoredResume) error

	GetResume(ctx context.Context, id uuid.UUID) (*types.Resume, error)
	InsertResume(ctx context.Context, r *types.Resume) error

	GetAccount(ctx context.Context, userID uuid.UUID) (*types.CreditAccount, error)
	// DebitCredits atomically checks balance >= amount and decrements it, returning the new
	// balance. It fails with insufficient_credit and changes nothing otherwise.
	DebitCredits(ctx context.Context, userID uuid.UUID, amount int) (int, error)
	// GrantCredits adds amount to the balance, creating the account if needed.
	GrantCredits(ctx context.Context, userID uuid.UUID, amount int) (int, error)
	SetAccountFlags(ctx context.Context, userID uuid.UUID, requireCustomResume bool) (*types.CreditAccount, error)
}

// JobFilter narrows ListJobs.
type JobFilter struct {
	UserID *uuid.UUID
	Status *types.JobStatus
	Limit  int
}

// TaskFilter narrows ListTasks. With neither field set every delegated job is returned.
type TaskFilter struct {
	// Unassigned restricts to tasks nobody has claimed.
	Unassigned bool
	// AssignedTo restricts to tasks claimed by one agent.
	AssignedTo *uuid.UUID
	Limit      int
}

// DefaultLimit caps list queries that do not set one.
const DefaultLimit = 100

// EffectiveLimit returns limit, or DefaultLimit when limit is not positive.
func EffectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
