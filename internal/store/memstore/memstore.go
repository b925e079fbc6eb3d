// Package memstore is an in-memory store.Store. A single mutex serializes transactions, so every
// transaction observes and commits a consistent snapshot. Writes are staged on the transaction and
// only published on commit.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/types"
)

// Store implements store.Store in memory.
type Store struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*types.Job
	codes    map[string]uuid.UUID
	tailored map[uuid.UUID]*types.TailoredResume // keyed by job ID
	resumes  map[uuid.UUID]*types.Resume
	accounts map[uuid.UUID]*types.CreditAccount
	now      func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		jobs:     make(map[uuid.UUID]*types.Job),
		codes:    make(map[string]uuid.UUID),
		tailored: make(map[uuid.UUID]*types.TailoredResume),
		resumes:  make(map[uuid.UUID]*types.Resume),
		accounts: make(map[uuid.UUID]*types.CreditAccount),
		now:      time.Now,
	}
}

// WithTx runs fn with exclusive access to the store and commits its staged writes on success.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTx(s)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// GetJob returns a copy of the job.
func (s *Store) GetJob(_ context.Context, id uuid.UUID) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.NotFound("job %s not found", id)
	}
	return j.Clone(), nil
}

// GetJobByDelegatedCode returns a copy of the job carrying the code.
func (s *Store) GetJobByDelegatedCode(_ context.Context, code string) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.codes[code]
	if !ok {
		return nil, apperrors.NotFound("no job carries delegation code %s", code)
	}
	return s.jobs[id].Clone(), nil
}

// ListJobs returns copies of matching jobs, newest first.
func (s *Store) ListJobs(_ context.Context, filter store.JobFilter) ([]*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.Job
	for _, j := range s.jobs {
		if filter.UserID != nil && j.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && j.Status != *filter.Status {
			continue
		}
		out = append(out, j.Clone())
	}
	slices.SortFunc(out, func(a, b *types.Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return truncate(out, store.EffectiveLimit(filter.Limit)), nil
}

// ListTasks returns delegated jobs ordered by priority (high first) then delegation time.
func (s *Store) ListTasks(_ context.Context, filter store.TaskFilter) ([]*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.Job
	for _, j := range s.jobs {
		if j.Status != types.JobStatusDelegated {
			continue
		}
		if filter.Unassigned && j.AssignedTo != nil {
			continue
		}
		if filter.AssignedTo != nil && !j.IsAssignedTo(*filter.AssignedTo) {
			continue
		}
		out = append(out, j.Clone())
	}
	slices.SortFunc(out, compareTasks)
	return truncate(out, store.EffectiveLimit(filter.Limit)), nil
}

// GetTailoredResume returns a copy of the job's tailoring record, or nil.
func (s *Store) GetTailoredResume(_ context.Context, jobID uuid.UUID) (*types.TailoredResume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tailored[jobID].Clone(), nil
}

// StaleTailoring returns job IDs of records processing since before the cutoff, oldest first.
func (s *Store) StaleTailoring(_ context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*types.TailoredResume
	for _, tr := range s.tailored {
		if tr.Status == types.TailorStatusProcessing && tr.UpdatedAt.Before(before) {
			stale = append(stale, tr)
		}
	}
	slices.SortFunc(stale, func(a, b *types.TailoredResume) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	})
	stale = truncate(stale, store.EffectiveLimit(limit))
	ids := make([]uuid.UUID, len(stale))
	for i, tr := range stale {
		ids[i] = tr.JobID
	}
	return ids, nil
}

// GetResume returns a copy of the resume.
func (s *Store) GetResume(_ context.Context, id uuid.UUID) (*types.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resumes[id]
	if !ok {
		return nil, apperrors.NotFound("resume %s not found", id)
	}
	cp := *r
	return &cp, nil
}

// GetAccount returns the user's account or a zero-balance one.
func (s *Store) GetAccount(_ context.Context, userID uuid.UUID) (*types.CreditAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[userID]; ok {
		cp := *a
		return &cp, nil
	}
	return &types.CreditAccount{UserID: userID}, nil
}

// Close is a no-op.
func (s *Store) Close() {}

func compareTasks(a, b *types.Job) int {
	if c := cmp.Compare(b.Priority.Rank(), a.Priority.Rank()); c != 0 {
		return c
	}
	at, bt := time.Time{}, time.Time{}
	if a.DelegatedAt != nil {
		at = *a.DelegatedAt
	}
	if b.DelegatedAt != nil {
		bt = *b.DelegatedAt
	}
	if c := at.Compare(bt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

func truncate[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
