package memstore

import (
	"context"
	"maps"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/types"
)

// tx stages writes over the committed maps. The store mutex is held for its whole life.
type tx struct {
	s        *Store
	jobs     map[uuid.UUID]*types.Job
	tailored map[uuid.UUID]*types.TailoredResume
	resumes  map[uuid.UUID]*types.Resume
	accounts map[uuid.UUID]*types.CreditAccount
}

var _ store.Tx = (*tx)(nil)

func newTx(s *Store) *tx {
	return &tx{
		s:        s,
		jobs:     make(map[uuid.UUID]*types.Job),
		tailored: make(map[uuid.UUID]*types.TailoredResume),
		resumes:  make(map[uuid.UUID]*types.Resume),
		accounts: make(map[uuid.UUID]*types.CreditAccount),
	}
}

func (t *tx) commit() {
	for id, j := range t.jobs {
		if old, ok := t.s.jobs[id]; ok && old.DelegatedJobID != nil {
			delete(t.s.codes, *old.DelegatedJobID)
		}
		if j.DelegatedJobID != nil {
			t.s.codes[*j.DelegatedJobID] = id
		}
		t.s.jobs[id] = j
	}
	maps.Copy(t.s.tailored, t.tailored)
	maps.Copy(t.s.resumes, t.resumes)
	maps.Copy(t.s.accounts, t.accounts)
}

func (t *tx) job(id uuid.UUID) (*types.Job, bool) {
	if j, ok := t.jobs[id]; ok {
		return j, true
	}
	j, ok := t.s.jobs[id]
	return j, ok
}

func (t *tx) GetJobForUpdate(_ context.Context, id uuid.UUID) (*types.Job, error) {
	j, ok := t.job(id)
	if !ok {
		return nil, apperrors.NotFound("job %s not found", id)
	}
	return j.Clone(), nil
}

func (t *tx) InsertJob(_ context.Context, job *types.Job) error {
	if _, ok := t.job(job.ID); ok {
		return apperrors.Conflict("job %s already exists", job.ID)
	}
	if err := t.checkCode(job); err != nil {
		return err
	}
	t.jobs[job.ID] = job.Clone()
	return nil
}

func (t *tx) UpdateJob(_ context.Context, job *types.Job) error {
	if _, ok := t.job(job.ID); !ok {
		return apperrors.NotFound("job %s not found", job.ID)
	}
	if err := t.checkCode(job); err != nil {
		return err
	}
	t.jobs[job.ID] = job.Clone()
	return nil
}

// checkCode mirrors the unique index on delegated_job_id.
func (t *tx) checkCode(job *types.Job) error {
	if job.DelegatedJobID == nil {
		return nil
	}
	if owner, ok := t.codeOwner(*job.DelegatedJobID); ok && owner != job.ID {
		return &apperrors.AppError{
			Code:    apperrors.CodeConflict,
			Message: "value already exists",
			Field:   "delegated_job_id",
		}
	}
	return nil
}

func (t *tx) codeOwner(code string) (uuid.UUID, bool) {
	for id, j := range t.jobs {
		if j.DelegatedJobID != nil && *j.DelegatedJobID == code {
			return id, true
		}
	}
	id, ok := t.s.codes[code]
	if !ok {
		return uuid.Nil, false
	}
	// The committed owner may have been rewritten in this transaction.
	if staged, ok := t.jobs[id]; ok && (staged.DelegatedJobID == nil || *staged.DelegatedJobID != code) {
		return uuid.Nil, false
	}
	return id, true
}

func (t *tx) DelegatedCodeExists(_ context.Context, code string) (bool, error) {
	_, ok := t.codeOwner(code)
	return ok, nil
}

func (t *tx) tailoredFor(jobID uuid.UUID) *types.TailoredResume {
	if tr, ok := t.tailored[jobID]; ok {
		return tr
	}
	return t.s.tailored[jobID]
}

func (t *tx) NextPendingTailoring(_ context.Context) (*types.Job, error) {
	var oldest *types.TailoredResume
	seen := make(map[uuid.UUID]bool)
	consider := func(tr *types.TailoredResume) {
		if seen[tr.JobID] {
			return
		}
		seen[tr.JobID] = true
		if tr.Status != types.TailorStatusPending {
			return
		}
		if oldest == nil || tr.UpdatedAt.Before(oldest.UpdatedAt) {
			oldest = tr
		}
	}
	for _, tr := range t.tailored {
		consider(tr)
	}
	for _, tr := range t.s.tailored {
		consider(tr)
	}
	if oldest == nil {
		return nil, nil
	}
	j, ok := t.job(oldest.JobID)
	if !ok {
		return nil, nil
	}
	return j.Clone(), nil
}

func (t *tx) GetTailoredResumeForUpdate(_ context.Context, jobID uuid.UUID) (*types.TailoredResume, error) {
	return t.tailoredFor(jobID).Clone(), nil
}

func (t *tx) SaveTailoredResume(_ context.Context, tr *types.TailoredResume) error {
	if _, ok := t.job(tr.JobID); !ok {
		return apperrors.Validation("job_id", "referenced record does not exist")
	}
	t.tailored[tr.JobID] = tr.Clone()
	return nil
}

func (t *tx) GetResume(_ context.Context, id uuid.UUID) (*types.Resume, error) {
	r, ok := t.resumes[id]
	if !ok {
		r, ok = t.s.resumes[id]
	}
	if !ok {
		return nil, apperrors.NotFound("resume %s not found", id)
	}
	cp := *r
	return &cp, nil
}

func (t *tx) InsertResume(_ context.Context, r *types.Resume) error {
	cp := *r
	t.resumes[r.ID] = &cp
	return nil
}

func (t *tx) account(userID uuid.UUID) *types.CreditAccount {
	if a, ok := t.accounts[userID]; ok {
		cp := *a
		return &cp
	}
	if a, ok := t.s.accounts[userID]; ok {
		cp := *a
		return &cp
	}
	return &types.CreditAccount{UserID: userID}
}

func (t *tx) GetAccount(_ context.Context, userID uuid.UUID) (*types.CreditAccount, error) {
	return t.account(userID), nil
}

func (t *tx) DebitCredits(_ context.Context, userID uuid.UUID, amount int) (int, error) {
	a := t.account(userID)
	if a.Balance < amount {
		return a.Balance, apperrors.InsufficientCredit("balance %d cannot cover %d credit(s)", a.Balance, amount)
	}
	a.Balance -= amount
	a.UpdatedAt = t.s.now()
	t.accounts[userID] = a
	return a.Balance, nil
}

func (t *tx) GrantCredits(_ context.Context, userID uuid.UUID, amount int) (int, error) {
	a := t.account(userID)
	a.Balance += amount
	a.UpdatedAt = t.s.now()
	t.accounts[userID] = a
	return a.Balance, nil
}

func (t *tx) SetAccountFlags(_ context.Context, userID uuid.UUID, requireCustomResume bool) (*types.CreditAccount, error) {
	a := t.account(userID)
	a.RequireCustomResume = requireCustomResume
	a.UpdatedAt = t.s.now()
	t.accounts[userID] = a
	cp := *a
	return &cp, nil
}
