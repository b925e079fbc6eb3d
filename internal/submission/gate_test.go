package submission

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/store/memstore"
	"github.com/jonathan/applydesk/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	gate  *Gate
	store *memstore.Store
	agent types.Actor
	owner uuid.UUID
}

func newFixture(t *testing.T, balance int, requireCustom bool) *fixture {
	t.Helper()
	st := memstore.New()
	g, err := NewGate(Options{Store: st})
	require.NoError(t, err)

	f := &fixture{
		gate:  g,
		store: st,
		agent: types.Actor{ID: uuid.New(), Name: "Agent A", Role: types.RoleAgent},
		owner: uuid.New(),
	}
	ctx := context.Background()
	require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
		if balance > 0 {
			if _, err := tx.GrantCredits(ctx, f.owner, balance); err != nil {
				return err
			}
		}
		_, err := tx.SetAccountFlags(ctx, f.owner, requireCustom)
		return err
	}))
	return f
}

// claimedJob inserts a delegated job claimed by the fixture's agent.
func (f *fixture) claimedJob(t *testing.T) *types.Job {
	t.Helper()
	j := &types.Job{
		ID:             uuid.New(),
		UserID:         f.owner,
		Title:          "Engineer",
		Company:        "Acme",
		Status:         types.JobStatusDelegated,
		DelegatedJobID: types.Ptr(uuid.NewString()[:6]),
		AssignedTo:     &f.agent.ID,
		Priority:       types.PriorityNormal,
	}
	ctx := context.Background()
	require.NoError(t, f.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertJob(ctx, j)
	}))
	return j
}

func (f *fixture) balance(t *testing.T) int {
	t.Helper()
	acct, err := f.store.GetAccount(context.Background(), f.owner)
	require.NoError(t, err)
	return acct.Balance
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t, 2, false)
	j := f.claimedJob(t)

	got, err := f.gate.Submit(context.Background(), f.agent, j.ID, &types.ProofRequest{SubmissionProof: "proofs/1.png"})
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusApplied, got.Status)
	assert.NotNil(t, got.AppliedAt)
	assert.Equal(t, "proofs/1.png", *got.SubmissionProof)
	assert.Equal(t, 1, got.Credits)
	assert.Equal(t, 1, f.balance(t))
}

func TestSubmit_ZeroCreditsNoPartialMutation(t *testing.T) {
	f := newFixture(t, 0, false)
	j := f.claimedJob(t)
	ctx := context.Background()

	_, err := f.gate.Submit(ctx, f.agent, j.ID, &types.ProofRequest{SubmissionProof: "proofs/1.png"})
	require.True(t, apperrors.Is(err, apperrors.CodeInsufficientCredit))

	stored, err := f.store.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusDelegated, stored.Status)
	assert.Nil(t, stored.SubmissionProof)
	assert.Nil(t, stored.AppliedAt)
	assert.Equal(t, 0, f.balance(t))
}

func TestSubmit_SpecificPreconditionFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing proof", func(t *testing.T) {
		f := newFixture(t, 1, false)
		j := f.claimedJob(t)
		_, err := f.gate.Submit(ctx, f.agent, j.ID, &types.ProofRequest{})
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeMissingPrerequisite, appErr.Code)
		assert.Equal(t, "submission_proof", appErr.Field)
		assert.Equal(t, 1, f.balance(t))
	})

	t.Run("custom resume required", func(t *testing.T) {
		f := newFixture(t, 1, true)
		j := f.claimedJob(t)
		_, err := f.gate.Submit(ctx, f.agent, j.ID, &types.ProofRequest{SubmissionProof: "p"})
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeMissingPrerequisite, appErr.Code)
		assert.Equal(t, "custom_resume_proof", appErr.Field)

		got, err := f.gate.Submit(ctx, f.agent, j.ID, &types.ProofRequest{SubmissionProof: "p", CustomResumeProof: "cr"})
		require.NoError(t, err)
		assert.Equal(t, "cr", *got.CustomResumeProof)
	})

	t.Run("other agent", func(t *testing.T) {
		f := newFixture(t, 1, false)
		j := f.claimedJob(t)
		other := types.Actor{ID: uuid.New(), Role: types.RoleAgent}
		_, err := f.gate.Submit(ctx, other, j.ID, &types.ProofRequest{SubmissionProof: "p"})
		assert.True(t, apperrors.Is(err, apperrors.CodeNotAssignee))
	})

	// Claim first: an unassigned task is never implicitly claimed by submitting it.
	t.Run("unassigned task", func(t *testing.T) {
		f := newFixture(t, 1, false)
		j := f.claimedJob(t)
		require.NoError(t, f.store.WithTx(ctx, func(tx store.Tx) error {
			cur, err := tx.GetJobForUpdate(ctx, j.ID)
			if err != nil {
				return err
			}
			cur.AssignedTo = nil
			return tx.UpdateJob(ctx, cur)
		}))

		_, err := f.gate.Submit(ctx, f.agent, j.ID, &types.ProofRequest{SubmissionProof: "p"})
		assert.True(t, apperrors.Is(err, apperrors.CodeNotAssignee))
		stored, err := f.store.GetJob(ctx, j.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.AssignedTo)
		assert.Equal(t, 1, f.balance(t))
	})

	t.Run("not delegated", func(t *testing.T) {
		f := newFixture(t, 1, false)
		j := f.claimedJob(t)
		_, err := f.gate.Submit(ctx, f.agent, j.ID, &types.ProofRequest{SubmissionProof: "p"})
		require.NoError(t, err)
		_, err = f.gate.Submit(ctx, f.agent, j.ID, &types.ProofRequest{SubmissionProof: "p"})
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidTransition))
	})
}

func TestSubmit_UsesAttachedProof(t *testing.T) {
	f := newFixture(t, 1, false)
	j := f.claimedJob(t)
	ctx := context.Background()

	_, err := f.gate.AttachProof(ctx, f.agent, j.ID, &types.ProofRequest{SubmissionProof: "proofs/attached.png"})
	require.NoError(t, err)

	got, err := f.gate.Submit(ctx, f.agent, j.ID, &types.ProofRequest{})
	require.NoError(t, err)
	assert.Equal(t, "proofs/attached.png", *got.SubmissionProof)
}

func TestSubmit_ConcurrentAgainstBalance(t *testing.T) {
	const balance, n = 3, 12
	f := newFixture(t, balance, false)
	ctx := context.Background()

	jobs := make([]*types.Job, n)
	for i := range jobs {
		jobs[i] = f.claimedJob(t)
	}

	var ok, insufficient atomic.Int32
	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.gate.Submit(ctx, f.agent, j.ID, &types.ProofRequest{SubmissionProof: "p"})
			switch {
			case err == nil:
				ok.Add(1)
			case apperrors.Is(err, apperrors.CodeInsufficientCredit):
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(balance), ok.Load())
	assert.Equal(t, int32(n-balance), insufficient.Load())
	assert.Equal(t, 0, f.balance(t))

	applied := 0
	for _, j := range jobs {
		stored, err := f.store.GetJob(ctx, j.ID)
		require.NoError(t, err)
		if stored.Status == types.JobStatusApplied {
			applied++
			assert.NotNil(t, stored.SubmissionProof)
		} else {
			assert.Nil(t, stored.SubmissionProof)
		}
	}
	assert.Equal(t, balance, applied)
}

func TestAttachProof(t *testing.T) {
	f := newFixture(t, 0, false)
	j := f.claimedJob(t)
	ctx := context.Background()

	_, err := f.gate.AttachProof(ctx, f.agent, j.ID, &types.ProofRequest{})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = f.gate.AttachProof(ctx, types.Actor{ID: uuid.New(), Role: types.RoleAdmin}, j.ID, &types.ProofRequest{SubmissionProof: "x"})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotAssignee))

	got, err := f.gate.AttachProof(ctx, f.agent, j.ID, &types.ProofRequest{CustomResumeProof: "cr"})
	require.NoError(t, err)
	assert.Nil(t, got.SubmissionProof)
	assert.Equal(t, "cr", *got.CustomResumeProof)
	assert.Equal(t, types.JobStatusDelegated, got.Status)
}

func TestReportCannotApply(t *testing.T) {
	f := newFixture(t, 1, false)
	j := f.claimedJob(t)
	ctx := context.Background()

	_, err := f.gate.ReportCannotApply(ctx, f.agent, j.ID, &types.CannotApplyRequest{})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	got, err := f.gate.ReportCannotApply(ctx, f.agent, j.ID, &types.CannotApplyRequest{Reason: "posting expired"})
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusTrashed, got.Status)
	assert.Equal(t, "posting expired", *got.CannotApplyReason)
	assert.NotNil(t, got.TrashedAt)
	assert.Equal(t, 1, f.balance(t), "no credit consumed")
}
