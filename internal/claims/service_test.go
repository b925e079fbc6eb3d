package claims

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/store/memstore"
	"github.com/jonathan/applydesk/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	svc, err := NewService(Options{Store: st})
	require.NoError(t, err)
	return svc, st
}

func seed(t *testing.T, st store.Store, jobs ...*types.Job) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
		for _, j := range jobs {
			if j.DelegatedJobID == nil {
				j.DelegatedJobID = types.Ptr(j.ID.String()[:6])
			}
			if err := tx.InsertJob(ctx, j); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestService_ConcurrentClaimSingleWinner(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	j := delegatedJob()
	seed(t, st, j)

	const n = 50
	var wins, lost atomic.Int32
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Claim(ctx, agentActor("agent"+string(rune('A'+i%26))), j.ID)
			switch {
			case err == nil:
				wins.Add(1)
			case apperrors.Is(err, apperrors.CodeAlreadyAssigned):
				lost.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), lost.Load())
}

func TestService_ClaimScenario(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	j := delegatedJob()
	seed(t, st, j)
	a, b := agentActor("A"), agentActor("B")

	task, err := svc.Claim(ctx, a, j.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, *task.AssignedTo)

	_, err = svc.Claim(ctx, b, j.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeAlreadyAssigned))

	_, err = svc.Unassign(ctx, b, j.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotAssignee))

	task, err = svc.Unassign(ctx, a, j.ID)
	require.NoError(t, err)
	assert.Nil(t, task.AssignedTo)

	task, err = svc.Unassign(ctx, a, j.ID)
	require.NoError(t, err, "unassigning an open task is a no-op")
	assert.Nil(t, task.AssignedTo)

	_, err = svc.Claim(ctx, b, j.ID)
	assert.NoError(t, err)
}

func TestService_ListQueue(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	agent := agentActor("A")
	base := time.Now()

	open1, open2, mine := delegatedJob(), delegatedJob(), delegatedJob()
	open1.DelegatedAt = types.Ptr(base)
	open2.DelegatedAt = types.Ptr(base.Add(time.Minute))
	open2.Priority = types.PriorityHigh
	open1.Priority, mine.Priority = types.PriorityNormal, types.PriorityNormal
	mine.AssignedTo = &agent.ID
	mine.UserID = open1.UserID
	seed(t, st, open1, open2, mine)

	require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.GrantCredits(ctx, open1.UserID, 4)
		return err
	}))

	queue, err := svc.ListQueue(ctx, agent, QueueFilter{})
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, open2.ID, queue[0].JobID, "high priority first")
	assert.Equal(t, 0, queue[0].Credits)
	assert.Equal(t, 4, queue[1].Credits)

	own, err := svc.ListQueue(ctx, agent, QueueFilter{Mine: true})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].JobID)
	assert.Equal(t, 4, own[0].Credits)

	_, err = svc.ListQueue(ctx, types.Actor{ID: uuid.New(), Role: types.RoleUser}, QueueFilter{})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestService_GetTask(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	j := delegatedJob()
	seed(t, st, j)

	task, err := svc.GetTask(ctx, agentActor("A"), j.ID)
	require.NoError(t, err)
	assert.Equal(t, *j.DelegatedJobID, task.DelegatedJobID)

	_, err = svc.GetTask(ctx, types.Actor{ID: j.UserID, Role: types.RoleUser}, j.ID)
	assert.NoError(t, err)

	_, err = svc.GetTask(ctx, types.Actor{ID: uuid.New(), Role: types.RoleUser}, j.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestService_GetTaskByCode(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	j := delegatedJob()
	j.DelegatedJobID = types.Ptr("K7Q2ZD")
	seed(t, st, j)

	task, err := svc.GetTaskByCode(ctx, agentActor("A"), " k7q2zd ")
	require.NoError(t, err)
	assert.Equal(t, j.ID, task.JobID)
	assert.Equal(t, "K7Q2ZD", task.DelegatedJobID)

	_, err = svc.GetTaskByCode(ctx, agentActor("A"), "K7Q2")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = svc.GetTaskByCode(ctx, agentActor("A"), "ZZZZZZ")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	_, err = svc.GetTaskByCode(ctx, types.Actor{ID: uuid.New(), Role: types.RoleUser}, "K7Q2ZD")
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
}
