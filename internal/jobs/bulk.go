package jobs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/types"
	"golang.org/x/sync/errgroup"
)

// BulkResult is the outcome of one item of a bulk operation.
type BulkResult struct {
	JobID          uuid.UUID       `json:"job_id"`
	OK             bool            `json:"ok"`
	Status         types.JobStatus `json:"status,omitempty"`
	DelegatedJobID *string         `json:"delegated_job_id,omitempty"`
	Code           apperrors.Code  `json:"code,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// BulkTrash trashes each job in its own transaction.
func (s *Service) BulkTrash(ctx context.Context, actor types.Actor, ids []uuid.UUID) []BulkResult {
	return s.bulk(ctx, ids, func(ctx context.Context, id uuid.UUID) (*types.Job, error) {
		return s.Trash(ctx, actor, id)
	})
}

// BulkRestore restores each job in its own transaction.
func (s *Service) BulkRestore(ctx context.Context, actor types.Actor, ids []uuid.UUID) []BulkResult {
	return s.bulk(ctx, ids, func(ctx context.Context, id uuid.UUID) (*types.Job, error) {
		return s.Restore(ctx, actor, id)
	})
}

// BulkDelegate delegates each job in its own transaction.
func (s *Service) BulkDelegate(ctx context.Context, actor types.Actor, ids []uuid.UUID) []BulkResult {
	return s.bulk(ctx, ids, func(ctx context.Context, id uuid.UUID) (*types.Job, error) {
		return s.Delegate(ctx, actor, id)
	})
}

// bulk runs op for every id with bounded concurrency. Items never abort each other; results
// are reported in input order.
func (s *Service) bulk(ctx context.Context, ids []uuid.UUID, op func(context.Context, uuid.UUID) (*types.Job, error)) []BulkResult {
	results := make([]BulkResult, len(ids))

	var g errgroup.Group
	g.SetLimit(s.bulkWorkers)
	for i, id := range ids {
		g.Go(func() error {
			j, err := op(ctx, id)
			results[i] = newBulkResult(id, j, err)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	s.logger.InfoContext(ctx, "bulk operation finished", "items", len(ids), "failed", failed)
	return results
}

func newBulkResult(id uuid.UUID, j *types.Job, err error) BulkResult {
	if err != nil {
		return BulkResult{JobID: id, Code: apperrors.CodeOf(err), Error: err.Error()}
	}
	return BulkResult{JobID: id, OK: true, Status: j.Status, DelegatedJobID: j.DelegatedJobID}
}
