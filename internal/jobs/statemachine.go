package jobs

import (
	"slices"
	"time"

	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/types"
)

// transitions lists every legal edge of the job lifecycle.
var transitions = map[types.JobStatus][]types.JobStatus{
	types.JobStatusSaved:        {types.JobStatusTailoring, types.JobStatusDelegated, types.JobStatusTrashed},
	types.JobStatusTailoring:    {types.JobStatusTailored, types.JobStatusSaved, types.JobStatusTrashed},
	types.JobStatusTailored:     {types.JobStatusTailoring, types.JobStatusDelegated, types.JobStatusTrashed},
	types.JobStatusDelegated:    {types.JobStatusApplied, types.JobStatusTrashed},
	types.JobStatusApplied:      {types.JobStatusInterviewing, types.JobStatusOffer},
	types.JobStatusInterviewing: {types.JobStatusOffer},
	types.JobStatusOffer:        nil,
	types.JobStatusTrashed:      {types.JobStatusSaved},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to types.JobStatus) bool {
	return slices.Contains(transitions[from], to)
}

// IsTerminal reports whether the status is past the point of no return (applied or later).
func IsTerminal(s types.JobStatus) bool {
	return s == types.JobStatusApplied || s == types.JobStatusInterviewing || s == types.JobStatusOffer
}

// Transition moves j to status to, stamping the lifecycle timestamps. On an illegal edge it
// returns an invalid_transition error and leaves j untouched.
func Transition(j *types.Job, to types.JobStatus, now time.Time) error {
	if !CanTransition(j.Status, to) {
		return apperrors.InvalidTransition("cannot move job from %s to %s", j.Status, to)
	}

	switch to {
	case types.JobStatusTrashed:
		j.TrashedAt = &now
	case types.JobStatusApplied:
		j.AppliedAt = &now
	case types.JobStatusDelegated:
		j.DelegatedAt = &now
	case types.JobStatusSaved:
		j.TrashedAt = nil
	}
	j.Status = to
	j.UpdatedAt = now
	return nil
}

// MarkApplied performs delegate_to_va -> applied. Callers must have passed the submission gate.
func MarkApplied(j *types.Job, now time.Time) error {
	if j.Status != types.JobStatusDelegated {
		return apperrors.InvalidTransition("job must be %s to be marked applied, is %s", types.JobStatusDelegated, j.Status)
	}
	return Transition(j, types.JobStatusApplied, now)
}
