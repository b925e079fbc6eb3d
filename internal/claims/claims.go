// Package claims enforces single-owner assignment of delegated jobs to agents.
//
// Claim is a compare-and-set on assigned_to performed under the job's row lock, so two
// concurrent claims can never both succeed. Every mutation on a delegated task goes through
// RequireAssignee.
package claims

import (
	"time"

	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/types"
)

// Claim assigns the delegated job to the agent if nobody holds it. Re-claiming a task the
// agent already holds is also reported as already_assigned.
func Claim(j *types.Job, agent types.Actor, now time.Time) error {
	if !agent.IsAgent() {
		return apperrors.Forbidden("only agents can claim tasks")
	}
	if j.Status != types.JobStatusDelegated {
		return apperrors.InvalidTransition("only delegated jobs can be claimed, job is %s", j.Status)
	}
	if j.AssignedTo != nil {
		holder := "another agent"
		if j.IsAssignedTo(agent.ID) {
			holder = "you"
		} else if j.AssignedToName != nil {
			holder = *j.AssignedToName
		}
		return apperrors.AlreadyAssigned("task is already assigned to %s", holder)
	}

	id := agent.ID
	j.AssignedTo = &id
	j.AssignedToName = nil
	if agent.Name != "" {
		name := agent.Name
		j.AssignedToName = &name
	}
	j.UpdatedAt = now
	return nil
}

// Unassign releases the claim. Only the assignee or an admin may release it. Releasing an
// unassigned task is a no-op and reports changed=false.
func Unassign(j *types.Job, actor types.Actor, now time.Time) (changed bool, err error) {
	if j.AssignedTo == nil {
		return false, nil
	}
	if !j.IsAssignedTo(actor.ID) && !actor.IsAdmin() {
		return false, apperrors.NotAssignee("only the assignee or an admin can unassign this task")
	}
	if j.Status != types.JobStatusDelegated {
		return false, apperrors.InvalidTransition("cannot unassign a %s job", j.Status)
	}
	j.AssignedTo = nil
	j.AssignedToName = nil
	j.UpdatedAt = now
	return true, nil
}

// RequireAssignee rejects actors that do not currently hold the claim. Admins get no bypass.
func RequireAssignee(j *types.Job, actor types.Actor) error {
	if j.AssignedTo == nil {
		return apperrors.NotAssignee("task is unassigned, claim it first")
	}
	if !j.IsAssignedTo(actor.ID) {
		return apperrors.NotAssignee("task is assigned to another agent")
	}
	return nil
}
