package types

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies what an authenticated actor may do.
type Role string

// Role constants
const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAgent || r == RoleAdmin
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name,omitempty"`
	Role Role      `json:"role"`
}

// IsAdmin reports whether the actor has administrative override rights.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsAgent reports whether the actor works delegated tasks.
func (a Actor) IsAgent() bool { return a.Role == RoleAgent || a.Role == RoleAdmin }

// Owns reports whether the actor owns the job.
func (a Actor) Owns(j *Job) bool { return j != nil && j.UserID == a.ID }

// DelegationTask is the agent-facing view of a delegated job.
// Credits and RequireCustomResume are read through from the owner's account at read time
// and are never authoritative for gating.
type DelegationTask struct {
	JobID               uuid.UUID    `json:"job_id"`
	DelegatedJobID      string       `json:"delegated_job_id"`
	OwnerID             uuid.UUID    `json:"owner_id"`
	Title               string       `json:"title"`
	Company             string       `json:"company"`
	Description         string       `json:"description,omitempty"`
	URL                 *string      `json:"url,omitempty"`
	Status              JobStatus    `json:"status"`
	TailoredStatus      TailorStatus `json:"tailored_status,omitempty"`
	AssignedTo          *uuid.UUID   `json:"assigned_to,omitempty"`
	AssignedToName      *string      `json:"assigned_to_name,omitempty"`
	Priority            Priority     `json:"priority"`
	Credits             int          `json:"credits"`
	RequireCustomResume bool         `json:"require_custom_resume"`
	SubmissionProof     *string      `json:"submission_proof,omitempty"`
	CustomResumeProof   *string      `json:"custom_resume_proof,omitempty"`
	CoverLetter         *string      `json:"cover_letter,omitempty"`
	ClientNotes         *string      `json:"client_notes,omitempty"`
	Labels              []string     `json:"labels"`
	DelegatedAt         *time.Time   `json:"delegated_at,omitempty"`
}

// NewDelegationTask builds the task view from a job and its owner's account.
func NewDelegationTask(j *Job, acct *CreditAccount) DelegationTask {
	t := DelegationTask{
		JobID:             j.ID,
		OwnerID:           j.UserID,
		Title:             j.Title,
		Company:           j.Company,
		Description:       j.Description,
		URL:               j.URL,
		Status:            j.Status,
		TailoredStatus:    j.TailoredStatus,
		AssignedTo:        j.AssignedTo,
		AssignedToName:    j.AssignedToName,
		Priority:          j.Priority,
		SubmissionProof:   j.SubmissionProof,
		CustomResumeProof: j.CustomResumeProof,
		CoverLetter:       j.CoverLetter,
		ClientNotes:       j.ClientNotes,
		Labels:            j.Labels,
		DelegatedAt:       j.DelegatedAt,
	}
	if j.DelegatedJobID != nil {
		t.DelegatedJobID = *j.DelegatedJobID
	}
	if acct != nil {
		t.Credits = acct.Balance
		t.RequireCustomResume = acct.RequireCustomResume
	}
	return t
}

// CreditAccount holds a user's consumable submission balance and feature flags.
type CreditAccount struct {
	UserID              uuid.UUID `json:"user_id"`
	Balance             int       `json:"balance"`
	RequireCustomResume bool      `json:"require_custom_resume"`
	UpdatedAt           time.Time `json:"updated_at"`
}
