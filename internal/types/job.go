// Package types provides type definitions for structured data used throughout the applydesk system.
package types

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a job posting.
type JobStatus string

// JobStatus constants
const (
	JobStatusSaved        JobStatus = "saved"
	JobStatusTailoring    JobStatus = "tailoring"
	JobStatusTailored     JobStatus = "tailored"
	JobStatusDelegated    JobStatus = "delegate_to_va"
	JobStatusApplied      JobStatus = "applied"
	JobStatusInterviewing JobStatus = "interviewing"
	JobStatusOffer        JobStatus = "offer"
	JobStatusTrashed      JobStatus = "trashed"
)

// AllJobStatuses lists every job status in lifecycle order.
var AllJobStatuses = []JobStatus{
	JobStatusSaved,
	JobStatusTailoring,
	JobStatusTailored,
	JobStatusDelegated,
	JobStatusApplied,
	JobStatusInterviewing,
	JobStatusOffer,
	JobStatusTrashed,
}

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	return slices.Contains(AllJobStatuses, s)
}

// Priority orders delegated tasks in the agent queue.
type Priority string

// Priority constants
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Rank returns a sortable weight for the priority; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

// Job is one job-application opportunity owned by exactly one user.
type Job struct {
	ID                uuid.UUID    `json:"id"`
	UserID            uuid.UUID    `json:"user_id"`
	Title             string       `json:"title"`
	Company           string       `json:"company"`
	Description       string       `json:"description,omitempty"`
	URL               *string      `json:"url,omitempty"`
	Status            JobStatus    `json:"status"`
	DelegatedJobID    *string      `json:"delegated_job_id,omitempty"`
	ResumeID          *uuid.UUID   `json:"resume_id,omitempty"`
	TailoredStatus    TailorStatus `json:"tailored_status,omitempty"`
	CoverLetter       *string      `json:"cover_letter,omitempty"`
	SubmissionProof   *string      `json:"submission_proof,omitempty"`
	CustomResumeProof *string      `json:"custom_resume_proof,omitempty"`
	AssignedTo        *uuid.UUID   `json:"assigned_to,omitempty"`
	AssignedToName    *string      `json:"assigned_to_name,omitempty"`
	Priority          Priority     `json:"priority"`
	Credits           int          `json:"credits"`
	Labels            []string     `json:"labels"`
	ClientNotes       *string      `json:"client_notes,omitempty"`
	CannotApplyReason *string      `json:"cannot_apply_reason,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
	DelegatedAt       *time.Time   `json:"delegated_at,omitempty"`
	TrashedAt         *time.Time   `json:"trashed_at,omitempty"`
	AppliedAt         *time.Time   `json:"applied_at,omitempty"`
}

// Clone returns a deep copy of the job so callers can mutate it freely.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.URL = clonePtr(j.URL)
	c.DelegatedJobID = clonePtr(j.DelegatedJobID)
	c.ResumeID = clonePtr(j.ResumeID)
	c.CoverLetter = clonePtr(j.CoverLetter)
	c.SubmissionProof = clonePtr(j.SubmissionProof)
	c.CustomResumeProof = clonePtr(j.CustomResumeProof)
	c.AssignedTo = clonePtr(j.AssignedTo)
	c.AssignedToName = clonePtr(j.AssignedToName)
	c.ClientNotes = clonePtr(j.ClientNotes)
	c.CannotApplyReason = clonePtr(j.CannotApplyReason)
	c.DelegatedAt = clonePtr(j.DelegatedAt)
	c.TrashedAt = clonePtr(j.TrashedAt)
	c.AppliedAt = clonePtr(j.AppliedAt)
	c.Labels = slices.Clone(j.Labels)
	return &c
}

// IsAssignedTo reports whether the job is currently claimed by the given agent.
func (j *Job) IsAssignedTo(agentID uuid.UUID) bool {
	return j.AssignedTo != nil && *j.AssignedTo == agentID
}

// Resume is a user's base resume used as tailoring input.
type Resume struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
