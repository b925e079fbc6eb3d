package types

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// validate caches struct metadata, so one instance is shared.
var validate = newValidator()

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateJobRequest creates a job in the saved state.
type CreateJobRequest struct {
	Title       string     `json:"title" validate:"required,max=300"`
	Company     string     `json:"company" validate:"required,max=300"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty" validate:"omitempty,url"`
	ResumeID    *uuid.UUID `json:"resume_id,omitempty"`
	Labels      []string   `json:"labels,omitempty" validate:"max=50,dive,required,max=64"`
	ClientNotes string     `json:"client_notes,omitempty" validate:"max=4000"`
}

// Validate validates the CreateJobRequest using the validator.
func (r *CreateJobRequest) Validate() error {
	return validate.Struct(r)
}

// UpdateJobRequest edits owner-controlled job fields. Nil fields are left unchanged.
type UpdateJobRequest struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=300"`
	Company     *string    `json:"company,omitempty" validate:"omitempty,min=1,max=300"`
	Description *string    `json:"description,omitempty"`
	URL         *string    `json:"url,omitempty" validate:"omitempty,url"`
	ResumeID    *uuid.UUID `json:"resume_id,omitempty"`
	Labels      *[]string  `json:"labels,omitempty" validate:"omitempty,max=50,dive,required,max=64"`
	ClientNotes *string    `json:"client_notes,omitempty" validate:"omitempty,max=4000"`
	Priority    *Priority  `json:"priority,omitempty" validate:"omitempty,oneof=low normal high"`
}

// Validate validates the UpdateJobRequest using the validator.
func (r *UpdateJobRequest) Validate() error {
	return validate.Struct(r)
}

// BulkJobsRequest names the jobs a bulk operation applies to.
type BulkJobsRequest struct {
	JobIDs []uuid.UUID `json:"job_ids" validate:"required,min=1,max=500"`
}

// Validate validates the BulkJobsRequest using the validator.
func (r *BulkJobsRequest) Validate() error {
	return validate.Struct(r)
}

// ProgressRequest moves an applied job forward.
type ProgressRequest struct {
	Status JobStatus `json:"status" validate:"required,oneof=interviewing offer"`
}

// Validate validates the ProgressRequest using the validator.
func (r *ProgressRequest) Validate() error {
	return validate.Struct(r)
}

// TriggerTailoringRequest starts a tailoring run. ResumeID falls back to the job's resume and
// JobDescription, when set, replaces the job's stored description before the run.
type TriggerTailoringRequest struct {
	ResumeID       *uuid.UUID `json:"resume_id,omitempty"`
	Mode           TailorMode `json:"mode,omitempty" validate:"omitempty,oneof=queued direct"`
	JobDescription string     `json:"job_description,omitempty"`
}

// Validate validates the TriggerTailoringRequest using the validator.
func (r *TriggerTailoringRequest) Validate() error {
	return validate.Struct(r)
}

// TweakTailoringRequest edits the content of a completed tailoring record.
type TweakTailoringRequest struct {
	Summary    *string            `json:"summary,omitempty" validate:"omitempty,min=1"`
	Experience *[]ExperienceEntry `json:"experience,omitempty" validate:"omitempty,dive"`
	Skills     *[]string          `json:"skills,omitempty"`
}

// Validate validates the TweakTailoringRequest using the validator.
func (r *TweakTailoringRequest) Validate() error {
	return validate.Struct(r)
}

// CoverLetterRequest asks for a cover letter for a job.
type CoverLetterRequest struct {
	ResumeID       *uuid.UUID `json:"resume_id,omitempty"`
	JobDescription string     `json:"job_description,omitempty"`
	Notes          string     `json:"notes,omitempty" validate:"max=4000"`
}

// Validate validates the CoverLetterRequest using the validator.
func (r *CoverLetterRequest) Validate() error {
	return validate.Struct(r)
}

// ProofRequest carries opaque storage references to uploaded artifacts.
type ProofRequest struct {
	SubmissionProof   string `json:"submission_proof,omitempty" validate:"max=1024"`
	CustomResumeProof string `json:"custom_resume_proof,omitempty" validate:"max=1024"`
}

// Validate validates the ProofRequest using the validator.
func (r *ProofRequest) Validate() error {
	return validate.Struct(r)
}

// CannotApplyRequest reports why an agent could not submit an application.
type CannotApplyRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// Validate validates the CannotApplyRequest using the validator.
func (r *CannotApplyRequest) Validate() error {
	return validate.Struct(r)
}

// GrantCreditsRequest tops up a user's balance.
type GrantCreditsRequest struct {
	Amount int `json:"amount" validate:"required,min=1,max=10000"`
}

// Validate validates the GrantCreditsRequest using the validator.
func (r *GrantCreditsRequest) Validate() error {
	return validate.Struct(r)
}

// AccountFlagsRequest sets feature flags on a user's account.
type AccountFlagsRequest struct {
	RequireCustomResume bool `json:"require_custom_resume"`
}

// CreateResumeRequest stores a base resume.
type CreateResumeRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// Validate validates the CreateResumeRequest using the validator.
func (r *CreateResumeRequest) Validate() error {
	return validate.Struct(r)
}

// ValidateContent validates tailored content produced by a tailoring run or a tweak.
func ValidateContent(c *TailoredContent) error {
	return validate.Struct(c)
}
