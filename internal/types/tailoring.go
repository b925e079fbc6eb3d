package types

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// TailorStatus is the state of a tailoring run. The empty value means the job was never tailored.
type TailorStatus string

// TailorStatus constants
const (
	TailorStatusNone       TailorStatus = ""
	TailorStatusPending    TailorStatus = "pending"
	TailorStatusProcessing TailorStatus = "processing"
	TailorStatusCompleted  TailorStatus = "completed"
	TailorStatusFailed     TailorStatus = "failed"
)

// Terminal reports whether the run has finished, successfully or not.
func (s TailorStatus) Terminal() bool {
	return s == TailorStatusCompleted || s == TailorStatusFailed
}

// TailorMode selects where the transformation runs.
type TailorMode string

// TailorMode constants
const (
	// TailorModeQueued returns pending immediately and runs the work out-of-band.
	TailorModeQueued TailorMode = "queued"
	// TailorModeDirect runs the work in the request path and returns a terminal status.
	TailorModeDirect TailorMode = "direct"
)

// ExperienceEntry is one tailored role in the experience section.
type ExperienceEntry struct {
	Company string   `json:"company" validate:"required"`
	Title   string   `json:"title" validate:"required"`
	Bullets []string `json:"bullets"`
}

// TailoredContent is the resume content produced by a tailoring run.
type TailoredContent struct {
	Summary    string            `json:"summary" validate:"required"`
	Experience []ExperienceEntry `json:"experience" validate:"dive"`
	Skills     []string          `json:"skills"`
}

// Clone returns a deep copy of the content.
func (c *TailoredContent) Clone() *TailoredContent {
	if c == nil {
		return nil
	}
	out := &TailoredContent{
		Summary: c.Summary,
		Skills:  slices.Clone(c.Skills),
	}
	if c.Experience != nil {
		out.Experience = make([]ExperienceEntry, len(c.Experience))
		for i, e := range c.Experience {
			out.Experience[i] = ExperienceEntry{Company: e.Company, Title: e.Title, Bullets: slices.Clone(e.Bullets)}
		}
	}
	return out
}

// MatchAnalytics compares tailored content against the job description keywords.
type MatchAnalytics struct {
	Score           int      `json:"score" validate:"min=0,max=100"`
	MatchedKeywords []string `json:"matched_keywords"`
	MissingKeywords []string `json:"missing_keywords"`
}

// TailoredResume is the single active tailoring record for a job.
// Re-tailoring overwrites the record in place and bumps Attempt.
type TailoredResume struct {
	ID           uuid.UUID        `json:"id"`
	JobID        uuid.UUID        `json:"job_id"`
	ResumeID     uuid.UUID        `json:"resume_id"`
	Status       TailorStatus     `json:"status"`
	Attempt      int              `json:"attempt"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	Content      *TailoredContent `json:"content,omitempty"`
	Analytics    *MatchAnalytics  `json:"analytics,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the record.
func (t *TailoredResume) Clone() *TailoredResume {
	if t == nil {
		return nil
	}
	c := *t
	c.ErrorMessage = clonePtr(t.ErrorMessage)
	c.Content = t.Content.Clone()
	if t.Analytics != nil {
		a := *t.Analytics
		a.MatchedKeywords = slices.Clone(t.Analytics.MatchedKeywords)
		a.MissingKeywords = slices.Clone(t.Analytics.MissingKeywords)
		c.Analytics = &a
	}
	c.CompletedAt = clonePtr(t.CompletedAt)
	return &c
}

// NewerThan reports whether t is a later write of the job's record than o: a higher attempt, or
// the same attempt updated later.
func (t *TailoredResume) NewerThan(o *TailoredResume) bool {
	if o == nil {
		return true
	}
	if t.Attempt != o.Attempt {
		return t.Attempt > o.Attempt
	}
	return t.UpdatedAt.After(o.UpdatedAt)
}
