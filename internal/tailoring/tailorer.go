package tailoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/applydesk/internal/llm"
	"github.com/jonathan/applydesk/internal/prompts"
	"github.com/jonathan/applydesk/internal/schemas"
	"github.com/jonathan/applydesk/internal/types"
)

// Input is the snapshot a tailoring run works from.
type Input struct {
	JobTitle    string
	Company     string
	Description string
	Resume      string
}

// CoverLetterInput is the snapshot a cover letter is written from.
type CoverLetterInput struct {
	Input
	Notes string
}

// Tailorer transforms a resume for a job. Implementations must honour ctx cancellation.
type Tailorer interface {
	Tailor(ctx context.Context, in Input) (*types.TailoredContent, error)
	CoverLetter(ctx context.Context, in CoverLetterInput) (string, error)
}

// LLMTailorer implements Tailorer with an LLM client. JSON output is checked against the
// tailored content schema and then the domain validation rules.
type LLMTailorer struct {
	Client llm.Client
	Tier   llm.ModelTier
}

var _ Tailorer = (*LLMTailorer)(nil)

var (
	tailorSystemPrompt      = prompts.MustGet(prompts.Tailoring, "tailor-system")
	coverLetterSystemPrompt = prompts.MustGet(prompts.Tailoring, "cover-letter-system")
	jobAndResumeTemplate    = prompts.MustGet(prompts.Tailoring, "job-and-resume")
	candidateNotesTemplate  = prompts.MustGet(prompts.Tailoring, "candidate-notes")
)

// Tailor produces validated tailored content.
func (t *LLMTailorer) Tailor(ctx context.Context, in Input) (*types.TailoredContent, error) {
	raw, err := t.Client.GenerateJSON(ctx, llm.Prompt{System: tailorSystemPrompt, User: userPrompt(in, "")}, t.tier())
	if err != nil {
		return nil, fmt.Errorf("failed to generate tailored resume: %w", err)
	}
	if err := schemas.ValidateTailoredContent(raw); err != nil {
		return nil, fmt.Errorf("model returned invalid tailored resume: %w", err)
	}

	var content types.TailoredContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, fmt.Errorf("failed to decode tailored resume: %w", err)
	}
	if err := types.ValidateContent(&content); err != nil {
		return nil, fmt.Errorf("model returned incomplete tailored resume: %w", err)
	}
	return &content, nil
}

// CoverLetter produces a plain-text cover letter.
func (t *LLMTailorer) CoverLetter(ctx context.Context, in CoverLetterInput) (string, error) {
	text, err := t.Client.GenerateText(ctx, llm.Prompt{System: coverLetterSystemPrompt, User: userPrompt(in.Input, in.Notes)}, llm.TierLite)
	if err != nil {
		return "", fmt.Errorf("failed to generate cover letter: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("model returned an empty cover letter")
	}
	return text, nil
}

func (t *LLMTailorer) tier() llm.ModelTier {
	if t.Tier == "" {
		return llm.TierStandard
	}
	return t.Tier
}

func userPrompt(in Input, notes string) string {
	p := prompts.Format(jobAndResumeTemplate, map[string]string{
		"JobTitle":    in.JobTitle,
		"Company":     in.Company,
		"Description": in.Description,
		"Resume":      in.Resume,
	})
	if notes != "" {
		p += prompts.Format(candidateNotesTemplate, map[string]string{"Notes": notes})
	}
	return p
}
