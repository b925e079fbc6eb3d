// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/applydesk/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to a terminal; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// writeList writes up to maxItemsToShow items, then a count of the rest.
func writeList(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s\n", heading)
	for _, item := range items[:min(len(items), maxItemsToShow)] {
		fmt.Fprintf(sb, "  • %s\n", item)
	}
	if len(items) > maxItemsToShow {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-maxItemsToShow)
	}
}

// PrintTailoredResume outputs the status of a tailoring run and, once it completed, a summary
// of the content and its keyword match.
func (p *Printer) PrintTailoredResume(tr *types.TailoredResume) {
	if tr == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Job:      %s\n", tr.JobID)
	fmt.Fprintf(&sb, "Status:   %s (attempt %d)\n", tr.Status, tr.Attempt)
	if tr.ErrorMessage != nil {
		fmt.Fprintf(&sb, "Error:    %s\n", *tr.ErrorMessage)
	}

	if c := tr.Content; c != nil {
		sb.WriteString("\nSummary:\n")
		for _, line := range wrap(c.Summary, boxWidth-6) {
			fmt.Fprintf(&sb, "  %s\n", line)
		}
		if len(c.Experience) > 0 {
			roles := make([]string, len(c.Experience))
			for i, e := range c.Experience {
				roles[i] = fmt.Sprintf("%s, %s (%d bullets)", e.Title, e.Company, len(e.Bullets))
			}
			sb.WriteString("\n")
			writeList(&sb, "Experience:", roles)
		}
		if len(c.Skills) > 0 {
			fmt.Fprintf(&sb, "\nSkills: %s\n", strings.Join(c.Skills, ", "))
		}
	}

	if a := tr.Analytics; a != nil {
		fmt.Fprintf(&sb, "\nMatch score: %d/100\n", a.Score)
		writeList(&sb, "Matched keywords:", a.MatchedKeywords)
		writeList(&sb, "Missing keywords:", a.MissingKeywords)
	}

	p.printBox("TAILORED RESUME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCreditAccount outputs a user's balance and flags.
func (p *Printer) PrintCreditAccount(acct *types.CreditAccount) {
	if acct == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "User:     %s\n", acct.UserID)
	fmt.Fprintf(&sb, "Balance:  %d credit(s)\n", acct.Balance)
	fmt.Fprintf(&sb, "Custom resume required: %t", acct.RequireCustomResume)
	p.printBox("CREDIT ACCOUNT", sb.String())
}

// wrap splits text into lines of at most width runes on word boundaries.
func wrap(text string, width int) []string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && utf8.RuneCountInString(line.String())+1+utf8.RuneCountInString(word) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
