package tailoring

import (
	"math"
	"strings"

	"github.com/jonathan/applydesk/internal/ingestion"
	"github.com/jonathan/applydesk/internal/types"
)

// maxKeywords caps how many description terms are scored.
const maxKeywords = 40

// Analyze scores tailored content against the job description: the share of the
// description's keywords that appear anywhere in the content, as an integer in [0, 100].
func Analyze(description string, content *types.TailoredContent) types.MatchAnalytics {
	keywords := ingestion.Keywords(description)
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	out := types.MatchAnalytics{MatchedKeywords: []string{}, MissingKeywords: []string{}}
	if len(keywords) == 0 || content == nil {
		out.MissingKeywords = append(out.MissingKeywords, keywords...)
		return out
	}

	present := make(map[string]struct{})
	for _, kw := range ingestion.Keywords(contentText(content)) {
		present[kw] = struct{}{}
	}
	for _, kw := range keywords {
		if _, ok := present[kw]; ok {
			out.MatchedKeywords = append(out.MatchedKeywords, kw)
		} else {
			out.MissingKeywords = append(out.MissingKeywords, kw)
		}
	}

	score := int(math.Round(100 * float64(len(out.MatchedKeywords)) / float64(len(keywords))))
	out.Score = min(max(score, 0), 100)
	return out
}

func contentText(c *types.TailoredContent) string {
	var sb strings.Builder
	sb.WriteString(c.Summary)
	for _, e := range c.Experience {
		sb.WriteString("\n" + e.Title + "\n" + e.Company)
		for _, b := range e.Bullets {
			sb.WriteString("\n" + b)
		}
	}
	for _, s := range c.Skills {
		sb.WriteString("\n" + s)
	}
	return sb.String()
}
