package ingestion

import (
	"slices"
	"strings"
	"unicode"
)

// stopWords are dropped from keyword extraction.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after all also an and any are as at be been being
		both but by can could do does each etc for from had has have how if in into is it its job
		join just may more most must need new no not of on one or our out over per plus role such
		than that the their them then there these they this those through to under up us using via
		was we well were what when where which while who will with within work would year years you
		your team teams strong ability experience preferred required requirements responsibilities
		including skills knowledge understanding working`) {
		stopWords[w] = struct{}{}
	}
}

// Keywords returns the distinct significant lower-case terms of text in first-seen order.
// Terms keep inner '+', '#', '.', '/' and '-' so tokens like "c++", "c#", "node.js" and
// "ci/cd" survive.
func Keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("+#./-", r))
	})

	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, ".-/")
		if len(f) < 2 || isNumeric(f) {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// ContainsKeyword reports whether any of the keywords of text equals kw.
func ContainsKeyword(text, kw string) bool {
	return slices.Contains(Keywords(text), strings.ToLower(kw))
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
