// Package ingestion normalizes job descriptions and resumes into plain text the tailoring
// pipeline can consume.
package ingestion

import (
	"regexp"
	"strings"
)

var (
	reSpaces     = regexp.MustCompile(`\s+`)
	reBlankLines = regexp.MustCompile(`\n\n\n+`)
)

// CleanText cleans and normalizes text content while preserving structure
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	// CRLF and bare CR become LF
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	cleanedLines := make([]string, 0, len(lines))
	for _, line := range lines {
		cleanedLines = append(cleanedLines, cleanLine(line))
	}

	result := strings.Join(cleanedLines, "\n")
	result = reBlankLines.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

// cleanLine cleans a single line while preserving structure
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	if strings.TrimSpace(line) == "" {
		return ""
	}

	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "#") {
		return reSpaces.ReplaceAllString(trimmed, " ")
	}
	if isBulletLine(trimmed) {
		return "- " + reSpaces.ReplaceAllString(strings.TrimSpace(trimmed[bulletWidth(trimmed):]), " ")
	}

	leadingSpace := len(line) - len(trimmed)
	content := reSpaces.ReplaceAllString(strings.TrimSpace(line), " ")
	if leadingSpace > 0 {
		return strings.Repeat(" ", leadingSpace) + content
	}
	return content
}

var bulletPrefixes = []string{"- ", "* ", "• ", "· "}

// isBulletLine checks if a line is a bullet list item
func isBulletLine(line string) bool {
	return bulletWidth(line) > 0
}

func bulletWidth(line string) int {
	for _, p := range bulletPrefixes {
		if strings.HasPrefix(line, p) {
			return len(p)
		}
	}
	return 0
}
