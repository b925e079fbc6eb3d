package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText_PreserveMarkdownHeadings(t *testing.T) {
	input := "# Title\n## Subtitle\nContent here"
	result := CleanText(input)

	assert.Contains(t, result, "# Title")
	assert.Contains(t, result, "## Subtitle")
	assert.Contains(t, result, "Content here")
}

func TestCleanText_NormalizesBullets(t *testing.T) {
	input := "- Item 1\n*   Item 2\n• Item 3"
	result := CleanText(input)

	assert.Equal(t, "- Item 1\n- Item 2\n- Item 3", result)
}

func TestCleanText_NormalizeWhitespace(t *testing.T) {
	result := CleanText("Line    with    multiple    spaces")
	assert.Equal(t, "Line with multiple spaces", result)
}

func TestCleanText_RemoveExcessiveBlankLines(t *testing.T) {
	result := CleanText("Line 1\n\n\n\n\nLine 2")
	assert.Equal(t, "Line 1\n\nLine 2", result)
}

func TestCleanText_NormalizeLineEndings(t *testing.T) {
	result := CleanText("Line 1\r\nLine 2\rLine 3\nLine 4")
	assert.Equal(t, "Line 1\nLine 2\nLine 3\nLine 4", result)
}

func TestCleanText_Empty(t *testing.T) {
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "", CleanText("   \n\t\n  "))
}

func TestCleanText_PreserveIndentation(t *testing.T) {
	result := CleanText("Header\n    indented   line")
	assert.Equal(t, "Header\n    indented line", result)
}
