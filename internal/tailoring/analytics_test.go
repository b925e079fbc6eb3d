package tailoring

import (
	"testing"

	"github.com/jonathan/applydesk/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	content := &types.TailoredContent{
		Summary: "Go engineer running Kubernetes clusters",
		Experience: []types.ExperienceEntry{
			{Company: "Acme", Title: "Backend Engineer", Bullets: []string{"Scaled PostgreSQL"}},
		},
	}

	got := Analyze("Go, Kubernetes, PostgreSQL, Terraform", content)
	assert.Equal(t, 75, got.Score)
	assert.Equal(t, []string{"go", "kubernetes", "postgresql"}, got.MatchedKeywords)
	assert.Equal(t, []string{"terraform"}, got.MissingKeywords)
}

func TestAnalyze_Bounds(t *testing.T) {
	tests := []struct {
		name        string
		description string
		content     *types.TailoredContent
		want        int
	}{
		{"no keywords", "the and of", &types.TailoredContent{Summary: "Go"}, 0},
		{"nil content", "Go Rust", nil, 0},
		{"full match", "Go Rust", &types.TailoredContent{Summary: "Rust", Skills: []string{"Go"}}, 100},
		{"no match", "Go Rust", &types.TailoredContent{Summary: "Python"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.description, tt.content)
			assert.Equal(t, tt.want, got.Score)
			assert.GreaterOrEqual(t, got.Score, 0)
			assert.LessOrEqual(t, got.Score, 100)
			assert.NotNil(t, got.MatchedKeywords)
			assert.NotNil(t, got.MissingKeywords)
		})
	}
}
