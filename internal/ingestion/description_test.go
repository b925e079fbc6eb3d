package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "empty",
			raw:  "  ",
			want: "",
		},
		{
			name: "plain text",
			raw:  "We need   a Go engineer.\r\n\r\n\r\n\r\nRemote.",
			want: "We need a Go engineer.\n\nRemote.",
		},
		{
			name: "paragraphs and list",
			raw:  `<p>About the <b>role</b></p><ul><li>Go</li><li>PostgreSQL &amp; Redis</li></ul>`,
			want: "About the role\n\n- Go\n- PostgreSQL & Redis",
		},
		{
			name: "headings and line breaks",
			raw:  `<h2>Requirements</h2><p>5 years<br>Kubernetes</p>`,
			want: "# Requirements\n5 years\nKubernetes",
		},
		{
			name: "scripts removed",
			raw:  `<div>Backend role<script>track()</script><style>p{}</style></div>`,
			want: "Backend role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDescription(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML("<p>hi</p>"))
	assert.True(t, LooksLikeHTML(`<LI class="x">hi`))
	assert.False(t, LooksLikeHTML("salary < 100k and > 80k"))
	assert.False(t, LooksLikeHTML("plain"))
}
