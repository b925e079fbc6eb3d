package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_TailoringPrompts(t *testing.T) {
	for _, key := range []string{"tailor-system", "cover-letter-system", "job-and-resume", "candidate-notes"} {
		prompt, err := Get(Tailoring, key)
		require.NoError(t, err, key)
		assert.NotEmpty(t, prompt)
	}
	assert.Contains(t, MustGet(Tailoring, "tailor-system"), `"summary"`)
}

func TestGet_Errors(t *testing.T) {
	_, err := Get("nonexistent.json", "some-key")
	assert.ErrorContains(t, err, "failed to read prompt file")

	_, err = Get(Tailoring, "nonexistent-key")
	assert.ErrorContains(t, err, "not found")

	assert.Panics(t, func() { MustGet(Tailoring, "nonexistent-key") })
}

func TestFormat(t *testing.T) {
	got := Format("Hello {{.Name}}, welcome to {{.Company}}!", map[string]string{
		"Name":    "Alice",
		"Company": "Acme Corp",
	})
	assert.Equal(t, "Hello Alice, welcome to Acme Corp!", got)
}

func TestFormat_SinglePass(t *testing.T) {
	got := Format("A={{.A}} B={{.B}}", map[string]string{"A": "{{.B}}", "B": "b"})
	assert.Equal(t, "A={{.B}} B=b", got)
}

func TestFormat_MissingKeyLeftInPlace(t *testing.T) {
	assert.Equal(t, "Hi {{.Name}}", Format("Hi {{.Name}}", nil))
}

func TestKeys(t *testing.T) {
	keys, err := Keys(Tailoring)
	require.NoError(t, err)
	assert.Equal(t, []string{"candidate-notes", "cover-letter-system", "job-and-resume", "tailor-system"}, keys)
}
