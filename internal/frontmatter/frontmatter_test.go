package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTags(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "block sequence",
			content:  "---\ntags:\n  - a\n  - b\n---\nbody",
			expected: []string{"a", "b"},
		},
		{
			name:     "flow sequence",
			content:  "---\ntitle: x\ntags: [meeting, daily]\n---\n",
			expected: []string{"meeting", "daily"},
		},
		{
			name:     "single scalar",
			content:  "---\ntags: project\n---\n",
			expected: []string{"project"},
		},
		{
			name:     "numbers are kept as text",
			content:  "---\ntags: [2024, q1]\n---\n",
			expected: []string{"2024", "q1"},
		},
		{
			name:     "null items skipped",
			content:  "---\ntags: [a, ~, '']\n---\n",
			expected: []string{"a"},
		},
		{
			name:     "no block",
			content:  "# Title\ntags: [a]\n",
			expected: nil,
		},
		{
			name:     "block not at start",
			content:  "\n---\ntags: [a]\n---\n",
			expected: nil,
		},
		{
			name:     "no tags key",
			content:  "---\ntitle: x\n---\n",
			expected: nil,
		},
		{
			name:     "broken yaml",
			content:  "---\ntags: [a, b\n---\n",
			expected: nil,
		},
		{
			name:     "not a mapping",
			content:  "---\ntags:[a,b]\n---\nBODY",
			expected: nil,
		},
		{
			name:     "nested mapping",
			content:  "---\ntags:\n  a: b\n---\n",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Tags(tc.content)
			if tc.expected == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "BODY", Strip("---\ntags:[a,b]\n---\nBODY"))
	assert.Equal(t, "just text", Strip("  just text\n\n"))
	assert.Equal(t, "line one\n\nline two", Strip("---\ntags: [a]\n---\n\nline one\n\nline two\n"))
	assert.Equal(t, "", Strip("---\ntags: [a]\n---\n"))
}

func TestSplitAndSpan(t *testing.T) {
	content := "---\ntags: [a]\n---\nbody"

	block, body, ok := Split(content)
	assert.True(t, ok)
	assert.Equal(t, "tags: [a]", block)
	assert.Equal(t, "\nbody", body)

	end, ok := Span(content)
	assert.True(t, ok)
	assert.Equal(t, len("---\ntags: [a]\n---"), end)

	_, ok = Span("no block here")
	assert.False(t, ok)
}

func TestInspect(t *testing.T) {
	_, err := Inspect("no block")
	assert.ErrorIs(t, err, ErrNoBlock)

	_, err = Inspect("---\ntags: [a\n---\n")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoBlock)

	tags, err := Inspect("---\ntitle: only\n---\n")
	assert.NoError(t, err)
	assert.Empty(t, tags)
}
