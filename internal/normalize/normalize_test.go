package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"empty string", "", false},
		{"plain text", "How do I cancel a context?", false},
		{"angle brackets but not HTML", "Use <stdin> for input and 2 > 1 is true", false},
		{"paragraph tags", "<p>This is a paragraph.</p>", true},
		{"self-closing break", "Line one<br/>Line two", true},
		{"uppercase tags", "<P>Shouting</P>", true},
		{"code block", "<pre><code>go test ./...</code></pre>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsHTML(tt.input))
		})
	}
}

func TestContent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text untouched", "  Just text.  ", "Just text."},
		{"bold", "<p>This is <strong>important</strong></p>", "This is **important**"},
		{"link", `<p>See <a href="https://go.dev">go.dev</a></p>`, "See [go.dev](https://go.dev)"},
		{"list", "<ul><li>one</li><li>two</li></ul>", "- one\n- two"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Content(tt.input))
		})
	}
}

func TestTitleAndEmail(t *testing.T) {
	assert.Equal(t, "Hello world", Title("  Hello \n\t world "))
	assert.Equal(t, "ana@example.com", Email("  Ana@Example.COM "))
}
