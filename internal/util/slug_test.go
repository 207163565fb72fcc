package util

import "testing"

func TestNormalizeTagSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// Basic normalization
		{"lowercase", "JAVASCRIPT", "javascript"},
		{"spaces to dashes", "web dev", "web-dev"},
		{"underscores to dashes", "web_dev", "web-dev"},
		{"already normalized", "web-dev", "web-dev"},

		// Whitespace handling
		{"trim whitespace", "  golang  ", "golang"},
		{"multiple spaces", "web   dev", "web-dev"},
		{"tabs and spaces", "web\t dev", "web-dev"},

		// Unicode folding
		{"accents", "Café Culture", "cafe-culture"},
		{"umlauts", "Über Tips", "uber-tips"},
		{"full width", "ＧＯ", "go"},
		{"emoji removal", "🐉 Dragons!", "dragons"},

		// Special characters
		{"punctuation removal", "ui/ux", "ui-ux"},
		{"apostrophe removal", "don't", "dont"},
		{"plus signs", "C++", "c"},

		// Dash handling
		{"multiple dashes", "web--dev", "web-dev"},
		{"mixed dashes", "--web--dev--", "web-dev"},

		// Edge cases
		{"empty string", "", ""},
		{"only spaces", "   ", ""},
		{"only special chars", "!@#$%", ""},
		{"mixed case with numbers", "Top 10 Tools", "top-10-tools"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeTagSlug(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeTagSlug(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
