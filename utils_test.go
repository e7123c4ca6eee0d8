package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		def      string
		expected string
	}{
		{"Empty string with default", "", "default", "default"},
		{"Non-empty string", "non-empty", "default", "non-empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, getOrDefault(tt.input, tt.def))
		})
	}
}

func TestIsHTTPURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Valid HTTP URL", "http://example.com", true},
		{"Valid HTTPS URL", "https://example.com/a?b=c", true},
		{"FTP URL", "ftp://example.com", false},
		{"Invalid URL", "not_a_url", false},
		{"Empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsHTTPURL(tt.input); result != tt.expected {
				t.Errorf("IsHTTPURL(%q) = %t, want %t", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, sortedKeys(map[string]any{"c": 1, "a": 2, "b": 3}))
}
