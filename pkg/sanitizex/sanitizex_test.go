package sanitizex

import (
	"net/url"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestCleanSingleLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "plain", input: "Acme", expected: "Acme"},
		{name: "trim", input: "  Acme Corp  ", expected: "Acme Corp"},
		{name: "collapse inner whitespace", input: "Acme \t\n  Corp", expected: "Acme Corp"},
		{name: "control characters become spaces", input: "site\x00-1\x1f2", expected: "site -1 2"},
		{name: "delete character", input: "user\u007f42", expected: "user 42"},
		{name: "only whitespace", input: " \t\r\n ", expected: ""},
		{name: "nfc normalization", input: "Café", expected: "Café"},
		{name: "unicode kept", input: "Компания  Акме", expected: "Компания Акме"},
		{name: "digits kept", input: "123456", expected: "123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CleanSingleLine(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.False(t, strings.ContainsFunc(got, unicode.IsControl))
		})
	}
}

func TestQueryParam(t *testing.T) {
	values := url.Values{
		"siteId":   []string{"  site-1 ", "ignored"},
		"authCode": []string{"12 34"},
	}

	assert.Equal(t, "site-1", QueryParam(values, "siteId"))
	assert.Equal(t, "12 34", QueryParam(values, "authCode"))
	assert.Equal(t, "", QueryParam(values, "missing"))
}

func BenchmarkCleanSingleLine(b *testing.B) {
	input := strings.Repeat("  Acme\tCorp \x00 ", 64)
	for b.Loop() {
		CleanSingleLine(input)
	}
}
