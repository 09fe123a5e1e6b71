package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{name: "valid - normal ascii", email: "valid@gmail.com", expected: "va****@gmail.com"},
		{name: "empty", email: "", expected: ""},
		{name: "whitespace only", email: "   ", expected: ""},
		{name: "too short local - 1 rune", email: "a@b.c", expected: "a@b.c"},
		{name: "too short local - 2 runes", email: "ab@b.c", expected: "ab@b.c"},
		{name: "exact threshold - 3 runes", email: "abc@domain.com", expected: "ab****@domain.com"},
		{name: "multibyte local", email: "жанна@почта.рф", expected: "жа****@почта.рф"},
		{name: "no at sign", email: "not-an-email", expected: "not-an-email"},
		{name: "at sign first", email: "@domain.com", expected: "@domain.com"},
		{name: "at sign last", email: "user@", expected: "user@"},
		{name: "quoted local with at", email: `"a@b"@example.com`, expected: `"a****@example.com`},
		{name: "trims before redacting", email: "  someone@acme.com ", expected: "so****@acme.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, RedactEmail(tt.email))
		})
	}
}

func TestRedactSecret(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", RedactSecret(""))
	assert.Equal(t, "******", RedactSecret("123456"))
	assert.Equal(t, "********", RedactSecret("12345678"))
	assert.Equal(t, "********6789", RedactSecret("eyJhbGciOi6789"))
}
