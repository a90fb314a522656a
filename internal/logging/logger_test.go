package logging

import (
	"testing"
)

func TestSecretRedaction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "access token is redacted",
			input:    "AQoDYXdzEJr...token",
			expected: "[REDACTED]",
		},
		{
			name:     "empty secret is still redacted",
			input:    "",
			expected: "[REDACTED]",
		},
		{
			name:     "secret key is redacted",
			input:    "wJalrXUtnFEMI/K7MDENG",
			expected: "[REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Secret(tt.input).String()
			if result != tt.expected {
				t.Errorf("Secret(%q).String() = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSecretGoString(t *testing.T) {
	if got := Secret("session-token").GoString(); got != "[REDACTED]" {
		t.Errorf("Expected [REDACTED] for GoString, got %s", got)
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		secrets  []string
		expected string
	}{
		{
			name:     "single secret in message",
			input:    "wrote token abc123token to keychain",
			secrets:  []string{"abc123token"},
			expected: "wrote token [REDACTED] to keychain",
		},
		{
			name:     "short secrets are left alone",
			input:    "got ab from store",
			secrets:  []string{"ab"},
			expected: "got ab from store",
		},
		{
			name:     "multiple secrets",
			input:    "key=AKIAEXAMPLE secret=verysecretvalue",
			secrets:  []string{"AKIAEXAMPLE", "verysecretvalue"},
			expected: "key=[REDACTED] secret=[REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Redact(tt.input, tt.secrets); got != tt.expected {
				t.Errorf("Redact() = %q, want %q", got, tt.expected)
			}
		})
	}
}
