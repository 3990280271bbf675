package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedactString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"email", "duplicate contact ada@example.com", "duplicate contact [REDACTED]"},
		{"phone", "call +1 (555) 010-2233 failed", "call [REDACTED] failed"},
		{"both", "ada@example.com / 555-010-2233", "[REDACTED] / [REDACTED]"},
		{"clean", "entity o-17 not found", "entity o-17 not found"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RedactString(tt.input))
		})
	}
}

func TestRedactPayload(t *testing.T) {
	payload := map[string]any{
		"name":  "Ada",
		"Email": "ada@example.com",
		"shipping": map[string]any{
			"street": "12 Fleet St",
			"city":   "London",
		},
		"notes": []any{"prefers ada@example.com", "net 30"},
		"total": 42,
	}

	out := RedactPayload(payload)

	assert.Equal(t, "Ada", out["name"])
	assert.Equal(t, "[REDACTED]", out["Email"])
	shipping := out["shipping"].(map[string]any)
	assert.Equal(t, "[REDACTED]", shipping["street"])
	assert.Equal(t, "London", shipping["city"])
	notes := out["notes"].([]any)
	assert.Equal(t, "prefers [REDACTED]", notes[0])
	assert.Equal(t, 42, out["total"])

	t.Run("original untouched", func(t *testing.T) {
		assert.Equal(t, "ada@example.com", payload["Email"])
		assert.Equal(t, "12 Fleet St", payload["shipping"].(map[string]any)["street"])
	})

	t.Run("nil payload", func(t *testing.T) {
		assert.Nil(t, RedactPayload(nil))
	})
}

func TestRedactedError(t *testing.T) {
	field := RedactedError(errors.New("contact ada@example.com exists"))
	assert.Equal(t, "error", field.Key)
	assert.Equal(t, "contact [REDACTED] exists", field.String)

	t.Run("nil error", func(t *testing.T) {
		assert.Equal(t, zap.Skip(), RedactedError(nil))
	})
}

func TestRedactedPayload(t *testing.T) {
	field := RedactedPayload("payload", map[string]any{"email": "ada@example.com"})
	require.Equal(t, "payload", field.Key)
	masked, ok := field.Interface.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "[REDACTED]", masked["email"])
}
