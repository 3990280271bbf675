package logger

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Entity payloads routinely carry customer PII. Anything logged at entity
// granularity goes through these helpers so emails, phone numbers and
// street addresses never reach the log sink in clear text.

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9 .\-()]{6,}[0-9]`)
)

// piiFieldNames marks payload keys whose values are redacted wholesale,
// regardless of content. Matching is case-insensitive on the leaf key.
var piiFieldNames = map[string]bool{
	"email":       true,
	"phone":       true,
	"mobile":      true,
	"telephone":   true,
	"address":     true,
	"street":      true,
	"address1":    true,
	"address2":    true,
	"postal_code": true,
	"zip":         true,
	"ssn":         true,
	"tax_id":      true,
}

const redactedPlaceholder = "[REDACTED]"

// RedactString masks email addresses and phone numbers inside free text.
// Error messages from platform clients often echo request payloads back.
func RedactString(s string) string {
	s = emailPattern.ReplaceAllString(s, redactedPlaceholder)
	s = phonePattern.ReplaceAllString(s, redactedPlaceholder)
	return s
}

// RedactPayload returns a deep copy of an entity payload with PII fields
// masked. The original map is never modified.
func RedactPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		if piiFieldNames[strings.ToLower(key)] {
			out[key] = redactedPlaceholder
			continue
		}
		out[key] = redactValue(value)
	}
	return out
}

func redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return RedactPayload(v)
	case []any:
		items := make([]any, len(v))
		for i, el := range v {
			items[i] = redactValue(el)
		}
		return items
	case string:
		return RedactString(v)
	default:
		return value
	}
}

// RedactedError wraps an error message as a zap field with PII masked
func RedactedError(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", RedactString(err.Error()))
}

// RedactedPayload wraps an entity payload as a zap field with PII masked
func RedactedPayload(key string, payload map[string]any) zap.Field {
	return zap.Any(key, RedactPayload(payload))
}
