// Package redact scrubs sensitive information from strings before they
// are logged or surfaced in error responses. Errors from content
// acquisition routinely embed credentials, provider API keys, and local
// file paths; redaction keeps those out of logs and API bodies.
package redact

import "regexp"

// Redaction placeholders
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
)

// rule pairs a pattern with its replacement. Rules are applied in order,
// so credential patterns run before the broader path and host patterns.
type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

var rules = []rule{
	// Connection strings with inline credentials
	{regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb|redis|amqp)://[^@\s]+@`), RedactedCredentialPlaceholder},

	// Password-style parameters
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), RedactedCredentialPlaceholder},

	// Provider API keys: OpenAI (sk-...), Google (AIza...), AWS (AKIA...)
	{regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}\b`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`\bAIza[A-Za-z0-9_-]{16,}\b`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`\bAKIA[A-Z0-9]{8,}\b`), RedactedKeyPlaceholder},

	// Generic key/token assignments
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`), RedactedKeyPlaceholder},

	// JWTs: three base64url segments starting with the standard header
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED_JWT]"},

	// Email addresses
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[REDACTED_EMAIL]"},

	// Panic output and goroutine dumps
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},

	// Filesystem paths, e.g. upload and temp audio locations
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`), RedactedPathPlaceholder},

	// Internal host names with optional ports
	{regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`), "[REDACTED_HOST]"},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
