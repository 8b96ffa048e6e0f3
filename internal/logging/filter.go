// Package logging provides zerolog helpers that keep secrets out of logs.
//
// Captured compiler environments inherit the whole host environment, so a
// snapshot can carry tokens, proxy credentials and cloud keys. Everything
// crucible writes to the log file or prints from a snapshot passes through
// the filters here first.
package logging

import (
	"io"
	"maps"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue is the replacement string for sensitive data.
const RedactedValue = "[REDACTED]"

//nolint:gochecknoglobals // Compiled once
var sensitivePatterns = []*regexp.Regexp{
	// GitHub tokens (ghp_, gho_, ghu_, ghs_, ghr_) and fine-grained PATs
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`github_pat_[a-zA-Z0-9_]{20,}`),

	// Provider API keys (sk-...)
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),

	// AWS access key IDs
	regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),

	// key=value secrets, skipping values an earlier pattern already redacted
	regexp.MustCompile(`(?i)(api[_-]?key|secret|password|passwd|token)\s*[:=]\s*["']?[^\s"'\[][^\s"']{7,}["']?`),

	// PEM private keys
	regexp.MustCompile(`-----BEGIN[A-Z ]*PRIVATE KEY-----`),
}

// urlCredentials matches user:password@ in URLs, common in HTTP_PROXY and
// registry settings.
//
//nolint:gochecknoglobals // Compiled once
var urlCredentials = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^\s:/@]+:[^\s@/]+@`)

// sensitiveNameParts mark an environment variable or log field whose value
// is always hidden. Matching is case-insensitive.
//
//nolint:gochecknoglobals // Lookup table
var sensitiveNameParts = []string{
	"token",
	"secret",
	"password",
	"passwd",
	"credential",
	"private_key",
	"api_key",
	"apikey",
	"access_key",
	"session_key",
	"authorization",
}

// SensitiveDataHook flags log events whose message looks like it carries a
// secret. zerolog hooks cannot rewrite messages, so the file writer is
// wrapped in a FilteringWriter as well.
type SensitiveDataHook struct{}

// NewSensitiveDataHook creates a SensitiveDataHook.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements zerolog.Hook.
func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// ContainsSensitiveData reports whether s matches any secret pattern.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return urlCredentials.MatchString(s)
}

// FilterSensitiveValue replaces every secret pattern match in value.
// URL credentials keep their scheme so the value stays recognizable.
func FilterSensitiveValue(value string) string {
	result := urlCredentials.ReplaceAllString(value, "${1}"+RedactedValue+"@")
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// IsSensitiveName reports whether a variable or field name indicates a secret.
func IsSensitiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, part := range sensitiveNameParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return strings.HasSuffix(lower, "_key")
}

// RedactIfSensitive hides value entirely when name is sensitive and filters
// it otherwise.
func RedactIfSensitive(name, value string) string {
	if IsSensitiveName(name) {
		return RedactedValue
	}
	return FilterSensitiveValue(value)
}

// RedactEnv returns a copy of vars safe to print or log.
func RedactEnv(vars map[string]string) map[string]string {
	out := maps.Clone(vars)
	for k, v := range out {
		out[k] = RedactIfSensitive(k, v)
	}
	return out
}

// FilteringWriter redacts secrets from everything written through it.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter wraps w.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer. It reports len(p) on success so callers never
// see a short write caused by redaction.
func (fw *FilteringWriter) Write(p []byte) (int, error) {
	if _, err := fw.w.Write([]byte(FilterSensitiveValue(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
