package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks secrets in log fields.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAPIKey       = "api_key"
	PatternAPIKeyHeader = "api_key_header"
	PatternBearerToken  = "bearer_token"
	PatternPassword     = "password"
)

var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	// sk- style keys
	{PatternAPIKey, `sk-[a-zA-Z0-9_-]{8,}`, "sk-***"},
	// "api-key: 0123abcd..." as it appears in dumped request headers
	{PatternAPIKeyHeader, `(?i)(api[-_]?key["']?\s*[:=]\s*["']?)[a-zA-Z0-9]{8,}`, "${1}***"},
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternPassword, `(?i)(password|passwd|pwd)\s*[:=]\s*[^\s&]+`, "$1=***"},
}

// sensitiveKeys are attribute key fragments whose values are always masked.
// "token" is matched separately so that token counts stay visible.
var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "api_key", "apikey", "api-key",
	"authorization", "dsn",
}

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
	return r
}

// RedactString masks secrets embedded in a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, pattern := range r.patterns {
		value = pattern.regex.ReplaceAllString(value, pattern.replacement)
	}
	return value
}

// RedactAttr returns a with secrets masked. Values under sensitive keys are
// replaced outright; other string values are scanned for known patterns.
// Groups are redacted recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	}

	if isSensitiveKey(a.Key) {
		if v.Kind() == slog.KindString {
			return slog.String(a.Key, RedactAPIKey(v.String()))
		}
		return slog.String(a.Key, "***")
	}

	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	if lowerKey == "token" || strings.HasSuffix(lowerKey, "_token") || strings.HasSuffix(lowerKey, "-token") {
		return true
	}
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// RedactAPIKey redacts an API key, keeping only a prefix.
func RedactAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 8 {
		return "***"
	}
	return apiKey[:4] + "***"
}
