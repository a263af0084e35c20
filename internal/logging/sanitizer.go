package logging

import (
	"regexp"
	"strings"
)

// secretPatterns match credential material that must never reach a log
// line verbatim: provider API keys for the HTTP completion backend,
// bearer tokens, and generic key/secret/password assignments.
var secretPatterns = []string{
	`sk-ant-[a-zA-Z0-9-]{40,}`,
	`sk-[A-Za-z0-9_-]{20,}`,
	`AIza[a-zA-Z0-9_-]{35}`,
	`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`,
	`(?i)api[_-]?key["'\s:=]+[a-zA-Z0-9_-]{20,}`,
	`(?i)secret["'\s:=]+[a-zA-Z0-9_-]{20,}`,
	`(?i)token["'\s:=]+[a-zA-Z0-9_-]{20,}`,
	`(?i)password["'\s:=]+[^\s"']{8,}`,
}

// Sanitizer redacts secret-shaped substrings from log output.
type Sanitizer struct {
	re       *regexp.Regexp
	redacted string
}

// NewSanitizer compiles the default patterns into one matcher.
func NewSanitizer() *Sanitizer {
	combined := "(?:" + strings.Join(secretPatterns, ")|(?:") + ")"
	return &Sanitizer{
		re:       regexp.MustCompile(combined),
		redacted: "[REDACTED]",
	}
}

// Sanitize replaces every match with the redaction marker.
func (s *Sanitizer) Sanitize(input string) string {
	if !s.re.MatchString(input) {
		return input
	}
	return s.re.ReplaceAllString(input, s.redacted)
}
