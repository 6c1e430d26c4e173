// Package redact masks credentials before tool-call content is written to
// logs or audit records.
package redact

import (
	"regexp"
	"strings"
)

const Placeholder = "[REDACTED]"

type rule struct {
	name string
	re   *regexp.Regexp
}

var rules = []rule{
	{"aws_assignment", regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`)},
	{"aws_key_id", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"github_assignment", regexp.MustCompile(`(?i)(github_token|gh_token|github_pat)\s*[=:]\s*['"]?[A-Za-z0-9_-]{30,}['"]?`)},
	{"github_token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`)},
	{"api_key_assignment", regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|secretkey|secret-key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`)},
	{"private_key", regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`)},
	{"bearer", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_.-]{20,}`)},
	{"url_credentials", regexp.MustCompile(`https?://[^:/\s]+:[^@\s]+@`)},
	{"slack_token", regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`)},
	{"stripe_key", regexp.MustCompile(`[sr]k_live_[0-9a-zA-Z]{24}`)},
	{"password_assignment", regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`)},
}

// Redact replaces every credential-looking substring with Placeholder.
func Redact(input string) string {
	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, Placeholder)
	}
	return result
}

// Preview redacts s and truncates it to at most n runes, appending "..."
// when anything was cut. Newlines are flattened so the result fits one log
// line.
func Preview(s string, n int) string {
	s = strings.Join(strings.Fields(Redact(s)), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
