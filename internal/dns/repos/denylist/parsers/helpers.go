// Package parsers turns denylist source files into rules.
package parsers

import (
	"strings"
	"unicode"

	"github.com/haukened/rr-relay/internal/dns/common/utils"
	"github.com/haukened/rr-relay/internal/dns/domain"
)

// ruleKindFromRaw returns DenySuffix when the raw entry starts with "*." or
// ".", DenyExact otherwise.
func ruleKindFromRaw(raw string) domain.DenyRuleKind {
	if strings.HasPrefix(raw, "*.") || strings.HasPrefix(raw, ".") {
		return domain.DenySuffix
	}
	return domain.DenyExact
}

// isValidFQDN enforces:
//   - at most 255 characters
//   - at least two labels
//   - labels of 1 to 63 characters
//   - a first label starting with a letter, digit or wildcard
func isValidFQDN(name string) bool {
	if len(name) > 255 {
		return false
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) > domain.MaxLabelLength || len(label) == 0 {
			return false
		}
	}
	first := []rune(labels[0])[0]
	return isAlphaNumeric(first) || first == '*'
}

// normalizeDomainName strips suffix markers and canonicalizes.
func normalizeDomainName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "*.")
	name = strings.TrimPrefix(name, ".")
	return utils.CanonicalDNSName(name)
}

func isAlphaNumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func stripLineBOM(line string) string {
	return strings.TrimPrefix(line, "\uFEFF")
}

// classifyLine reports blank lines and whole-line comments.
func classifyLine(line string) (isEmpty, isComment bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true, false
	}
	return false, strings.HasPrefix(trimmed, "#")
}

func stripInlineComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}
