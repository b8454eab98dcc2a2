package parsers

import (
	"bufio"
	"io"
	"strings"
	"time"

	logpkg "github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/common/utils"
	"github.com/haukened/rr-relay/internal/dns/domain"
)

// ParsePlainList parses a newline-delimited list of names. Entries are exact
// unless prefixed with "*." or ".", which makes them suffix rules covering the
// name and everything below it.
//
// Comments (#), blank lines, a leading BOM, invalid names and duplicates are
// skipped, as are suffix rules on public suffixes such as "com". Output keeps
// first-seen order.
func ParsePlainList(r io.Reader, source string, logger logpkg.Logger, now time.Time) ([]domain.DenyRule, error) {
	scanner := bufio.NewScanner(r)

	// keyed by name and kind so a name may appear once as each
	seen := make(map[string]struct{})
	out := make([]domain.DenyRule, 0, 256)
	logger.Debug(map[string]any{"source": source}, "parse_plain_list_start")
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())

		if isEmpty, isComment := classifyLine(line); isEmpty || isComment {
			continue
		}

		s := strings.TrimSpace(stripInlineComment(line))
		kind := ruleKindFromRaw(s)
		name := normalizeDomainName(s)

		if !isValidFQDN(name) {
			logger.Debug(map[string]any{"line": lineNum, "raw": s, "name": name}, "skip_invalid_fqdn")
			continue
		}
		if kind == domain.DenySuffix && utils.IsPublicSuffix(name) {
			logger.Warn(map[string]any{"line": lineNum, "name": name, "source": source}, "Skipping suffix rule on a public suffix")
			continue
		}

		seenKey := name + "|" + kind.String()
		if _, ok := seen[seenKey]; ok {
			logger.Debug(map[string]any{"line": lineNum, "name": name, "kind": kind.String()}, "skip_duplicate")
			continue
		}

		rule, err := domain.NewDenyRule(name, kind, source, now)
		if err != nil {
			logger.Debug(map[string]any{"line": lineNum, "name": name, "error": err.Error()}, "skip_constructor_error")
			continue
		}
		out = append(out, rule)
		seen[seenKey] = struct{}{}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_plain_list_done")
	return out, nil
}
