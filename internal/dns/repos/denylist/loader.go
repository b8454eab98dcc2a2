package denylist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/domain"
	"github.com/haukened/rr-relay/internal/dns/repos/denylist/parsers"
)

type parseFunc func(r io.Reader, source string, logger log.Logger, now time.Time) ([]domain.DenyRule, error)

// parserFor picks a parser by file name: *.txt and *.list are plain lists,
// *.hosts and files named "hosts" are hosts files. Anything else is ignored.
func parserFor(name string) parseFunc {
	lower := strings.ToLower(name)
	switch {
	case lower == "hosts", strings.HasSuffix(lower, ".hosts"):
		return parsers.ParseHostsFile
	case strings.HasSuffix(lower, ".txt"), strings.HasSuffix(lower, ".list"):
		return parsers.ParsePlainList
	default:
		return nil
	}
}

// LoadDirectory parses every recognized file in dir, in name order, and
// returns the merged rules with duplicates across files removed.
func LoadDirectory(dir string, logger log.Logger, now time.Time) ([]domain.DenyRule, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read denylist directory: %w", err)
	}

	seen := make(map[string]struct{})
	var out []domain.DenyRule
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		parse := parserFor(e.Name())
		if parse == nil {
			logger.Debug(map[string]any{"file": e.Name()}, "Skipping unrecognized denylist file")
			continue
		}
		rules, err := parseFile(filepath.Join(dir, e.Name()), parse, logger, now)
		if err != nil {
			return nil, err
		}
		for _, r := range rules {
			key := r.Name + "|" + r.Kind.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, r)
		}
		logger.Info(map[string]any{"file": e.Name(), "rules": len(rules)}, "Loaded denylist file")
	}
	return out, nil
}

func parseFile(path string, parse parseFunc, logger log.Logger, now time.Time) ([]domain.DenyRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open denylist file: %w", err)
	}
	defer f.Close()

	rules, err := parse(f, filepath.Base(path), logger, now)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rules, nil
}
