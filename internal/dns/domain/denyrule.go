package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DenyRuleKind defines how a rule matches names.
//
// exact  - matches the name only
// suffix - matches the name and every subdomain below it
type DenyRuleKind uint8

const (
	DenyExact DenyRuleKind = iota
	DenySuffix
)

// String returns a stable string representation of the rule kind.
func (k DenyRuleKind) String() string {
	switch k {
	case DenyExact:
		return "exact"
	case DenySuffix:
		return "suffix"
	default:
		return fmt.Sprintf("DenyRuleKind(%d)", k)
	}
}

var (
	errRuleName   = errors.New("rule name must not be empty")
	errRuleSource = errors.New("rule source must not be empty")
	errRuleTime   = errors.New("rule addedAt must be set")
)

// DenyRule is a single entry of a denylist source.
// Name is canonical: lowercase with no trailing dot.
type DenyRule struct {
	Name    string
	Kind    DenyRuleKind
	Source  string
	AddedAt time.Time
}

// NewDenyRule constructs a DenyRule and validates it.
func NewDenyRule(name string, kind DenyRuleKind, source string, addedAt time.Time) (DenyRule, error) {
	r := DenyRule{
		Name:    strings.TrimSpace(name),
		Kind:    kind,
		Source:  strings.TrimSpace(source),
		AddedAt: addedAt,
	}
	if err := r.Validate(); err != nil {
		return DenyRule{}, err
	}
	return r, nil
}

// Validate checks required fields and the kind.
func (r DenyRule) Validate() error {
	switch {
	case r.Name == "":
		return errRuleName
	case r.Source == "":
		return errRuleSource
	case r.AddedAt.IsZero():
		return errRuleTime
	}
	if r.Kind != DenyExact && r.Kind != DenySuffix {
		return fmt.Errorf("unsupported DenyRuleKind: %d", r.Kind)
	}
	return nil
}

// DenyDecision is the outcome of evaluating a name against the denylist.
type DenyDecision struct {
	Denied      bool
	MatchedRule string
	Kind        DenyRuleKind
}

// Allow is the zero decision.
func Allow() DenyDecision { return DenyDecision{} }
