package domain

import (
	"bytes"
	"fmt"
	"strings"
)

// MaxLabelLength is the longest label a length byte may announce without
// colliding with the compression pointer prefix (0b11xxxxxx).
const MaxLabelLength = 63

// LabelSection is one length-prefixed component of a question name. The
// terminating section has Length 0 and no label bytes.
type LabelSection struct {
	Length uint8
	Label  []byte
}

// IsTerminator reports whether the section ends the name.
func (s LabelSection) IsTerminator() bool { return s.Length == 0 }

// Question is the single question carried by every message the relay handles.
// Sections always end with the zero-length terminator.
type Question struct {
	Sections []LabelSection
	Type     RRType
	Class    RRClass
}

// NewQuestion builds a Question from a dotted name such as "example.com".
// A trailing dot is ignored and the empty name (or ".") yields the root.
func NewQuestion(name string, rrtype RRType, class RRClass) (Question, error) {
	name = strings.TrimSuffix(name, ".")
	q := Question{Type: rrtype, Class: class}
	if name != "" {
		for _, label := range strings.Split(name, ".") {
			if label == "" {
				return Question{}, fmt.Errorf("empty label in %q", name)
			}
			if len(label) > MaxLabelLength {
				return Question{}, fmt.Errorf("label too long: %s", label)
			}
			q.Sections = append(q.Sections, LabelSection{
				Length: uint8(len(label)), //gosec:disable G115 -- bounded by MaxLabelLength
				Label:  []byte(label),
			})
		}
	}
	q.Sections = append(q.Sections, LabelSection{})
	return q, nil
}

// NameCount is the number of sections, terminator included.
func (q Question) NameCount() int { return len(q.Sections) }

// NameSize is the sum of all label lengths. The terminator contributes 0.
func (q Question) NameSize() int {
	n := 0
	for _, s := range q.Sections {
		n += int(s.Length)
	}
	return n
}

// Name renders the labels joined by dots, without a trailing dot.
// The root name renders as ".".
func (q Question) Name() string {
	var b strings.Builder
	for _, s := range q.Sections {
		if s.IsTerminator() {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.Write(s.Label)
	}
	if b.Len() == 0 {
		return "."
	}
	return b.String()
}

// Equal reports whether two questions share the same fingerprint: section
// count, name size, type, class and byte-identical labels in order.
// Comparison is case-sensitive on purpose; cache hits depend on it.
func (q Question) Equal(o Question) bool {
	if q.NameCount() != o.NameCount() || q.NameSize() != o.NameSize() ||
		q.Type != o.Type || q.Class != o.Class {
		return false
	}
	for i := range q.Sections {
		if q.Sections[i].Length != o.Sections[i].Length ||
			!bytes.Equal(q.Sections[i].Label, o.Sections[i].Label) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (q Question) Clone() Question {
	c := Question{Type: q.Type, Class: q.Class}
	if q.Sections != nil {
		c.Sections = make([]LabelSection, len(q.Sections))
		for i, s := range q.Sections {
			c.Sections[i] = LabelSection{Length: s.Length, Label: bytes.Clone(s.Label)}
		}
	}
	return c
}
