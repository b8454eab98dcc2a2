// Package domain holds the relay's message model: a decoded DNS message with
// exactly one question, its answers, and an opaque trailing span.
package domain

import "bytes"

// Message is the unit exchanged between client, relay and upstream.
type Message struct {
	// Length is the 2-byte stream framing prefix as read from the wire.
	Length   uint16
	Header   Header
	Question Question
	Answers  []Answer
	// Additional holds every byte after the last answer, uninterpreted.
	Additional []byte
}

// Domain returns the question name in dotted form.
func (m *Message) Domain() string { return m.Question.Name() }

// FirstAnswer returns the first answer, if any.
func (m *Message) FirstAnswer() (Answer, bool) {
	if len(m.Answers) == 0 {
		return Answer{}, false
	}
	return m.Answers[0], true
}

// IsSupportedQuery reports whether the message is a query for the one type
// the relay resolves.
func (m *Message) IsSupportedQuery() bool {
	return m.Header.IsQuery() && m.Question.Type == RRTypeAAAA
}

// MarkNotImplemented turns a query into a "not implemented" response in place:
// QR=1, RCODE=4, RD=0. Every other header bit and section is left untouched.
func (m *Message) MarkNotImplemented() { m.reject(RCodeNotImp) }

// MarkRefused turns a query into a "refused" response in place (QR=1,
// RCODE=5, RD=0).
func (m *Message) MarkRefused() { m.reject(RCodeRefused) }

func (m *Message) reject(rc RCode) {
	m.Header.SetResponse(true)
	m.Header.SetRCode(rc)
	m.Header.SetRecursionDesired(false)
}

// IsNotImplemented reports whether the RCODE field holds the not-implemented pattern.
func (m *Message) IsNotImplemented() bool { return m.Header.RCode() == RCodeNotImp }

// Clone returns a deep copy that shares no memory with m.
func (m *Message) Clone() *Message {
	c := &Message{
		Length:     m.Length,
		Header:     m.Header,
		Question:   m.Question.Clone(),
		Additional: bytes.Clone(m.Additional),
	}
	if m.Answers != nil {
		c.Answers = make([]Answer, len(m.Answers))
		for i, a := range m.Answers {
			c.Answers[i] = a.Clone()
		}
	}
	return c
}
