package domain

import (
	"bytes"
	"net/netip"
)

// Answer is a fixed-layout resource record. Name is the raw 16-bit owner
// field as received (normally a compression pointer back to the question) and
// is never expanded.
type Answer struct {
	Name     uint16
	Type     RRType
	Class    RRClass
	TTL      uint32
	RDLength uint16
	RData    []byte
}

// IPv6 returns the address carried by a well-formed AAAA answer.
func (a Answer) IPv6() (netip.Addr, bool) {
	if a.Type != RRTypeAAAA || len(a.RData) != 16 {
		return netip.Addr{}, false
	}
	return netip.AddrFrom16([16]byte(a.RData)), true
}

// Clone returns a deep copy.
func (a Answer) Clone() Answer {
	a.RData = bytes.Clone(a.RData)
	return a
}
