package domain

// HeaderSize is the fixed size of a DNS header on the wire.
const HeaderSize = 12

// Flag bits of the 16-bit header flags word.
const (
	FlagQR uint16 = 1 << 15 // query (0) / response (1)
	FlagAA uint16 = 1 << 10 // authoritative answer
	FlagTC uint16 = 1 << 9  // truncated
	FlagRD uint16 = 1 << 8  // recursion desired
	FlagRA uint16 = 1 << 7  // recursion available

	opcodeShift        = 11
	opcodeMask  uint16 = 0xF << opcodeShift
	zMask       uint16 = 0x7 << 4
	rcodeMask   uint16 = 0x000F
)

// Header is the fixed 12-byte DNS message header. Fields are kept in host
// byte order; conversion to and from network order happens only in the codec.
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// IsQuery reports whether the QR bit is clear.
func (h Header) IsQuery() bool { return h.Flags&FlagQR == 0 }

// IsResponse reports whether the QR bit is set.
func (h Header) IsResponse() bool { return h.Flags&FlagQR != 0 }

// Opcode returns the 4-bit opcode field.
func (h Header) Opcode() uint8 {
	//gosec:disable G115 -- masked to 4 bits
	return uint8((h.Flags & opcodeMask) >> opcodeShift)
}

// Z returns the 3 reserved bits.
func (h Header) Z() uint8 {
	//gosec:disable G115 -- masked to 3 bits
	return uint8((h.Flags & zMask) >> 4)
}

func (h Header) Authoritative() bool      { return h.Flags&FlagAA != 0 }
func (h Header) Truncated() bool          { return h.Flags&FlagTC != 0 }
func (h Header) RecursionDesired() bool   { return h.Flags&FlagRD != 0 }
func (h Header) RecursionAvailable() bool { return h.Flags&FlagRA != 0 }

// RCode returns the 4-bit response code.
func (h Header) RCode() RCode {
	//gosec:disable G115 -- masked to 4 bits
	return RCode(h.Flags & rcodeMask)
}

// SetResponse sets or clears the QR bit.
func (h *Header) SetResponse(on bool) { h.setFlag(FlagQR, on) }

// SetRecursionDesired sets or clears the RD bit.
func (h *Header) SetRecursionDesired(on bool) { h.setFlag(FlagRD, on) }

// SetRCode replaces the low four bits of the flags word, leaving every other bit intact.
func (h *Header) SetRCode(rc RCode) {
	h.Flags = (h.Flags &^ rcodeMask) | (uint16(rc) & rcodeMask)
}

func (h *Header) setFlag(bit uint16, on bool) {
	if on {
		h.Flags |= bit
	} else {
		h.Flags &^= bit
	}
}
