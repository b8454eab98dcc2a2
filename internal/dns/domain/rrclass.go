package domain

import "fmt"

// RRClass represents a DNS class (usually IN for Internet).
type RRClass uint16

const (
	RRClassIN  RRClass = 1
	RRClassCH  RRClass = 3
	RRClassHS  RRClass = 4
	RRClassANY RRClass = 255
)

// String returns the mnemonic for the class. Unknown values render as CLASSn.
func (c RRClass) String() string {
	switch c {
	case RRClassIN:
		return "IN"
	case RRClassCH:
		return "CH"
	case RRClassHS:
		return "HS"
	case RRClassANY:
		return "ANY"
	default:
		return fmt.Sprintf("CLASS%d", c)
	}
}
