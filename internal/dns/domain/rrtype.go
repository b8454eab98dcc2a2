package domain

import "fmt"

// RRType represents a DNS resource record type (e.g. A, AAAA, MX).
// See IANA DNS Parameters for assigned codes.
type RRType uint16

const (
	RRTypeA     RRType = 1
	RRTypeNS    RRType = 2
	RRTypeCNAME RRType = 5
	RRTypeSOA   RRType = 6
	RRTypePTR   RRType = 12
	RRTypeMX    RRType = 15
	RRTypeTXT   RRType = 16
	RRTypeAAAA  RRType = 28 // the only type the relay answers
	RRTypeSRV   RRType = 33
	RRTypeOPT   RRType = 41
	RRTypeHTTPS RRType = 65
	RRTypeANY   RRType = 255
)

var rrtypeNames = map[RRType]string{
	RRTypeA:     "A",
	RRTypeNS:    "NS",
	RRTypeCNAME: "CNAME",
	RRTypeSOA:   "SOA",
	RRTypePTR:   "PTR",
	RRTypeMX:    "MX",
	RRTypeTXT:   "TXT",
	RRTypeAAAA:  "AAAA",
	RRTypeSRV:   "SRV",
	RRTypeOPT:   "OPT",
	RRTypeHTTPS: "HTTPS",
	RRTypeANY:   "ANY",
}

// String returns the mnemonic for the type. Unknown values render as TYPEn.
func (t RRType) String() string {
	if s, ok := rrtypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TYPE%d", t)
}
