package utils

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CanonicalDNSName returns a DNS name in canonical form: trimmed, lowercased,
// and without trailing dots. The root name becomes "".
func CanonicalDNSName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	return strings.TrimRight(name, ".")
}

// IsPublicSuffix reports whether name is itself a public suffix such as "com"
// or "co.uk". Rules anchored there would deny whole registries.
func IsPublicSuffix(name string) bool {
	name = CanonicalDNSName(name)
	if name == "" {
		return false
	}
	suffix, _ := publicsuffix.PublicSuffix(name)
	return suffix == name
}

// Anchors lists name and each of its parents, most specific first:
// "a.b.c" yields "a.b.c", "b.c", "c".
func Anchors(name string) []string {
	name = CanonicalDNSName(name)
	if name == "" {
		return nil
	}
	out := []string{name}
	for {
		i := strings.IndexByte(name, '.')
		if i < 0 || i == len(name)-1 {
			return out
		}
		name = name[i+1:]
		out = append(out, name)
	}
}
