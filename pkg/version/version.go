// Package version holds the protocol and build versions of breadcrumbs.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Protocol is the discovery and frame protocol version implemented by this
// module. It is advertised in the DNS-SD TXT record.
const Protocol = "1.0"

// Build is the application version, set at link time with
// -ldflags "-X github.com/breadcrumbs/breadcrumbs-go/pkg/version.Build=...".
var Build = "dev"

// ProtocolVersion is a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtocolVersion, error) {
	majorStr, minorStr, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minorStr, ".") {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(majorStr, 10, 16)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}
	minor, err := strconv.ParseUint(minorStr, 10, 16)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// Current returns Protocol parsed.
func Current() ProtocolVersion {
	v, _ := Parse(Protocol)
	return v
}

func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible reports whether other shares the major version of v.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// CompatibleString reports whether s parses to a version compatible with
// Protocol. An empty s is accepted: older servers omit the field.
func CompatibleString(s string) bool {
	if s == "" {
		return true
	}
	v, err := Parse(s)
	if err != nil {
		return false
	}
	return Current().Compatible(v)
}
