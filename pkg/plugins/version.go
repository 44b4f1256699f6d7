package plugins

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var versionRegex = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:\.(\d+))?$`)

// Version is a four-component version ordered lexicographically by
// major, minor, build, revision. Components that are not written are zero.
type Version [4]int

// ParseVersion parses "1", "1.2", "1.2.3" or "1.2.3.4", with an optional leading "v".
func ParseVersion(s string) (Version, error) {
	var v Version

	matches := versionRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return v, fmt.Errorf("invalid version format: %q", s)
	}

	for i := 0; i < 4; i++ {
		part := matches[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return v, fmt.Errorf("invalid version component %q in %q: %w", part, s, err)
		}
		v[i] = n
	}

	return v, nil
}

// MustParseVersion is ParseVersion for constants and tests.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) Major() int    { return v[0] }
func (v Version) Minor() int    { return v[1] }
func (v Version) Build() int    { return v[2] }
func (v Version) Revision() int { return v[3] }

// Compare returns -1, 0 or 1.
func (v Version) Compare(other Version) int {
	for i := 0; i < 4; i++ {
		if v[i] < other[i] {
			return -1
		}
		if v[i] > other[i] {
			return 1
		}
	}
	return 0
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// IsZero reports whether v is 0.0.0.0, which as a minimum version means "any".
func (v Version) IsZero() bool {
	return v == Version{}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
