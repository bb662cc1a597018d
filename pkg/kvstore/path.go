package kvstore

import (
	"regexp"
	"strings"
)

// segmentPattern is the character class every path segment of a SecretPath
// must satisfy.
var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// keyPattern is the character class every stringData key must satisfy
// (DNS subdomain-compatible).
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Path is a relative path under kvstore/, stored as its segments rather than
// a raw string so that callers never have to worry about separator
// normalisation or OS-specific path handling when comparing or mangling it.
type Path []string

func (p Path) String() string {
	return strings.Join(p, "/")
}

// NewPath splits a "/"-separated relative path into its segments. It does
// not validate the segments; callers that read paths off disk should do so
// through Walk, which validates as it goes.
func NewPath(s string) Path {
	return strings.Split(s, "/")
}

// Equal reports whether two paths have the same segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
