// Package aclrules implements the rule parser: reading a single
// access_control/ file into an ordered list of signed glob rules, and
// appending the implicit per-user tail that isolates namespaces.
package aclrules

import (
	"regexp"
)

// Polarity is whether a rule, when matched, allows or denies a path.
type Polarity bool

const (
	Include Polarity = true
	Exclude Polarity = false
)

func (p Polarity) String() string {
	if p == Include {
		return "include"
	}
	return "exclude"
}

// Rule is a single signed glob rule.
type Rule struct {
	Polarity Polarity
	Pattern  string
	// Raw is the rule normalized to the form actually evaluated: comments
	// and surrounding whitespace stripped, but the leading "!" (if any)
	// retained.
	Raw string
}

// usernamePattern is the DNS-1123 label rule a ServiceAccount name must
// satisfy.
var usernamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

const maxUsernameBytes = 63

func validUsername(name string) bool {
	return len(name) > 0 && len(name) <= maxUsernameBytes && usernamePattern.MatchString(name)
}
