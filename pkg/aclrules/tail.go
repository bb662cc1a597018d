package aclrules

import "fmt"

// ImplicitTail returns the three rules appended after every user's own
// rules. They are fixed, always present regardless of what the user's file
// contains, and cannot be overridden because last-match-wins means nothing
// after them can flip their verdict.
func ImplicitTail(user string) []Rule {
	return []Rule{
		{Polarity: Exclude, Pattern: "*/users/**", Raw: "!*/users/**"},
		{Polarity: Include, Pattern: fmt.Sprintf("*/users/%s", user), Raw: fmt.Sprintf("*/users/%s", user)},
		{Polarity: Include, Pattern: fmt.Sprintf("*/users/%s/**", user), Raw: fmt.Sprintf("*/users/%s/**", user)},
	}
}
