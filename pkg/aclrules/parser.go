package aclrules

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-logr/logr"

	"github.com/chezmoi-sh/kubevault/pkg/vaulterrors"
)

// UserRules is a user's parsed ACL file: the rules they wrote, and the full
// ordered list (user rules followed by the implicit tail) that the ACL
// evaluator actually runs against the catalog.
type UserRules struct {
	User        string
	UserDefined []Rule
	All         []Rule
}

// RawRuleText renders the rules that were actually evaluated, one per line,
// for the kubevault.chezmoi.sh/rules annotation.
func (u *UserRules) RawRuleText() string {
	lines := make([]string, 0, len(u.All))
	for _, r := range u.All {
		lines = append(lines, r.Raw)
	}
	return strings.Join(lines, "\n")
}

// ParseDir reads every file under access_control/, validating that each
// filename is a DNS-1123-compatible username, and returns one UserRules per
// file in lexical order of username. A malformed ACL file or invalid
// username aborts the whole parse: there is no partial success across
// users.
func ParseDir(dir string, logger logr.Logger) ([]*UserRules, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, vaulterrors.Wrap(err, vaulterrors.KindUnreadableFile, dir, "failed to read access_control directory")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	users := make([]*UserRules, 0, len(names))
	for _, user := range names {
		if !validUsername(user) {
			return nil, vaulterrors.New(vaulterrors.KindInvalidUserName, user, "username is not a valid DNS-1123 label")
		}

		logger.V(1).Info("parsing access control file", "event", "acl_file.parse", "user", user)

		ur, err := ParseFile(filepath.Join(dir, user), user)
		if err != nil {
			return nil, err
		}
		users = append(users, ur)
	}

	return users, nil
}

// ParseFile parses a single ACL file and appends the implicit tail for the
// given user.
func ParseFile(path, user string) (*UserRules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, vaulterrors.Wrap(err, vaulterrors.KindUnreadableFile, path, "failed to open ACL file")
	}
	defer f.Close()

	var rules []Rule
	scanner := bufio.NewScanner(f)

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		leftTrimmed := strings.TrimLeft(line, " \t")

		if leftTrimmed == "" {
			continue // empty or whitespace-only line
		}
		if leftTrimmed[0] == '#' {
			continue // comment
		}

		content := strings.TrimRight(leftTrimmed, " \t\r")

		polarity := Include
		pattern := content
		if strings.HasPrefix(content, "!") {
			polarity = Exclude
			pattern = content[1:]
		}

		if err := validatePattern(pattern); err != nil {
			return nil, vaulterrors.New(vaulterrors.KindBadGlob, fmt.Sprintf("%s line %d", user, lineNo), err.Error())
		}

		rules = append(rules, Rule{Polarity: polarity, Pattern: pattern, Raw: content})
	}

	if err := scanner.Err(); err != nil {
		return nil, vaulterrors.Wrap(err, vaulterrors.KindUnreadableFile, path, "failed to read ACL file")
	}

	return &UserRules{
		User:        user,
		UserDefined: rules,
		All:         append(append([]Rule{}, rules...), ImplicitTail(user)...),
	}, nil
}

// validatePattern rejects a glob pattern that doublestar can't parse,
// instead of letting the failure surface lazily the first time the pattern
// is matched against a catalog path.
func validatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("empty glob pattern")
	}

	if _, err := doublestar.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	return nil
}
