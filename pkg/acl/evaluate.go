// Package acl implements the ACL evaluator: applying a user's ordered rule
// set against the path catalog under last-match-wins semantics, producing
// the per-path Decisions and the AllowedPaths projection that the emitter
// and the can-read introspection need.
package acl

import (
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/chezmoi-sh/kubevault/pkg/aclrules"
	"github.com/chezmoi-sh/kubevault/pkg/kvstore"
	"github.com/chezmoi-sh/kubevault/pkg/vaulterrors"
)

// Verdict is the outcome of evaluating a user's rules against one path.
type Verdict int

const (
	NotMatched Verdict = iota
	Allowed
	Denied
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "not matched"
	}
}

// Decision is the per-(user, path) outcome, including a reference to the
// rule that decided it so that can-read --show-denied can explain itself.
type Decision struct {
	Path    kvstore.Path
	Verdict Verdict
	// Winner is the rule that produced the final verdict, or nil if no rule
	// in the user's list (including the implicit tail) matched the path.
	Winner *aclrules.Rule
}

// Evaluate runs rules.All against every path in order, last-match-wins:
// each matching rule overwrites the running verdict, so the final matching
// rule — not the first — determines the outcome.
func Evaluate(rules *aclrules.UserRules, paths []kvstore.Path) ([]Decision, error) {
	out := make([]Decision, len(paths))

	for i, p := range paths {
		target := p.String()
		d := Decision{Path: p, Verdict: NotMatched}

		for idx := range rules.All {
			rule := &rules.All[idx]

			matched, err := doublestar.Match(rule.Pattern, target)
			if err != nil {
				return nil, vaulterrors.Wrap(err, vaulterrors.KindBadGlob,
					fmt.Sprintf("%s: %s", rules.User, rule.Raw), "pattern failed to match path "+target)
			}

			if !matched {
				continue
			}

			if rule.Polarity == aclrules.Include {
				d.Verdict = Allowed
			} else {
				d.Verdict = Denied
			}
			d.Winner = rule
		}

		out[i] = d
	}

	return out, nil
}

// AllowedPaths returns the sorted set of paths that were Allowed.
func AllowedPaths(decisions []Decision) []kvstore.Path {
	paths := make([]kvstore.Path, 0, len(decisions))
	for _, d := range decisions {
		if d.Verdict == Allowed {
			paths = append(paths, d.Path)
		}
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i].String() < paths[j].String() })

	return paths
}
