// Package compiler wires the path catalog, name mangler, rule parser and
// ACL evaluator together into the end-to-end pipeline: load a vault tree
// once, then either Generate its manifests or evaluate a single user's
// rules (User, Evaluate, EvaluateOne) for can-read.
package compiler

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/chezmoi-sh/kubevault/pkg/acl"
	"github.com/chezmoi-sh/kubevault/pkg/aclrules"
	"github.com/chezmoi-sh/kubevault/pkg/kvstore"
	"github.com/chezmoi-sh/kubevault/pkg/mangle"
	"github.com/chezmoi-sh/kubevault/pkg/manifest"
	"github.com/chezmoi-sh/kubevault/pkg/vaulterrors"
)

// Vault is a fully loaded and validated vault tree: the mangled secret
// catalog and every user's parsed ACL, ready for evaluation.
type Vault struct {
	Dir     string
	Catalog *kvstore.Catalog
	Named   []mangle.NamedEntry
	Users   []*aclrules.UserRules

	paths  []kvstore.Path
	logger logr.Logger
}

// Load validates the vault directory's shape, walks kvstore/, mangles the
// resulting catalog and parses every file under access_control/. Any
// failure here is fatal and nothing partial is returned.
func Load(ctx context.Context, vaultDir string, logger logr.Logger) (*Vault, error) {
	kvDir := filepath.Join(vaultDir, "kvstore")
	acDir := filepath.Join(vaultDir, "access_control")

	if !isDir(kvDir) {
		return nil, vaulterrors.New(vaulterrors.KindVaultStructureInvalid, kvDir, "kvstore directory is missing")
	}
	if !isDir(acDir) {
		return nil, vaulterrors.New(vaulterrors.KindVaultStructureInvalid, acDir, "access_control directory is missing")
	}

	catalog, err := kvstore.Walk(kvDir, logger)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	named, err := mangle.Catalog(catalog)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users, err := aclrules.ParseDir(acDir, logger)
	if err != nil {
		return nil, err
	}

	paths := make([]kvstore.Path, len(catalog.Entries))
	for i, e := range catalog.Entries {
		paths[i] = e.Path
	}

	return &Vault{Dir: vaultDir, Catalog: catalog, Named: named, Users: users, paths: paths, logger: logger}, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// User looks up a user's parsed ACL by name, returning
// vaulterrors.KindUnknownUser if no such file was present under
// access_control/.
func (v *Vault) User(name string) (*aclrules.UserRules, error) {
	for _, u := range v.Users {
		if u.User == name {
			return u, nil
		}
	}
	return nil, vaulterrors.New(vaulterrors.KindUnknownUser, name, "no access_control file for this user")
}

// Evaluate runs a user's rules against the whole catalog, returning one
// Decision per path in catalog order (the same order as v.Named, so callers
// needing the mangled Name alongside a Decision can zip them by index).
func (v *Vault) Evaluate(user *aclrules.UserRules) ([]acl.Decision, error) {
	start := time.Now()
	decisions, err := acl.Evaluate(user, v.paths)

	v.logger.V(1).Info("user rules evaluated", "event", "user_rules.evaluate",
		"user", user.User, "paths", len(v.paths), "duration", time.Since(start).Seconds(), "outcome", outcome(err))

	if err != nil {
		return nil, err
	}

	return decisions, nil
}

// EvaluateOne runs a user's rules against a single path, which need not be
// present in the catalog: can-read accepts an arbitrary path argument.
func (v *Vault) EvaluateOne(user *aclrules.UserRules, path kvstore.Path) (acl.Decision, error) {
	decisions, err := acl.Evaluate(user, []kvstore.Path{path})
	if err != nil {
		return acl.Decision{}, err
	}
	return decisions[0], nil
}

// Generate renders every Secret and every user's RBAC bundle, in the
// stable order the emitter requires: Secrets first in path-sorted order,
// then users in lexical order of username.
func (v *Vault) Generate(ctx context.Context, namespace string) (secretFiles []manifest.SecretFile, bundles []manifest.UserBundle, err error) {
	start := time.Now()
	defer func() {
		v.logger.V(1).Info("manifests generated", "event", "manifests.generate",
			"users", len(v.Users), "secrets", len(v.Named), "duration", time.Since(start).Seconds(), "outcome", outcome(err))
	}()

	if namespace == "" {
		namespace = manifest.DefaultNamespace
	}

	sortedNamed := append([]mangle.NamedEntry{}, v.Named...)
	sort.Slice(sortedNamed, func(i, j int) bool {
		return sortedNamed[i].Path.String() < sortedNamed[j].Path.String()
	})

	secretFiles = make([]manifest.SecretFile, 0, len(sortedNamed))
	for _, e := range sortedNamed {
		secretFiles = append(secretFiles, manifest.SecretFile{Name: e.Name, Secret: manifest.Secret(namespace, e)})
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	bundles = make([]manifest.UserBundle, 0, len(v.Users))
	for _, user := range v.Users {
		decisions, err := v.Evaluate(user)
		if err != nil {
			return nil, nil, err
		}

		allowedNames := make([]string, 0)
		for i, d := range decisions {
			if d.Verdict == acl.Allowed {
				allowedNames = append(allowedNames, v.Named[i].Name)
			}
		}
		sort.Strings(allowedNames)

		bundles = append(bundles, manifest.UserBundle{
			User:           user.User,
			ServiceAccount: manifest.ServiceAccount(namespace, user.User),
			TokenSecret:    manifest.TokenSecret(namespace, user.User),
			Role:           manifest.Role(namespace, user.User, allowedNames, user.RawRuleText()),
			RoleBinding:    manifest.RoleBinding(namespace, user.User),
		})
	}

	return secretFiles, bundles, nil
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}

	return "success"
}

// NameForPath returns the mangled name for a catalog path, for callers
// (can-read) that need to report both together.
func (v *Vault) NameForPath(p kvstore.Path) (string, bool) {
	for _, e := range v.Named {
		if e.Path.Equal(p) {
			return e.Name, true
		}
	}
	return "", false
}
