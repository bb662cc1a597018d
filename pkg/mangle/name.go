// Package mangle implements the name mangler: the deterministic, lossy map
// from a kvstore SecretPath to a DNS-1123-compatible Kubernetes resource
// name, plus the collision detection that makes the lossiness safe.
package mangle

import (
	"regexp"
	"sort"
	"strings"

	"github.com/chezmoi-sh/kubevault/pkg/kvstore"
	"github.com/chezmoi-sh/kubevault/pkg/vaulterrors"
)

// maxNameBytes is the Kubernetes object name length limit.
const maxNameBytes = 253

var (
	disallowedRun = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRun     = regexp.MustCompile(`-{2,}`)
)

// Name derives the mangled resource name for a single path, without regard
// to collisions against the rest of the catalog — use Catalog to mangle a
// whole tree with collision detection. Segments are joined with "-" and
// lowercased; any run of characters outside [a-z0-9-], including a run of
// literal "-" already present in a segment, collapses to a single "-".
func Name(p kvstore.Path) (string, error) {
	joined := strings.Join(p, "-")
	lower := strings.ToLower(joined)
	collapsed := disallowedRun.ReplaceAllString(lower, "-")
	collapsed = hyphenRun.ReplaceAllString(collapsed, "-")
	trimmed := strings.Trim(collapsed, "-")

	if len(trimmed) > maxNameBytes {
		trimmed = trimmed[:maxNameBytes]
	}

	if trimmed == "" {
		return "", vaulterrors.New(vaulterrors.KindEmptySecretName, p.String(), "path mangles to an empty name")
	}

	return trimmed, nil
}

// NamedEntry is a kvstore.Entry augmented with its mangled Name.
type NamedEntry struct {
	Path kvstore.Path
	Name string
	Data map[string]string
}

// Catalog mangles every entry in cat, returning them in the same order
// along with their names, or the first vaulterrors.KindSecretNameCollision
// encountered (by name, in sorted order) if two or more distinct paths
// mangle to the same name.
func Catalog(cat *kvstore.Catalog) ([]NamedEntry, error) {
	named := make([]NamedEntry, 0, len(cat.Entries))
	pathsByName := map[string][]string{}

	for _, e := range cat.Entries {
		name, err := Name(e.Path)
		if err != nil {
			return nil, err
		}

		named = append(named, NamedEntry{Path: e.Path, Name: name, Data: e.Data})
		pathsByName[name] = append(pathsByName[name], e.Path.String())
	}

	names := make([]string, 0, len(pathsByName))
	for name := range pathsByName {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if paths := pathsByName[name]; len(paths) > 1 {
			return nil, vaulterrors.NewCollision(name, paths)
		}
	}

	return named, nil
}
