// Package kvstore implements the path catalog: a deterministic, depth-first
// walk of the kvstore/ tree that yields the ordered list of secret entries
// the rest of the compiler operates on.
package kvstore

import (
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"unicode/utf8"

	"github.com/go-logr/logr"

	"github.com/chezmoi-sh/kubevault/pkg/vaulterrors"
)

// Entry is a SecretEntry minus its mangled Name, which the mangle package
// derives from Path once the whole catalog is known (so that collisions can
// be detected across the full set).
type Entry struct {
	Path Path
	Data map[string]string
}

// Catalog is the ordered list of secret entries found under kvstore/. The
// order is the deterministic depth-first, lexicographically-sorted order
// Walk produces. Mangling keeps that order; emission re-sorts the entries by
// their full path string.
type Catalog struct {
	Entries []Entry
}

// inodeKey identifies a directory for cycle detection purposes.
type inodeKey struct {
	dev uint64
	ino uint64
}

// Walk builds a Catalog by recursively visiting root (the kvstore/
// directory), sorting each directory's children byte-wise on name before
// recursing, and parsing every regular file as a secret. Symlinks are
// followed; a symlink whose target directory has already been visited is
// reported as vaulterrors.KindCycleDetected instead of looping forever.
func Walk(root string, logger logr.Logger) (*Catalog, error) {
	cat := &Catalog{}
	visited := map[inodeKey]struct{}{}

	if err := walkDir(root, nil, visited, cat, logger); err != nil {
		return nil, err
	}

	return cat, nil
}

func walkDir(absDir string, rel Path, visited map[inodeKey]struct{}, cat *Catalog, logger logr.Logger) error {
	if err := markVisited(absDir, rel, visited); err != nil {
		return err
	}

	names, err := readSortedDirNames(absDir, rel)
	if err != nil {
		return err
	}

	for _, name := range names {
		if !utf8.ValidString(name) {
			return vaulterrors.New(vaulterrors.KindInvalidPath, joinRel(rel, name), "path contains non-UTF-8 bytes")
		}
		if !segmentPattern.MatchString(name) {
			return vaulterrors.New(vaulterrors.KindInvalidPath, joinRel(rel, name), "path segment contains disallowed characters")
		}

		absChild := filepath.Join(absDir, name)
		relChild := append(append(Path{}, rel...), name)

		info, err := os.Lstat(absChild)
		if err != nil {
			return vaulterrors.Wrap(err, vaulterrors.KindUnreadableFile, relChild.String(), "failed to stat path")
		}

		target := info
		resolved := absChild
		if info.Mode()&os.ModeSymlink != 0 {
			resolved, err = filepath.EvalSymlinks(absChild)
			if err != nil {
				return vaulterrors.Wrap(err, vaulterrors.KindUnreadableFile, relChild.String(), "failed to resolve symlink")
			}
			target, err = os.Stat(resolved)
			if err != nil {
				return vaulterrors.Wrap(err, vaulterrors.KindUnreadableFile, relChild.String(), "failed to stat symlink target")
			}
		}

		switch {
		case target.IsDir():
			if err := walkDir(resolved, relChild, visited, cat, logger); err != nil {
				return err
			}
		case target.Mode().IsRegular():
			logger.V(1).Info("parsing secret file", "event", "secret_file.parse", "path", relChild.String())

			data, err := parseSecretFile(resolved, relChild.String())
			if err != nil {
				return err
			}
			cat.Entries = append(cat.Entries, Entry{Path: relChild, Data: data})
		default:
			return vaulterrors.New(vaulterrors.KindUnreadableFile, relChild.String(), "not a regular file or directory")
		}
	}

	return nil
}

// markVisited registers dir's (device, inode) pair, returning
// KindCycleDetected if it has already been visited in this walk.
func markVisited(dir string, rel Path, visited map[inodeKey]struct{}) error {
	info, err := os.Stat(dir)
	if err != nil {
		return vaulterrors.Wrap(err, vaulterrors.KindUnreadableFile, rel.String(), "failed to stat directory")
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		// Can't determine inode identity on this platform; proceed without
		// cycle detection rather than failing spuriously.
		return nil
	}

	key := inodeKey{dev: uint64(stat.Dev), ino: stat.Ino}
	if _, seen := visited[key]; seen {
		return vaulterrors.New(vaulterrors.KindCycleDetected, rel.String(), "directory already visited in this walk")
	}
	visited[key] = struct{}{}

	return nil
}

func readSortedDirNames(dir string, rel Path) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, vaulterrors.Wrap(err, vaulterrors.KindUnreadableFile, rel.String(), "failed to read directory")
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names, nil
}

func joinRel(rel Path, name string) string {
	p := append(append(Path{}, rel...), name)
	return p.String()
}
