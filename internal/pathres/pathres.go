// Package pathres turns user-supplied paths into repository-relative paths
// and resolves them against a revision's directory tree.
package pathres

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"glcm/internal/object"
	"glcm/internal/store"
)

// PathNotFoundError indicates the path does not exist at a revision.
type PathNotFoundError struct {
	Path     string
	Revision object.RevisionID
}

func (e *PathNotFoundError) Error() string {
	if e.Revision == "" {
		return fmt.Sprintf("path not found: %s", e.Path)
	}
	return fmt.Sprintf("path not found: %s (at %s)", e.Path, e.Revision.Short())
}

// NotDirectoryError indicates the path exists but names a non-directory.
type NotDirectoryError struct {
	Path  string
	Entry object.DirectoryEntry
}

func (e *NotDirectoryError) Error() string {
	return fmt.Sprintf("%s is a %s, not a directory", e.Path, e.Entry.Kind)
}

// Normalize cleans p and strips any drive, root or current-directory markers
// so the result is a slash-separated sequence of child names relative to the
// repository root. The empty string denotes the root itself. A ".." left at
// the front after cleaning escapes the repository and is a *PathNotFoundError.
func Normalize(p string) (string, error) {
	orig := p
	p = strings.TrimPrefix(p, filepath.VolumeName(p))
	// Strip the root before cleaning so "/.." keeps its escaping "..".
	p = strings.TrimLeft(filepath.ToSlash(p), "/")
	p = path.Clean(p)

	if p == "." || p == "" {
		return "", nil
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", &PathNotFoundError{Path: orig}
	}
	return p, nil
}

// RelativeTo rewrites an absolute path inside root as a root-relative path.
// Paths outside root, and relative paths, are returned unchanged.
func RelativeTo(root, p string) string {
	if root == "" || !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}

// Split returns the child names of a normalized path.
func Split(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Resolve descends from the root directory of rev along p and returns the
// terminal entry. The root itself is returned as a nameless directory entry.
func Resolve(b store.Backend, rev object.RevisionID, p string) (object.DirectoryEntry, error) {
	rel, err := Normalize(p)
	if err != nil {
		var nf *PathNotFoundError
		if errors.As(err, &nf) {
			nf.Revision = rev
		}
		return object.DirectoryEntry{}, err
	}

	root, err := b.RootDirectory(rev)
	if err != nil {
		return object.DirectoryEntry{}, store.Wrap("reading root of "+rev.Short(), err)
	}

	current := object.DirectoryEntry{Kind: object.KindDirectory, Fingerprint: root}
	for _, name := range Split(rel) {
		if !current.IsDir() {
			return object.DirectoryEntry{}, &PathNotFoundError{Path: rel, Revision: rev}
		}
		child, err := b.Descend(current.Fingerprint, name)
		if errors.Is(err, store.ErrNotFound) {
			return object.DirectoryEntry{}, &PathNotFoundError{Path: rel, Revision: rev}
		}
		if err != nil {
			return object.DirectoryEntry{}, store.Wrap("descending into "+name, err)
		}
		current = child
	}
	return current, nil
}

// ResolveDirectory is Resolve restricted to directories.
func ResolveDirectory(b store.Backend, rev object.RevisionID, p string) (object.DirectoryEntry, error) {
	entry, err := Resolve(b, rev, p)
	if err != nil {
		return object.DirectoryEntry{}, err
	}
	if !entry.IsDir() {
		rel, _ := Normalize(p)
		return object.DirectoryEntry{}, &NotDirectoryError{Path: rel, Entry: entry}
	}
	return entry, nil
}

// IsMissing reports whether err means the path is absent or not a directory
// at the revision it was resolved against.
func IsMissing(err error) bool {
	var nf *PathNotFoundError
	var nd *NotDirectoryError
	return errors.As(err, &nf) || errors.As(err, &nd)
}
