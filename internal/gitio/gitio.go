// Package gitio provides Git repository I/O operations using go-git.
package gitio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gitobject "github.com/go-git/go-git/v5/plumbing/object"

	"glcm/internal/object"
	"glcm/internal/store"
)

// Repository wraps a go-git repository and implements store.Backend.
type Repository struct {
	repo *git.Repository
	root string
}

var _ store.Backend = (*Repository)(nil)
var _ store.BlobReader = (*Repository)(nil)

// Open opens the Git repository containing repoPath.
func Open(repoPath string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return Wrap(repo), nil
}

// Wrap adapts an already opened go-git repository.
func Wrap(repo *git.Repository) *Repository {
	r := &Repository{repo: repo}
	if wt, err := repo.Worktree(); err == nil {
		r.root = wt.Filesystem.Root()
	}
	return r
}

// Root returns the work tree root, or "" for a bare repository.
func (r *Repository) Root() string {
	return r.root
}

// ResolveRevision resolves a branch name, tag, commit hash or revision
// expression (HEAD, HEAD~2, short hash) to a commit.
func (r *Repository) ResolveRevision(spec string) (object.RevisionID, error) {
	// Try as a branch first
	if ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(spec), true); err == nil {
		return r.commitID(ref.Hash())
	}

	// Try as a tag
	if ref, err := r.repo.Reference(plumbing.NewTagReferenceName(spec), true); err == nil {
		return r.commitID(ref.Hash())
	}

	// Try as a full commit hash
	if plumbing.IsHash(spec) {
		if c, err := r.repo.CommitObject(plumbing.NewHash(spec)); err == nil {
			return object.RevisionID(c.Hash.String()), nil
		}
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(spec))
	if isMissing(err) {
		return "", fmt.Errorf("resolving %q: not a branch, tag, or commit: %w", spec, store.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", spec, err)
	}
	return r.commitID(*hash)
}

// isMissing reports whether a go-git lookup failed because the name or object
// does not exist, as opposed to a read failure. Walking ~N past a root commit
// ends the parent iterator with io.EOF.
func isMissing(err error) bool {
	return errors.Is(err, plumbing.ErrReferenceNotFound) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, plumbing.ErrObjectNotFound) ||
		errors.Is(err, gitobject.ErrParentNotFound)
}

// commitID peels annotated tags down to the commit they point at.
func (r *Repository) commitID(hash plumbing.Hash) (object.RevisionID, error) {
	if tag, err := r.repo.TagObject(hash); err == nil {
		c, err := tag.Commit()
		if err != nil {
			return "", fmt.Errorf("peeling tag %s: %w", tag.Name, err)
		}
		return object.RevisionID(c.Hash.String()), nil
	}
	c, err := r.repo.CommitObject(hash)
	if err != nil {
		return "", fmt.Errorf("getting commit: %w", err)
	}
	return object.RevisionID(c.Hash.String()), nil
}

func (r *Repository) commit(rev object.RevisionID) (*gitobject.Commit, error) {
	c, err := r.repo.CommitObject(plumbing.NewHash(string(rev)))
	if err != nil {
		return nil, fmt.Errorf("getting commit %s: %w", rev, err)
	}
	return c, nil
}

// RootDirectory returns the tree hash of a commit.
func (r *Repository) RootDirectory(rev object.RevisionID) (object.Fingerprint, error) {
	c, err := r.commit(rev)
	if err != nil {
		return "", err
	}
	return object.Fingerprint(c.TreeHash.String()), nil
}

// Parents returns the parent hashes of a commit in recorded order.
func (r *Repository) Parents(rev object.RevisionID) ([]object.RevisionID, error) {
	c, err := r.commit(rev)
	if err != nil {
		return nil, err
	}
	parents := make([]object.RevisionID, len(c.ParentHashes))
	for i, h := range c.ParentHashes {
		parents[i] = object.RevisionID(h.String())
	}
	return parents, nil
}

// SummaryMessage returns the first paragraph of a commit message on one line.
func (r *Repository) SummaryMessage(rev object.RevisionID) (string, error) {
	c, err := r.commit(rev)
	if err != nil {
		return "", err
	}
	return Summary(c.Message), nil
}

// Summary collapses the first paragraph of a commit message into one line.
func Summary(message string) string {
	message = strings.TrimLeft(message, " \t\r\n")
	if i := strings.Index(message, "\n\n"); i >= 0 {
		message = message[:i]
	}
	return strings.Join(strings.Fields(message), " ")
}

func (r *Repository) tree(dir object.Fingerprint) (*gitobject.Tree, error) {
	t, err := r.repo.TreeObject(plumbing.NewHash(string(dir)))
	if err != nil {
		return nil, fmt.Errorf("getting tree %s: %w", dir, err)
	}
	return t, nil
}

// DirectoryEntries lists a tree's entries in stored (Git canonical) order.
func (r *Repository) DirectoryEntries(dir object.Fingerprint) ([]object.DirectoryEntry, error) {
	t, err := r.tree(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]object.DirectoryEntry, 0, len(t.Entries))
	for _, te := range t.Entries {
		e, err := toEntry(te)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Descend looks up a direct child of a tree by name.
func (r *Repository) Descend(dir object.Fingerprint, name string) (object.DirectoryEntry, error) {
	t, err := r.tree(dir)
	if err != nil {
		return object.DirectoryEntry{}, err
	}
	for _, te := range t.Entries {
		if te.Name == name {
			return toEntry(te)
		}
	}
	return object.DirectoryEntry{}, fmt.Errorf("%s in tree %s: %w", name, dir, store.ErrNotFound)
}

func toEntry(te gitobject.TreeEntry) (object.DirectoryEntry, error) {
	kind, err := object.Classify(uint32(te.Mode))
	if err != nil {
		return object.DirectoryEntry{}, fmt.Errorf("entry %s: %w", te.Name, err)
	}
	return object.DirectoryEntry{
		Name:        te.Name,
		Kind:        kind,
		Fingerprint: object.Fingerprint(te.Hash.String()),
	}, nil
}

// ReadBlob returns the content of a blob.
func (r *Repository) ReadBlob(fp object.Fingerprint) ([]byte, error) {
	blob, err := r.repo.BlobObject(plumbing.NewHash(string(fp)))
	if err != nil {
		return nil, fmt.Errorf("getting blob %s: %w", fp, err)
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening blob %s: %w", fp, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", fp, err)
	}
	return content, nil
}
