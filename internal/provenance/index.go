// Package provenance attributes directory entries to the oldest revision that
// carried their current content.
package provenance

import (
	"context"
	"log/slog"

	"glcm/internal/object"
	"glcm/internal/pathres"
	"glcm/internal/store"
)

// Options tunes a provenance walk.
type Options struct {
	// MaxRevisions caps the number of ancestor revisions walked (0 = unbounded).
	MaxRevisions int
	// Logger receives debug output about the walk. Nil discards it.
	Logger *slog.Logger
}

// identity is what makes two entries the same content: a mode change alone
// (chmod +x, file to symlink) is a new identity.
type identity struct {
	kind object.EntryKind
	fp   object.Fingerprint
}

// Index maps entry identities (kind and fingerprint) to the oldest revision
// observed carrying them.
type Index struct {
	attributions map[identity]object.RevisionID

	// Visited is the number of distinct revisions walked.
	Visited int
	// Indexed is the number of walked revisions where the path existed.
	Indexed int
	// Truncated is set when MaxRevisions stopped the walk early.
	Truncated bool
}

func newIndex() *Index {
	return &Index{attributions: make(map[identity]object.RevisionID)}
}

// Lookup returns the revision attributed to an entry of the given kind and
// fingerprint.
func (ix *Index) Lookup(kind object.EntryKind, fp object.Fingerprint) (object.RevisionID, bool) {
	rev, ok := ix.attributions[identity{kind: kind, fp: fp}]
	return rev, ok
}

// Len returns the number of distinct identities indexed.
func (ix *Index) Len() int {
	return len(ix.attributions)
}

// record stores rev for e, replacing any earlier value. Callers feed
// revisions children-first, so the last write is the oldest carrier.
func (ix *Index) record(e object.DirectoryEntry, rev object.RevisionID) {
	ix.attributions[identity{kind: e.Kind, fp: e.Fingerprint}] = rev
}

// Builder builds provenance indexes against a backend.
type Builder struct {
	backend store.Backend
	opts    Options
	logger  *slog.Logger
}

// NewBuilder creates a new index builder.
func NewBuilder(b store.Backend, opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{backend: b, opts: opts, logger: logger}
}

// Build walks the ancestry of start and indexes every immediate child of the
// directory at path, in every revision where that directory exists.
func (bd *Builder) Build(ctx context.Context, start object.RevisionID, path string) (*Index, error) {
	rel, err := pathres.Normalize(path)
	if err != nil {
		return nil, err
	}

	order, truncated, err := ancestry(ctx, bd.backend, start, bd.opts.MaxRevisions)
	if err != nil {
		return nil, err
	}

	ix := newIndex()
	ix.Visited = len(order)
	ix.Truncated = truncated

	// Unchanged directories are shared between consecutive revisions.
	listed := make(map[object.Fingerprint][]object.DirectoryEntry)

	for _, rev := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir, err := pathres.ResolveDirectory(bd.backend, rev, rel)
		if pathres.IsMissing(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		entries, ok := listed[dir.Fingerprint]
		if !ok {
			entries, err = bd.backend.DirectoryEntries(dir.Fingerprint)
			if err != nil {
				return nil, store.Wrap("listing "+displayPath(rel)+" at "+rev.Short(), err)
			}
			listed[dir.Fingerprint] = entries
		}

		for _, e := range entries {
			ix.record(e, rev)
		}
		ix.Indexed++
	}

	bd.logger.Debug("provenance index built",
		"start", start.Short(),
		"path", displayPath(rel),
		"visited", ix.Visited,
		"indexed", ix.Indexed,
		"identities", ix.Len(),
		"distinct_dirs", len(listed),
		"truncated", ix.Truncated,
	)
	return ix, nil
}

func displayPath(rel string) string {
	if rel == "" {
		return "/"
	}
	return rel
}
