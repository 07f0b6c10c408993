package provenance

import (
	"context"
	"fmt"

	"glcm/internal/object"
	"glcm/internal/pathres"
	"glcm/internal/store"
)

// InconsistencyError means a live entry has no attribution. The start
// revision is always walked, so this points at a traversal bug.
type InconsistencyError struct {
	Name        string
	Fingerprint object.Fingerprint
	Revision    object.RevisionID
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("internal error: %s (%s) at %s has no attribution",
		e.Name, e.Fingerprint, e.Revision.Short())
}

// Listing is an annotated directory listing.
type Listing struct {
	Revision  object.RevisionID       `json:"revision"`
	Path      string                  `json:"path"`
	Entries   []object.AnnotatedEntry `json:"entries"`
	Visited   int                     `json:"visited"`
	Truncated bool                    `json:"truncated,omitempty"`
}

// Assembler produces annotated listings.
type Assembler struct {
	backend store.Backend
	builder *Builder
}

// NewAssembler creates an assembler over b.
func NewAssembler(b store.Backend, opts Options) *Assembler {
	return &Assembler{backend: b, builder: NewBuilder(b, opts)}
}

// BuildListing resolves the directory at path in start and annotates each of
// its immediate entries, in backend order, with the revision that introduced
// the entry's current content and that revision's summary message.
func (a *Assembler) BuildListing(ctx context.Context, start object.RevisionID, path string) (*Listing, error) {
	rel, err := pathres.Normalize(path)
	if err != nil {
		return nil, err
	}

	dir, err := pathres.ResolveDirectory(a.backend, start, rel)
	if err != nil {
		return nil, err
	}
	entries, err := a.backend.DirectoryEntries(dir.Fingerprint)
	if err != nil {
		return nil, store.Wrap("listing "+displayPath(rel), err)
	}

	ix, err := a.builder.Build(ctx, start, rel)
	if err != nil {
		return nil, fmt.Errorf("building provenance index: %w", err)
	}

	messages := make(map[object.RevisionID]string)
	annotated := make([]object.AnnotatedEntry, 0, len(entries))
	for _, e := range entries {
		rev, ok := ix.Lookup(e.Kind, e.Fingerprint)
		if !ok {
			return nil, &InconsistencyError{Name: e.Name, Fingerprint: e.Fingerprint, Revision: start}
		}

		msg, ok := messages[rev]
		if !ok {
			msg, err = a.backend.SummaryMessage(rev)
			if err != nil {
				return nil, store.Wrap("reading message of "+rev.Short(), err)
			}
			messages[rev] = msg
		}

		annotated = append(annotated, object.AnnotatedEntry{
			Name:        e.Name,
			Kind:        e.Kind,
			Fingerprint: e.Fingerprint,
			Revision:    rev,
			Message:     msg,
		})
	}

	return &Listing{
		Revision:  start,
		Path:      rel,
		Entries:   annotated,
		Visited:   ix.Visited,
		Truncated: ix.Truncated,
	}, nil
}
