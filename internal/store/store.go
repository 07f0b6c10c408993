// Package store defines the read contract glcm needs from a version-history backend.
package store

import (
	"errors"
	"fmt"

	"glcm/internal/object"
)

// ErrNotFound is returned by a Backend when a revision spec or a child name
// does not exist. Every other error is a read failure.
var ErrNotFound = errors.New("not found")

// RevisionStore resolves revisions and walks their metadata.
type RevisionStore interface {
	// ResolveRevision turns a user-supplied spec (branch, tag, hash) into a revision.
	ResolveRevision(spec string) (object.RevisionID, error)

	// RootDirectory returns the root tree of a revision.
	RootDirectory(rev object.RevisionID) (object.Fingerprint, error)

	// Parents returns the parent revisions in recorded order. Empty for a root commit.
	Parents(rev object.RevisionID) ([]object.RevisionID, error)

	// SummaryMessage returns the one-line summary of a revision's message.
	SummaryMessage(rev object.RevisionID) (string, error)
}

// TreeStore reads directory objects.
type TreeStore interface {
	// DirectoryEntries lists the immediate children of a directory object,
	// in the order the backend stores them.
	DirectoryEntries(dir object.Fingerprint) ([]object.DirectoryEntry, error)

	// Descend looks up a single child by name.
	Descend(dir object.Fingerprint, name string) (object.DirectoryEntry, error)
}

// Backend combines the read interfaces.
type Backend interface {
	RevisionStore
	TreeStore
}

// BlobReader reads raw blob content. Optional; used by presentation only.
type BlobReader interface {
	ReadBlob(fp object.Fingerprint) ([]byte, error)
}

// ReadError wraps a backend failure with the operation that hit it.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Wrap returns err as a *ReadError for op. Nil stays nil and an existing
// *ReadError is not wrapped twice.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *ReadError
	if errors.As(err, &re) {
		return err
	}
	return &ReadError{Op: op, Err: err}
}
