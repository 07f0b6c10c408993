// Package object provides the typed view of versioned directory entries.
package object

import "fmt"

// EntryKind represents the shape of a directory entry.
type EntryKind string

const (
	KindDirectory      EntryKind = "dir"
	KindRegularFile    EntryKind = "file"
	KindExecutableFile EntryKind = "exec"
	KindSymlink        EntryKind = "symlink"
	KindSubmodule      EntryKind = "submodule"
)

// Git tree entry modes.
const (
	ModeDirectory  uint32 = 0o040000
	ModeRegular    uint32 = 0o100644
	ModeDeprecated uint32 = 0o100664 // group-writable, written by very old Git versions
	ModeExecutable uint32 = 0o100755
	ModeSymlink    uint32 = 0o120000
	ModeSubmodule  uint32 = 0o160000
)

// RevisionID identifies one immutable point in history (a commit hash).
type RevisionID string

// Fingerprint is the content address of a blob or tree.
// Equal fingerprint and kind means identical content.
type Fingerprint string

// Short returns the first 7 characters of the revision ID.
func (r RevisionID) Short() string {
	if len(r) > 7 {
		return string(r[:7])
	}
	return string(r)
}

// DirectoryEntry is one child of a directory object.
type DirectoryEntry struct {
	Name        string      `json:"name"`
	Kind        EntryKind   `json:"kind"`
	Fingerprint Fingerprint `json:"fingerprint"`
}

// IsDir reports whether the entry is a subdirectory.
func (e DirectoryEntry) IsDir() bool {
	return e.Kind == KindDirectory
}

// AnnotatedEntry is a directory entry joined with the revision that introduced
// its current content.
type AnnotatedEntry struct {
	Name        string      `json:"name"`
	Kind        EntryKind   `json:"kind"`
	Fingerprint Fingerprint `json:"fingerprint"`
	Revision    RevisionID  `json:"revision"`
	Message     string      `json:"message"`
}

// UnrecognizedModeError is returned when a backend reports a mode outside the
// known entry shapes.
type UnrecognizedModeError struct {
	Mode uint32
}

func (e *UnrecognizedModeError) Error() string {
	return fmt.Sprintf("unrecognized file mode %07o", e.Mode)
}

// Classify maps a tree entry mode to its EntryKind.
func Classify(mode uint32) (EntryKind, error) {
	switch mode {
	case ModeDirectory:
		return KindDirectory, nil
	case ModeRegular, ModeDeprecated:
		return KindRegularFile, nil
	case ModeExecutable:
		return KindExecutableFile, nil
	case ModeSymlink:
		return KindSymlink, nil
	case ModeSubmodule:
		return KindSubmodule, nil
	default:
		return "", &UnrecognizedModeError{Mode: mode}
	}
}
