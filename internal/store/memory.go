package store

import (
	"fmt"
	"sync"

	"glcm/internal/object"
)

type memCommit struct {
	message string
	root    object.Fingerprint
	parents []object.RevisionID
}

// Memory is an in-memory Backend. Trees and commits are registered up front;
// the zero value is not usable, call NewMemory.
type Memory struct {
	mu          sync.Mutex
	trees       map[object.Fingerprint][]object.DirectoryEntry
	blobs       map[object.Fingerprint][]byte
	commits     map[object.RevisionID]*memCommit
	refs        map[string]object.RevisionID
	parentCalls map[object.RevisionID]int
	failOn      map[object.RevisionID]error
}

var _ Backend = (*Memory)(nil)
var _ BlobReader = (*Memory)(nil)

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		trees:       make(map[object.Fingerprint][]object.DirectoryEntry),
		blobs:       make(map[object.Fingerprint][]byte),
		commits:     make(map[object.RevisionID]*memCommit),
		refs:        make(map[string]object.RevisionID),
		parentCalls: make(map[object.RevisionID]int),
		failOn:      make(map[object.RevisionID]error),
	}
}

// AddTree registers a directory object.
func (m *Memory) AddTree(fp object.Fingerprint, entries ...object.DirectoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees[fp] = entries
}

// AddBlob registers blob content under a fingerprint.
func (m *Memory) AddBlob(fp object.Fingerprint, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[fp] = content
}

// AddCommit registers a revision with its root tree and parents.
func (m *Memory) AddCommit(id object.RevisionID, message string, root object.Fingerprint, parents ...object.RevisionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits[id] = &memCommit{message: message, root: root, parents: parents}
}

// SetRef points a named ref at a revision.
func (m *Memory) SetRef(name string, id object.RevisionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[name] = id
}

// FailRootOf makes RootDirectory fail for rev.
func (m *Memory) FailRootOf(rev object.RevisionID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[rev] = err
}

// ParentCalls returns how many times Parents was called for each revision.
func (m *Memory) ParentCalls() map[object.RevisionID]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[object.RevisionID]int, len(m.parentCalls))
	for k, v := range m.parentCalls {
		out[k] = v
	}
	return out
}

// ResolveRevision resolves a ref name or a registered revision ID.
func (m *Memory) ResolveRevision(spec string) (object.RevisionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.refs[spec]; ok {
		return id, nil
	}
	if _, ok := m.commits[object.RevisionID(spec)]; ok {
		return object.RevisionID(spec), nil
	}
	return "", fmt.Errorf("revision %q: %w", spec, ErrNotFound)
}

// RootDirectory returns the root tree of rev.
func (m *Memory) RootDirectory(rev object.RevisionID) (object.Fingerprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[rev]; err != nil {
		return "", err
	}
	c, ok := m.commits[rev]
	if !ok {
		return "", fmt.Errorf("commit %s missing", rev)
	}
	return c.root, nil
}

// Parents returns the recorded parents of rev.
func (m *Memory) Parents(rev object.RevisionID) ([]object.RevisionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commits[rev]
	if !ok {
		return nil, fmt.Errorf("commit %s missing", rev)
	}
	m.parentCalls[rev]++
	out := make([]object.RevisionID, len(c.parents))
	copy(out, c.parents)
	return out, nil
}

// SummaryMessage returns the message registered for rev.
func (m *Memory) SummaryMessage(rev object.RevisionID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commits[rev]
	if !ok {
		return "", fmt.Errorf("commit %s missing", rev)
	}
	return c.message, nil
}

// DirectoryEntries returns the entries of a registered tree.
func (m *Memory) DirectoryEntries(dir object.Fingerprint) ([]object.DirectoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.trees[dir]
	if !ok {
		return nil, fmt.Errorf("tree %s missing", dir)
	}
	out := make([]object.DirectoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Descend finds a child of a registered tree by name.
func (m *Memory) Descend(dir object.Fingerprint, name string) (object.DirectoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.trees[dir]
	if !ok {
		return object.DirectoryEntry{}, fmt.Errorf("tree %s missing", dir)
	}
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	return object.DirectoryEntry{}, fmt.Errorf("%s in tree %s: %w", name, dir, ErrNotFound)
}

// ReadBlob returns registered blob content.
func (m *Memory) ReadBlob(fp object.Fingerprint) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[fp]
	if !ok {
		return nil, fmt.Errorf("blob %s missing", fp)
	}
	return b, nil
}
