package provenance

import (
	"context"
	"errors"
	"testing"

	"glcm/internal/object"
	"glcm/internal/pathres"
	"glcm/internal/store"
)

func file(name string, fp object.Fingerprint) object.DirectoryEntry {
	return object.DirectoryEntry{Name: name, Kind: object.KindRegularFile, Fingerprint: fp}
}

func dir(name string, fp object.Fingerprint) object.DirectoryEntry {
	return object.DirectoryEntry{Name: name, Kind: object.KindDirectory, Fingerprint: fp}
}

// attributions returns name -> revision for a listing.
func attributions(t *testing.T, l *Listing) map[string]object.RevisionID {
	t.Helper()
	out := make(map[string]object.RevisionID)
	for _, e := range l.Entries {
		out[e.Name] = e.Revision
	}
	return out
}

func buildListing(t *testing.T, b store.Backend, rev object.RevisionID, path string) *Listing {
	t.Helper()
	l, err := NewAssembler(b, Options{}).BuildListing(context.Background(), rev, path)
	if err != nil {
		t.Fatalf("BuildListing(%s, %q): %v", rev, path, err)
	}
	return l
}

// abcRepo is the A -> B -> C history: dir/f.txt is "hello" in A and B and
// "world" in C.
func abcRepo() *store.Memory {
	m := store.NewMemory()
	m.AddTree("dir-hello", file("f.txt", "blob-hello"))
	m.AddTree("dir-world", file("f.txt", "blob-world"))
	m.AddTree("root-hello", dir("dir", "dir-hello"))
	m.AddTree("root-world", dir("dir", "dir-world"))
	m.AddCommit("A", "add greeting", "root-hello")
	m.AddCommit("B", "touch nothing", "root-hello", "A")
	m.AddCommit("C", "greet the world", "root-world", "B")
	return m
}

func TestBuildListing_EndToEnd(t *testing.T) {
	m := abcRepo()

	l := buildListing(t, m, "C", "dir")
	if len(l.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(l.Entries))
	}
	e := l.Entries[0]
	if e.Name != "f.txt" || e.Revision != "C" || e.Message != "greet the world" {
		t.Errorf("at C: got %+v", e)
	}
	if e.Kind != object.KindRegularFile || e.Fingerprint != "blob-world" {
		t.Errorf("at C: kind/fingerprint not carried through: %+v", e)
	}

	l = buildListing(t, m, "B", "dir")
	e = l.Entries[0]
	if e.Revision != "A" || e.Message != "add greeting" {
		t.Errorf("at B: got %+v", e)
	}
}

func TestBuildListing_LinearHistoryOldestWins(t *testing.T) {
	m := store.NewMemory()
	// g.txt keeps the original content, f.txt changes at R2.
	m.AddTree("d0", file("f.txt", "v1"), file("g.txt", "v1"))
	m.AddTree("d2", file("f.txt", "v2"), file("g.txt", "v1"))
	m.AddCommit("R0", "r0", "d0")
	m.AddCommit("R1", "r1", "d0", "R0")
	m.AddCommit("R2", "r2", "d2", "R1")

	got := attributions(t, buildListing(t, m, "R2", ""))
	if got["f.txt"] != "R2" {
		t.Errorf("f.txt attributed to %s, want R2", got["f.txt"])
	}
	if got["g.txt"] != "R0" {
		t.Errorf("g.txt attributed to %s, want R0", got["g.txt"])
	}
}

func TestBuildListing_PreservesDirectoryOrder(t *testing.T) {
	m := store.NewMemory()
	m.AddTree("d", file("zeta", "z"), dir("alpha", "ta"), file("mid", "m"))
	m.AddTree("ta")
	m.AddCommit("R0", "r0", "d")

	l := buildListing(t, m, "R0", "/")
	want := []string{"zeta", "alpha", "mid"}
	for i, e := range l.Entries {
		if e.Name != want[i] {
			t.Fatalf("entry %d = %s, want %s", i, e.Name, want[i])
		}
	}
}

func TestBuildListing_SubdirectoryAttribution(t *testing.T) {
	m := store.NewMemory()
	m.AddTree("sub-1", file("x", "x1"))
	m.AddTree("sub-2", file("x", "x2"))
	m.AddTree("root-1", dir("sub", "sub-1"), file("top", "t"))
	m.AddTree("root-2", dir("sub", "sub-2"), file("top", "t"))
	m.AddCommit("R0", "r0", "root-1")
	m.AddCommit("R1", "nested change", "root-2", "R0")

	got := attributions(t, buildListing(t, m, "R1", ""))
	if got["sub"] != "R1" {
		t.Errorf("sub attributed to %s, want R1", got["sub"])
	}
	if got["top"] != "R0" {
		t.Errorf("top attributed to %s, want R0", got["top"])
	}
}

func TestBuildListing_PathMissingEarlyInHistory(t *testing.T) {
	m := store.NewMemory()
	m.AddTree("root-0", file("README", "readme"))
	m.AddTree("dir-1", file("f.txt", "f1"))
	m.AddTree("root-1", file("README", "readme"), dir("dir", "dir-1"))
	m.AddCommit("R0", "init", "root-0")
	m.AddCommit("R1", "add dir", "root-1", "R0")
	m.AddCommit("R2", "noop", "root-1", "R1")

	l := buildListing(t, m, "R2", "dir")
	if l.Visited != 3 {
		t.Errorf("expected 3 visited revisions, got %d", l.Visited)
	}
	got := attributions(t, l)
	if got["f.txt"] != "R1" {
		t.Errorf("f.txt attributed to %s, want R1", got["f.txt"])
	}
}

func TestBuildListing_PathWasFileEarlier(t *testing.T) {
	m := store.NewMemory()
	m.AddTree("root-0", file("dir", "was-a-file"))
	m.AddTree("dir-1", file("f.txt", "f1"))
	m.AddTree("root-1", dir("dir", "dir-1"))
	m.AddCommit("R0", "file", "root-0")
	m.AddCommit("R1", "now a dir", "root-1", "R0")

	got := attributions(t, buildListing(t, m, "R1", "dir"))
	if got["f.txt"] != "R1" {
		t.Errorf("f.txt attributed to %s, want R1", got["f.txt"])
	}
}

func TestBuildListing_ContentReappearance(t *testing.T) {
	m := store.NewMemory()
	m.AddTree("d1", file("f", "v1"))
	m.AddTree("d2", file("f", "v2"))
	m.AddCommit("R0", "original", "d1")
	m.AddCommit("R1", "change", "d2", "R0")
	m.AddCommit("R2", "revert", "d1", "R1")

	// A revert is attributed to the original introduction.
	got := attributions(t, buildListing(t, m, "R2", ""))
	if got["f"] != "R0" {
		t.Errorf("f attributed to %s, want R0", got["f"])
	}
}

func TestBuildListing_ModeChangeIsNewContent(t *testing.T) {
	m := store.NewMemory()
	m.AddTree("d0", file("run.sh", "blob"))
	m.AddTree("d1", object.DirectoryEntry{Name: "run.sh", Kind: object.KindExecutableFile, Fingerprint: "blob"})
	m.AddCommit("R0", "add script", "d0")
	m.AddCommit("R1", "make executable", "d1", "R0")

	l := buildListing(t, m, "R1", "")
	if got := l.Entries[0]; got.Revision != "R1" || got.Message != "make executable" {
		t.Errorf("run.sh attributed to %s (%q), want R1", got.Revision, got.Message)
	}
}

func TestBuildListing_SymlinkDoesNotShareFileContent(t *testing.T) {
	m := store.NewMemory()
	m.AddTree("d0", file("target", "same-bytes"))
	m.AddTree("d1", file("target", "same-bytes"),
		object.DirectoryEntry{Name: "link", Kind: object.KindSymlink, Fingerprint: "same-bytes"})
	m.AddCommit("R0", "add target", "d0")
	m.AddCommit("R1", "add link", "d1", "R0")

	got := attributions(t, buildListing(t, m, "R1", ""))
	if got["target"] != "R0" {
		t.Errorf("target attributed to %s, want R0", got["target"])
	}
	if got["link"] != "R1" {
		t.Errorf("link attributed to %s, want R1", got["link"])
	}
}

// diamond: A <- B, A <- C, D merges B and C.
func diamondRepo() *store.Memory {
	m := store.NewMemory()
	m.AddTree("d-a", file("f", "fa"), file("g", "ga"))
	m.AddTree("d-b", file("f", "fb"), file("g", "ga"))
	m.AddTree("d-c", file("f", "fa"), file("g", "gc"))
	m.AddTree("d-d", file("f", "fb"), file("g", "gc"))
	m.AddCommit("A", "base", "d-a")
	m.AddCommit("B", "left", "d-b", "A")
	m.AddCommit("C", "right", "d-c", "A")
	m.AddCommit("D", "merge", "d-d", "B", "C")
	return m
}

func TestBuild_DiamondVisitsEachRevisionOnce(t *testing.T) {
	m := diamondRepo()

	ix, err := NewBuilder(m, Options{}).Build(context.Background(), "D", "")
	if err != nil {
		t.Fatal(err)
	}
	if ix.Visited != 4 {
		t.Errorf("expected 4 visited revisions, got %d", ix.Visited)
	}
	calls := m.ParentCalls()
	if len(calls) != 4 {
		t.Errorf("expected parents read for 4 revisions, got %d", len(calls))
	}
	for rev, n := range calls {
		if n != 1 {
			t.Errorf("revision %s expanded %d times", rev, n)
		}
	}
}

func TestBuildListing_MergeAttribution(t *testing.T) {
	got := attributions(t, buildListing(t, diamondRepo(), "D", ""))
	if got["f"] != "B" {
		t.Errorf("f attributed to %s, want B", got["f"])
	}
	if got["g"] != "C" {
		t.Errorf("g attributed to %s, want C", got["g"])
	}
}

func TestAncestry_ChildrenBeforeParents(t *testing.T) {
	m := store.NewMemory()
	m.AddTree("t")
	// A long side branch: the base must still come after every descendant.
	m.AddCommit("base", "", "t")
	m.AddCommit("s1", "", "t", "base")
	m.AddCommit("s2", "", "t", "s1")
	m.AddCommit("s3", "", "t", "s2")
	m.AddCommit("m1", "", "t", "base")
	m.AddCommit("tip", "", "t", "m1", "s3")

	order, truncated, err := ancestry(context.Background(), m, "tip", 0)
	if err != nil {
		t.Fatal(err)
	}
	if truncated {
		t.Error("unexpected truncation")
	}
	if len(order) != 6 {
		t.Fatalf("expected 6 revisions, got %v", order)
	}

	pos := make(map[object.RevisionID]int)
	for i, rev := range order {
		pos[rev] = i
	}
	for _, rev := range order {
		parents, _ := m.Parents(rev)
		for _, p := range parents {
			if pos[p] <= pos[rev] {
				t.Errorf("parent %s (pos %d) not after child %s (pos %d)", p, pos[p], rev, pos[rev])
			}
		}
	}
	if order[0] != "tip" || order[len(order)-1] != "base" {
		t.Errorf("unexpected order %v", order)
	}
}

func TestAncestry_RejectsCycle(t *testing.T) {
	m := store.NewMemory()
	m.AddTree("t")
	m.AddCommit("c1", "", "t", "c2")
	m.AddCommit("c2", "", "t", "c1")

	if _, _, err := ancestry(context.Background(), m, "c1", 0); err == nil {
		t.Error("expected error for cyclic graph")
	}
}

func TestBuild_MaxRevisionsTruncates(t *testing.T) {
	m := store.NewMemory()
	m.AddTree("d1", file("f", "v1"))
	m.AddCommit("R0", "", "d1")
	m.AddCommit("R1", "", "d1", "R0")
	m.AddCommit("R2", "", "d1", "R1")
	m.AddCommit("R3", "", "d1", "R2")

	l, err := NewAssembler(m, Options{MaxRevisions: 2}).BuildListing(context.Background(), "R3", "")
	if err != nil {
		t.Fatal(err)
	}
	if !l.Truncated {
		t.Error("expected truncated listing")
	}
	if l.Visited != 2 {
		t.Errorf("expected 2 visited, got %d", l.Visited)
	}
	if got := l.Entries[0].Revision; got != "R2" {
		t.Errorf("f attributed to %s, want R2 (oldest within window)", got)
	}
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(abcRepo(), Options{}).Build(ctx, "C", "dir")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBuildListing_BackendFailureIsFatal(t *testing.T) {
	m := abcRepo()
	boom := errors.New("object store unavailable")
	m.FailRootOf("A", boom)

	l, err := NewAssembler(m, Options{}).BuildListing(context.Background(), "C", "dir")
	if err == nil {
		t.Fatal("expected error")
	}
	if l != nil {
		t.Error("no partial listing should be returned")
	}
	var re *store.ReadError
	if !errors.As(err, &re) {
		t.Errorf("expected *store.ReadError, got %T: %v", err, err)
	}
	if !errors.Is(err, boom) {
		t.Error("expected backend diagnostic to be preserved")
	}
}

// phantomBackend reports an extra entry the first time the directory dir is
// listed, so the live listing holds content no revision carried.
type phantomBackend struct {
	store.Backend
	dir    object.Fingerprint
	listed bool
}

func (p *phantomBackend) DirectoryEntries(dir object.Fingerprint) ([]object.DirectoryEntry, error) {
	entries, err := p.Backend.DirectoryEntries(dir)
	if err != nil || dir != p.dir || p.listed {
		return entries, err
	}
	p.listed = true
	return append(entries, file("ghost.txt", "blob-ghost")), nil
}

func TestBuildListing_InconsistentBackend(t *testing.T) {
	b := &phantomBackend{Backend: abcRepo(), dir: "dir-world"}

	l, err := NewAssembler(b, Options{}).BuildListing(context.Background(), "C", "dir")
	if l != nil {
		t.Error("no listing should be returned")
	}
	var ie *InconsistencyError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *InconsistencyError, got %T: %v", err, err)
	}
	if ie.Name != "ghost.txt" || ie.Fingerprint != "blob-ghost" || ie.Revision != "C" {
		t.Errorf("unexpected error fields: %+v", ie)
	}
}

func TestBuildListing_PathErrors(t *testing.T) {
	m := abcRepo()
	a := NewAssembler(m, Options{})

	_, err := a.BuildListing(context.Background(), "C", "nope")
	var nf *pathres.PathNotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected *PathNotFoundError, got %v", err)
	} else if nf.Path != "nope" {
		t.Errorf("error path = %q", nf.Path)
	}

	_, err = a.BuildListing(context.Background(), "C", "dir/f.txt")
	var nd *pathres.NotDirectoryError
	if !errors.As(err, &nd) {
		t.Errorf("expected *NotDirectoryError, got %v", err)
	}
}

func TestBuildListing_RootEscape(t *testing.T) {
	for _, p := range []string{"/..", "/../dir"} {
		l, err := NewAssembler(abcRepo(), Options{}).BuildListing(context.Background(), "C", p)
		var nf *pathres.PathNotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("BuildListing(%q): expected *PathNotFoundError, got %v", p, err)
		}
		if l != nil {
			t.Errorf("BuildListing(%q) returned a listing", p)
		}
	}
}

func TestBuild_IndexCoverage(t *testing.T) {
	m := diamondRepo()
	ix, err := NewBuilder(m, Options{}).Build(context.Background(), "D", "")
	if err != nil {
		t.Fatal(err)
	}
	entries, _ := m.DirectoryEntries("d-d")
	for _, e := range entries {
		if _, ok := ix.Lookup(e.Kind, e.Fingerprint); !ok {
			t.Errorf("fingerprint %s of %s not indexed", e.Fingerprint, e.Name)
		}
	}
	// fa, fb, ga, gc
	if ix.Len() != 4 {
		t.Errorf("expected 4 fingerprints, got %d", ix.Len())
	}
}
