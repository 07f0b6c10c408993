package ignore

import (
	"testing"

	"glcm/internal/object"
)

func TestBasicPatterns(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		// Simple file patterns
		{"*.log", "debug.log", false, true},
		{"*.log", "logs/debug.log", false, true},
		{"*.log", "debug.txt", false, false},

		// Directory patterns
		{"vendor/", "vendor", true, true},
		{"vendor/", "vendor/lib.go", false, true},
		{"vendor/", "src/vendor", true, true},
		{"vendor/", "vendor", false, false},

		// Anchored patterns
		{"/build", "build", true, true},
		{"/build", "src/build", true, false},

		// Double-star patterns
		{"**/testdata", "testdata", true, true},
		{"**/testdata", "pkg/deep/testdata", true, true},

		// Specific paths
		{"src/*.js", "src/app.js", false, true},
		{"src/*.js", "src/sub/app.js", false, false},
		{"src/**/*.js", "src/sub/app.js", false, true},
	}

	for _, tt := range tests {
		m := Compile([]string{tt.pattern})
		got := m.Match(tt.path, tt.isDir)
		if got != tt.want {
			t.Errorf("pattern %q, path %q (isDir=%v): got %v, want %v",
				tt.pattern, tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestNegation(t *testing.T) {
	m := Compile([]string{"*.lock", "!go.lock"})

	tests := []struct {
		path string
		want bool
	}{
		{"yarn.lock", true},
		{"go.lock", false},
		{"Cargo.lock", true},
	}
	for _, tt := range tests {
		if got := m.Match(tt.path, false); got != tt.want {
			t.Errorf("path %q: got %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCommentsAndBlanks(t *testing.T) {
	m := Compile([]string{"# comment", "", "   "})
	if !m.Empty() {
		t.Error("comments and blanks should not produce patterns")
	}
	if m.Match("anything", false) {
		t.Error("empty matcher should match nothing")
	}

	var nilMatcher *Matcher
	if !nilMatcher.Empty() || nilMatcher.Match("x", false) {
		t.Error("nil matcher should be empty")
	}
}

func TestFilter(t *testing.T) {
	entries := []object.AnnotatedEntry{
		{Name: "main.go", Kind: object.KindRegularFile},
		{Name: "go.sum", Kind: object.KindRegularFile},
		{Name: "vendor", Kind: object.KindDirectory},
		{Name: "internal", Kind: object.KindDirectory},
	}

	m := Compile([]string{"go.sum", "vendor/", "/src/internal"})
	got := m.Filter("", entries)
	if len(got) != 2 || got[0].Name != "main.go" || got[1].Name != "internal" {
		t.Errorf("root filter: %+v", got)
	}

	// Anchored pattern applies below src/ only.
	got = m.Filter("src", entries)
	names := make([]string, 0, len(got))
	for _, e := range got {
		names = append(names, e.Name)
	}
	if len(got) != 1 || got[0].Name != "main.go" {
		t.Errorf("src filter: %v", names)
	}
}
