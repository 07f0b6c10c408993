// Package output formats annotated listings for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"glcm/internal/object"
	"glcm/internal/provenance"
)

// Format specifies how to render a listing.
type Format int

const (
	// FormatDefault shows aligned name, short revision and summary columns
	FormatDefault Format = iota
	// FormatNameOnly shows "<short revision> <name>" per line
	FormatNameOnly
	// FormatJSON outputs structured JSON
	FormatJSON
)

// styles are bound to a renderer so colour is only emitted on terminals.
type styles struct {
	dir      lipgloss.Style
	revision lipgloss.Style
	message  lipgloss.Style
	added    lipgloss.Style
	removed  lipgloss.Style
	hunk     lipgloss.Style
	faint    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		dir:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		revision: r.NewStyle().Foreground(lipgloss.Color("3")),
		message:  r.NewStyle(),
		added:    r.NewStyle().Foreground(lipgloss.Color("2")),
		removed:  r.NewStyle().Foreground(lipgloss.Color("1")),
		hunk:     r.NewStyle().Foreground(lipgloss.Color("6")),
		faint:    r.NewStyle().Faint(true),
	}
}

// DisplayName returns the entry name as listed, with a trailing slash for
// directories and an @ for submodules.
func DisplayName(e object.AnnotatedEntry) string {
	switch e.Kind {
	case object.KindDirectory:
		return e.Name + "/"
	case object.KindSubmodule:
		return e.Name + "@"
	default:
		return e.Name
	}
}

// WriteListing writes l to w in the requested format.
func WriteListing(w io.Writer, l *provenance.Listing, format Format) error {
	switch format {
	case FormatNameOnly:
		return writeNameOnly(w, l)
	case FormatJSON:
		return writeJSON(w, l)
	default:
		return writeDefault(w, l)
	}
}

func writeNameOnly(w io.Writer, l *provenance.Listing) error {
	for _, e := range l.Entries {
		if _, err := fmt.Fprintf(w, "%s %s\n", e.Revision.Short(), DisplayName(e)); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, l *provenance.Listing) error {
	out := *l
	if out.Entries == nil {
		out.Entries = []object.AnnotatedEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeDefault(w io.Writer, l *provenance.Listing) error {
	st := newStyles(w)

	if len(l.Entries) == 0 {
		_, err := fmt.Fprintln(w, st.faint.Render("(empty)"))
		return err
	}

	width := 0
	for _, e := range l.Entries {
		if n := lipgloss.Width(DisplayName(e)); n > width {
			width = n
		}
	}

	for _, e := range l.Entries {
		name := DisplayName(e)
		pad := strings.Repeat(" ", width-lipgloss.Width(name))
		if e.Kind == object.KindDirectory {
			name = st.dir.Render(name)
		}
		_, err := fmt.Fprintf(w, "%s%s  %s  %s\n",
			name, pad,
			st.revision.Render(e.Revision.Short()),
			st.message.Render(e.Message),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
