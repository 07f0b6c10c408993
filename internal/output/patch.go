package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const patchContext = 3

type patchLine struct {
	op    diffmatchpatch.Operation
	text  string
	oldNo int
	newNo int
}

// WritePatch writes a unified line diff from before to after, labelled with name.
func WritePatch(w io.Writer, name string, before, after []byte) error {
	st := newStyles(w)

	fmt.Fprintln(w, st.faint.Render("--- a/"+name))
	fmt.Fprintln(w, st.faint.Render("+++ b/"+name))

	if bytes.IndexByte(before, 0) >= 0 || bytes.IndexByte(after, 0) >= 0 {
		_, err := fmt.Fprintln(w, "Binary files differ")
		return err
	}

	lines := diffLines(string(before), string(after))
	for _, h := range hunks(lines) {
		if _, err := fmt.Fprintln(w, st.hunk.Render(hunkHeader(h))); err != nil {
			return err
		}
		for _, l := range h {
			var err error
			switch l.op {
			case diffmatchpatch.DiffDelete:
				_, err = fmt.Fprintln(w, st.removed.Render("-"+l.text))
			case diffmatchpatch.DiffInsert:
				_, err = fmt.Fprintln(w, st.added.Render("+"+l.text))
			default:
				_, err = fmt.Fprintln(w, " "+l.text)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// diffLines runs a line-mode diff and flattens it to one entry per line.
func diffLines(before, after string) []patchLine {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out []patchLine
	oldNo, newNo := 1, 1
	for _, d := range diffs {
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			out = append(out, patchLine{
				op:    d.Type,
				text:  strings.TrimSuffix(text, "\n"),
				oldNo: oldNo,
				newNo: newNo,
			})
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				oldNo++
			case diffmatchpatch.DiffInsert:
				newNo++
			default:
				oldNo++
				newNo++
			}
		}
	}
	return out
}

// hunks groups changed lines with up to patchContext lines of context,
// merging changes separated by at most 2*patchContext unchanged lines.
func hunks(lines []patchLine) [][]patchLine {
	var out [][]patchLine
	i := 0
	for i < len(lines) {
		if lines[i].op == diffmatchpatch.DiffEqual {
			i++
			continue
		}

		start := i - patchContext
		if start < 0 {
			start = 0
		}
		end := i
		for end < len(lines) {
			if lines[end].op != diffmatchpatch.DiffEqual {
				end++
				continue
			}
			run := end
			for run < len(lines) && lines[run].op == diffmatchpatch.DiffEqual {
				run++
			}
			if run == len(lines) || run-end > 2*patchContext {
				end += patchContext
				if end > len(lines) {
					end = len(lines)
				}
				break
			}
			end = run
		}

		out = append(out, lines[start:end])
		i = end
	}
	return out
}

func hunkHeader(h []patchLine) string {
	oldStart, newStart := h[0].oldNo, h[0].newNo
	oldCount, newCount := 0, 0
	for _, l := range h {
		switch l.op {
		case diffmatchpatch.DiffDelete:
			oldCount++
		case diffmatchpatch.DiffInsert:
			newCount++
		default:
			oldCount++
			newCount++
		}
	}
	if oldCount == 0 {
		oldStart--
	}
	if newCount == 0 {
		newStart--
	}
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", oldStart, oldCount, newStart, newCount)
}
