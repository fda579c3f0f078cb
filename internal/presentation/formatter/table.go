package formatter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/kvisser/tempo/internal/data/aggregator"
	"github.com/kvisser/tempo/internal/util"
)

// TableFormatter renders a report as an aligned plain-text table.
type TableFormatter struct {
	w io.Writer
	// maxWidth caps the note column; 0 means derive from the terminal.
	maxWidth int
}

func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{w: w}
}

func (f *TableFormatter) Format(report aggregator.Report) error {
	if report.Count == 0 {
		_, err := fmt.Fprintln(f.w, "no frames match")
		return err
	}

	if report.GroupBy == "none" && len(report.Groups) == 1 {
		if err := f.writeFrames(report.Groups[0]); err != nil {
			return err
		}
	} else {
		for _, g := range report.Groups {
			line := fmt.Sprintf("%s  %s (%d frames)",
				util.FormatDuration(g.Total), g.Key, g.Count)
			if _, err := fmt.Fprintln(f.w, line); err != nil {
				return err
			}
			if err := f.writeFrames(g); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintf(f.w, "\nTotal: %s over %d frames\n",
		util.FormatDuration(report.Total), report.Count); err != nil {
		return err
	}
	if len(report.Degenerate) > 0 {
		short := make([]string, len(report.Degenerate))
		for i, id := range report.Degenerate {
			short[i] = util.ShortID(id)
		}
		if _, err := fmt.Fprintf(f.w, "Warning: %d zero-duration frame(s): %s\n",
			len(short), strings.Join(short, ", ")); err != nil {
			return err
		}
	}
	return nil
}

// writeFrames prints the per-frame rows of one group, if the report carried
// them, as an aligned sub-table.
func (f *TableFormatter) writeFrames(g aggregator.Group) error {
	if len(g.Frames) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(g.Frames))
	for _, fr := range g.Frames {
		end := "..."
		if !fr.Running() {
			end = fr.End.Format("15:04")
		}
		rows = append(rows, []string{
			util.ShortID(fr.ID),
			fr.Start.Format("2006-01-02 15:04"),
			end,
			fr.Project,
			fr.Task,
			strings.Join(fr.Tags, ", "),
			f.clipNote(fr.Note),
		})
	}
	return writeAligned(f.w, "  ", rows)
}

func (f *TableFormatter) clipNote(note string) string {
	note = strings.ReplaceAll(note, "\n", " ")
	max := f.maxWidth
	if max == 0 {
		max = 40
		// Width comes from the formatter's own writer, so output captured
		// by a buffer keeps the default clip.
		if file, ok := f.w.(*os.File); ok {
			if w, _, err := term.GetSize(int(file.Fd())); err == nil && w > 100 {
				max = w - 60
			}
		}
	}
	return runewidth.Truncate(note, max, "…")
}

// writeAligned pads every column to the display width of its widest cell.
// Widths are measured with runewidth so CJK notes line up.
func writeAligned(w io.Writer, indent string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	for _, row := range rows {
		var b strings.Builder
		b.WriteString(indent)
		for i, cell := range row {
			b.WriteString(cell)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)+2))
			}
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}
