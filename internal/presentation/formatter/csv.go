package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kvisser/tempo/internal/data/aggregator"
)

// CSVFormatter renders the individual frames of a report as CSV, one row
// per frame. Grouping affects row order only; spreadsheet users pivot
// themselves.
type CSVFormatter struct {
	w   io.Writer
	now time.Time
}

func NewCSVFormatter(w io.Writer, now time.Time) *CSVFormatter {
	return &CSVFormatter{w: w, now: now}
}

func (f *CSVFormatter) Format(report aggregator.Report) error {
	w := csv.NewWriter(f.w)
	defer w.Flush()

	headers := []string{"id", "project", "task", "start", "end", "seconds", "tags", "note"}
	if err := w.Write(headers); err != nil {
		return err
	}

	for _, g := range report.Groups {
		for _, fr := range g.Frames {
			row := NewFrameRow(fr, f.now)
			record := []string{
				row.ID,
				row.Project,
				row.Task,
				row.Start,
				row.End,
				fmt.Sprintf("%.0f", row.Seconds),
				strings.Join(row.Tags, " "),
				row.Note,
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}
