// Package formatter renders reports and frame listings as aligned tables,
// JSON or CSV.
package formatter

import (
	"time"

	"github.com/kvisser/tempo/internal/core/model"
	"github.com/kvisser/tempo/internal/data/aggregator"
)

// Formatter renders one report to a writer-bound output.
type Formatter interface {
	Format(report aggregator.Report) error
}

// FrameRow is the presentation form of a single frame.
type FrameRow struct {
	ID      string   `json:"id"`
	Project string   `json:"project"`
	Task    string   `json:"task,omitempty"`
	Start   string   `json:"start"`
	End     string   `json:"end,omitempty"`
	Seconds float64  `json:"seconds"`
	Tags    []string `json:"tags,omitempty"`
	Note    string   `json:"note,omitempty"`
	Running bool     `json:"running,omitempty"`
}

// NewFrameRow converts a frame for display, measuring running frames
// against now.
func NewFrameRow(f *model.Frame, now time.Time) FrameRow {
	row := FrameRow{
		ID:      f.ID,
		Project: f.Project,
		Task:    f.Task,
		Start:   f.Start.Format(time.RFC3339),
		Seconds: f.Duration(now).Seconds(),
		Tags:    f.Tags,
		Note:    f.Note,
		Running: f.Running(),
	}
	if !f.Running() {
		row.End = f.End.Format(time.RFC3339)
	}
	return row
}
