package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"

	"github.com/kvisser/tempo/internal/data/aggregator"
	"github.com/kvisser/tempo/internal/util"
)

// JSONFormatter renders a report as indented JSON for scripting.
type JSONFormatter struct {
	w   io.Writer
	now time.Time
}

func NewJSONFormatter(w io.Writer, now time.Time) *JSONFormatter {
	return &JSONFormatter{w: w, now: now}
}

// jsonReport mirrors aggregator.Report with durations in seconds and frames
// flattened to presentation rows.
type jsonReport struct {
	GroupBy      string      `json:"group_by"`
	TotalSeconds float64     `json:"total_seconds"`
	Total        string      `json:"total"`
	Count        int         `json:"count"`
	Groups       []jsonGroup `json:"groups"`
	Degenerate   []string    `json:"degenerate,omitempty"`
	Running      bool        `json:"running"`
}

type jsonGroup struct {
	Key          string     `json:"key"`
	TotalSeconds float64    `json:"total_seconds"`
	Total        string     `json:"total"`
	Count        int        `json:"count"`
	Frames       []FrameRow `json:"frames,omitempty"`
}

func (f *JSONFormatter) Format(report aggregator.Report) error {
	out := jsonReport{
		GroupBy:      report.GroupBy,
		TotalSeconds: report.Total.Seconds(),
		Total:        util.FormatDuration(report.Total),
		Count:        report.Count,
		Degenerate:   report.Degenerate,
		Running:      report.Running,
		Groups:       make([]jsonGroup, 0, len(report.Groups)),
	}
	for _, g := range report.Groups {
		jg := jsonGroup{
			Key:          g.Key,
			TotalSeconds: g.Total.Seconds(),
			Total:        util.FormatDuration(g.Total),
			Count:        g.Count,
		}
		for _, fr := range g.Frames {
			jg.Frames = append(jg.Frames, NewFrameRow(fr, f.now))
		}
		out.Groups = append(out.Groups, jg)
	}

	data, err := sonic.ConfigDefault.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = f.w.Write(data)
	return err
}
