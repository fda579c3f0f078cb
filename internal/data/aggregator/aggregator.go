// Package aggregator is the query engine over frames: filtering, grouping,
// duration totals and consistency checks (overlaps, gaps). It works on frame
// copies handed out by the store and never persists derived values.
package aggregator

import (
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/kvisser/tempo/internal/core/model"
)

// Predicate restricts which frames participate in a query. Zero-valued
// fields do not filter. The time window is half-open [From, To) and is
// evaluated against the frame's start.
type Predicate struct {
	Project string
	Task    string
	// Tags matches frames carrying at least one of the listed tags.
	Tags []string
	From time.Time
	To   time.Time
}

// Match reports whether the frame passes every set filter.
func (p Predicate) Match(f *model.Frame) bool {
	if p.Project != "" && f.Project != p.Project {
		return false
	}
	if p.Task != "" && f.Task != p.Task {
		return false
	}
	if len(p.Tags) > 0 && !f.HasAnyTag(p.Tags) {
		return false
	}
	if !p.From.IsZero() && f.Start.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !f.Start.Before(p.To) {
		return false
	}
	return true
}

// GroupBy selects the report grouping dimension.
type GroupBy int

const (
	GroupNone GroupBy = iota
	GroupProject
	GroupTask
	GroupDay
)

// ParseGroupBy maps the CLI flag value to a grouping dimension.
func ParseGroupBy(s string) (GroupBy, error) {
	switch s {
	case "", "none":
		return GroupNone, nil
	case "project":
		return GroupProject, nil
	case "task":
		return GroupTask, nil
	case "day":
		return GroupDay, nil
	default:
		return GroupNone, fmt.Errorf("unknown grouping %q (want project, task, day or none)", s)
	}
}

func (g GroupBy) String() string {
	switch g {
	case GroupProject:
		return "project"
	case GroupTask:
		return "task"
	case GroupDay:
		return "day"
	default:
		return "none"
	}
}

// key derives the group key of a frame. Day keys use the offset the frame
// was recorded with, so a frame logged at 23:30+02:00 stays on its own
// calendar day instead of drifting into the viewer's zone.
func (g GroupBy) key(f *model.Frame) string {
	switch g {
	case GroupProject:
		return f.Project
	case GroupTask:
		if f.Task == "" {
			return f.Project
		}
		return f.Project + "/" + f.Task
	case GroupDay:
		return f.Start.Format("2006-01-02")
	default:
		return ""
	}
}

// Group is one bucket of a report.
type Group struct {
	Key    string         `json:"key"`
	Total  time.Duration  `json:"total"`
	Count  int            `json:"count"`
	Frames []*model.Frame `json:"frames,omitempty"`
}

// Report is the result of an aggregation run.
type Report struct {
	GroupBy string        `json:"group_by"`
	Total   time.Duration `json:"total"`
	Count   int           `json:"count"`
	Groups  []Group       `json:"groups"`
	// Degenerate lists the IDs of zero-duration frames included in the
	// report. They contribute nothing to totals but are surfaced so the
	// user can clean them up.
	Degenerate []string `json:"degenerate,omitempty"`
	// Running is true when a running frame contributed to the totals.
	Running bool `json:"running"`
}

// Aggregate filters frames through the predicate and buckets them along the
// grouping dimension. Running frames are measured against now. Frame lists
// per group are only retained when includeFrames is set.
func Aggregate(frames iter.Seq[*model.Frame], pred Predicate, group GroupBy, now time.Time, includeFrames bool) Report {
	report := Report{GroupBy: group.String()}
	buckets := make(map[string]*Group)
	var order []string

	for f := range frames {
		if !pred.Match(f) {
			continue
		}
		if f.Degenerate() {
			report.Degenerate = append(report.Degenerate, f.ID)
		}
		if f.Running() {
			report.Running = true
		}
		d := f.Duration(now)

		key := group.key(f)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &Group{Key: key}
			buckets[key] = bucket
			order = append(order, key)
		}
		bucket.Total += d
		bucket.Count++
		if includeFrames {
			bucket.Frames = append(bucket.Frames, f)
		}
		report.Total += d
		report.Count++
	}

	sort.Strings(order)
	for _, key := range order {
		report.Groups = append(report.Groups, *buckets[key])
	}
	sort.Strings(report.Degenerate)
	return report
}

// Overlap is a pair of frames of the same project whose intervals intersect.
type Overlap struct {
	A *model.Frame `json:"a"`
	B *model.Frame `json:"b"`
}

// FindOverlaps reports every intersecting pair among the frames, each pair
// once, ordered by the earlier frame's start. Frames only conflict within
// the same project; parallel work across projects is legitimate.
func FindOverlaps(frames iter.Seq[*model.Frame], pred Predicate, now time.Time) []Overlap {
	var all []*model.Frame
	for f := range frames {
		if pred.Match(f) {
			all = append(all, f)
		}
	}
	sortFrames(all)

	var out []Overlap
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[i].Overlaps(all[j], now) {
				out = append(out, Overlap{A: all[i], B: all[j]})
			}
		}
	}
	return out
}

// Gap is an idle stretch between two consecutive frames.
type Gap struct {
	After    *model.Frame  `json:"after"`
	Before   *model.Frame  `json:"before"`
	Duration time.Duration `json:"duration"`
}

// FindGaps reports idle stretches of at least minGap between consecutive
// frames. Back-to-back and overlapping frames produce no gap.
func FindGaps(frames iter.Seq[*model.Frame], pred Predicate, now time.Time, minGap time.Duration) []Gap {
	var all []*model.Frame
	for f := range frames {
		if pred.Match(f) {
			all = append(all, f)
		}
	}
	sortFrames(all)

	var out []Gap
	var last *model.Frame
	lastEnd := time.Time{}
	for _, f := range all {
		end := f.End
		if f.Running() {
			end = now
		}
		if last != nil && f.Start.After(lastEnd) {
			gap := f.Start.Sub(lastEnd)
			if gap >= minGap {
				out = append(out, Gap{After: last, Before: f, Duration: gap})
			}
		}
		if end.After(lastEnd) {
			last = f
			lastEnd = end
		}
	}
	return out
}

func sortFrames(frames []*model.Frame) {
	sort.Slice(frames, func(i, j int) bool {
		if !frames[i].Start.Equal(frames[j].Start) {
			return frames[i].Start.Before(frames[j].Start)
		}
		return frames[i].ID < frames[j].ID
	})
}
