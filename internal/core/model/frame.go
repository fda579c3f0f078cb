package model

import (
	"time"

	"github.com/google/uuid"
)

// Frame is the atomic record of worked time: an interval recorded against a
// project and, optionally, one of its tasks. A frame with a zero End is the
// running frame; at most one such frame exists per store, and its presence is
// the sole source of truth for "is a timer active".
type Frame struct {
	ID      string
	Project string
	// Task is empty when the frame is recorded against the project only.
	Task  string
	Start time.Time
	// End is the zero time while the frame is running. Timestamps keep the
	// fixed offset captured at creation time and are held at second
	// precision, the resolution of the encoded form.
	End  time.Time
	Tags []string
	Note string
	// Extra holds unknown trailing fields preserved by the codec.
	Extra []string
}

// NewFrame validates the inputs and builds a frame with a fresh ID and no
// end timestamp (a running frame). Close it with WithEnd. The start is
// truncated to second precision so the frame round-trips through the codec
// unchanged.
func NewFrame(project, task string, start time.Time, tags []string, note string) (*Frame, error) {
	if err := ValidateName("project name", project); err != nil {
		return nil, err
	}
	if task != "" {
		if err := ValidateName("task name", task); err != nil {
			return nil, err
		}
	}
	if start.IsZero() {
		return nil, &ValidationError{Field: "start", Value: "", Reason: "must not be zero"}
	}
	normalized, err := NormalizeTags(tags)
	if err != nil {
		return nil, err
	}
	return &Frame{
		ID:      uuid.NewString(),
		Project: project,
		Task:    task,
		Start:   start.Truncate(time.Second),
		Tags:    normalized,
		Note:    note,
	}, nil
}

// WithEnd returns a closed copy of the frame, or ErrInvalidInterval when the
// end precedes the start. Zero-duration frames are permitted; the query
// engine flags them as degenerate.
func (f *Frame) WithEnd(end time.Time) (*Frame, error) {
	end = end.Truncate(time.Second)
	if end.Before(f.Start) {
		return nil, ErrInvalidInterval
	}
	closed := *f
	closed.End = end
	return &closed, nil
}

// Running reports whether the frame has no end timestamp yet.
func (f *Frame) Running() bool {
	return f.End.IsZero()
}

// Duration returns the worked time of the frame. A running frame is measured
// against the supplied now, never against a persisted derived value.
func (f *Frame) Duration(now time.Time) time.Duration {
	if f.Running() {
		if now.Before(f.Start) {
			return 0
		}
		return now.Sub(f.Start)
	}
	return f.End.Sub(f.Start)
}

// Degenerate reports whether the frame is closed with zero duration.
func (f *Frame) Degenerate() bool {
	return !f.Running() && f.End.Equal(f.Start)
}

// HasAnyTag reports whether the frame carries at least one of the wanted
// tags.
func (f *Frame) HasAnyTag(wanted []string) bool {
	return HasAnyTag(f.Tags, wanted)
}

// Overlaps reports whether two frames of the same project intersect as
// half-open intervals [start, end). Touching boundaries do not overlap.
// Running frames are extended to the supplied now.
func (f *Frame) Overlaps(other *Frame, now time.Time) bool {
	if f.Project != other.Project {
		return false
	}
	fEnd, oEnd := f.End, other.End
	if f.Running() {
		fEnd = now
	}
	if other.Running() {
		oEnd = now
	}
	return f.Start.Before(oEnd) && other.Start.Before(fEnd)
}

// FramePatch describes a partial edit of a frame. Nil fields are left
// untouched; pointers to zero values clear the field where that is legal
// (task, tags, note).
type FramePatch struct {
	Project *string
	Task    *string
	Start   *time.Time
	End     *time.Time
	Tags    *[]string
	Note    *string
}

// Apply returns a patched copy of the frame, validating the result the same
// way the constructor does.
func (p FramePatch) Apply(f *Frame) (*Frame, error) {
	out := *f
	if p.Project != nil {
		if err := ValidateName("project name", *p.Project); err != nil {
			return nil, err
		}
		out.Project = *p.Project
	}
	if p.Task != nil {
		if *p.Task != "" {
			if err := ValidateName("task name", *p.Task); err != nil {
				return nil, err
			}
		}
		out.Task = *p.Task
	}
	if p.Start != nil {
		if p.Start.IsZero() {
			return nil, &ValidationError{Field: "start", Value: "", Reason: "must not be zero"}
		}
		out.Start = p.Start.Truncate(time.Second)
	}
	if p.End != nil {
		out.End = p.End.Truncate(time.Second)
	}
	if p.Tags != nil {
		tags, err := NormalizeTags(*p.Tags)
		if err != nil {
			return nil, err
		}
		out.Tags = tags
	}
	if p.Note != nil {
		out.Note = *p.Note
	}
	if !out.End.IsZero() && out.End.Before(out.Start) {
		return nil, ErrInvalidInterval
	}
	return &out, nil
}

// Clone returns an independent copy of the frame.
func (f *Frame) Clone() *Frame {
	out := *f
	out.Tags = append([]string(nil), f.Tags...)
	out.Extra = append([]string(nil), f.Extra...)
	return &out
}
