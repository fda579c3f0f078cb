// Package timer implements the start/stop state machine on top of the store.
// There is no persisted timer state: the running frame, the unique frame
// without an end timestamp, is the whole state machine.
package timer

import (
	"errors"
	"fmt"
	"time"

	"github.com/kvisser/tempo/internal/core/model"
	"github.com/kvisser/tempo/internal/data/store"
	"github.com/kvisser/tempo/internal/util"
)

// Tracker drives timer transitions against a store.
type Tracker struct {
	store *store.Store
}

// NewTracker wraps a store with the timer operations.
func NewTracker(s *store.Store) *Tracker {
	return &Tracker{store: s}
}

// Status describes the current timer state for presentation.
type Status struct {
	Running bool
	Frame   *model.Frame
	// Elapsed is computed against the caller's clock, never persisted.
	Elapsed time.Duration
}

// Start opens a running frame. Exactly one timer may run at a time, across
// every project, so a second start fails with ErrAlreadyRunning.
func (t *Tracker) Start(project, task string, at time.Time, tags []string, note string) (*model.Frame, error) {
	f, err := t.store.CreateFrame(project, task, at, tags, note)
	if err != nil {
		if errors.Is(err, model.ErrOverlappingRunningFrame) {
			open, _ := t.store.RunningFrame()
			if open != nil {
				return nil, fmt.Errorf("%w: frame %s on project %q since %s",
					model.ErrAlreadyRunning, util.ShortID(open.ID), open.Project,
					open.Start.Format(time.RFC3339))
			}
			return nil, model.ErrAlreadyRunning
		}
		return nil, err
	}
	return f, nil
}

// Stop closes the running frame at the given time. A zero at closes it now.
func (t *Tracker) Stop(at time.Time) (*model.Frame, error) {
	open, ok := t.store.RunningFrame()
	if !ok {
		return nil, model.ErrNotRunning
	}
	if at.IsZero() {
		at = util.GetTimeProvider().Now()
	}
	return t.store.CloseFrame(open.ID, at)
}

// Cancel discards the running frame without recording any time.
func (t *Tracker) Cancel() (*model.Frame, error) {
	open, ok := t.store.RunningFrame()
	if !ok {
		return nil, model.ErrNotRunning
	}
	if err := t.store.DeleteFrame(open.ID); err != nil {
		return nil, err
	}
	util.LogInfof("cancelled frame %s", util.ShortID(open.ID))
	return open, nil
}

// AmendRunning edits the running frame in place, for example to fix the
// start time or reassign the project mid-timer.
func (t *Tracker) AmendRunning(patch model.FramePatch) (*model.Frame, error) {
	open, ok := t.store.RunningFrame()
	if !ok {
		return nil, model.ErrNotRunning
	}
	return t.store.AmendFrame(open.ID, patch)
}

// Status reports the timer state at the supplied time.
func (t *Tracker) Status(now time.Time) Status {
	open, ok := t.store.RunningFrame()
	if !ok {
		return Status{}
	}
	return Status{
		Running: true,
		Frame:   open,
		Elapsed: open.Duration(now),
	}
}
