package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the store and the timer. All of them are
// recoverable at the CLI boundary; none of them abort the process.
var (
	ErrDuplicateProject        = errors.New("project already exists")
	ErrDuplicateTask           = errors.New("task already exists")
	ErrUnknownProject          = errors.New("unknown project")
	ErrUnknownTask             = errors.New("unknown task")
	ErrUnknownFrame            = errors.New("unknown frame")
	ErrAlreadyRunning          = errors.New("a frame is already running")
	ErrNotRunning              = errors.New("no frame is running")
	ErrInvalidInterval         = errors.New("frame cannot end before it starts")
	ErrOverlappingRunningFrame = errors.New("another running frame is already open")
	ErrProjectInUse            = errors.New("project is referenced by tasks or frames")
	ErrTaskInUse               = errors.New("task is referenced by frames")
	ErrStoreLocked             = errors.New("store is locked by another process")
)

// ValidationError reports a field value that would produce an inconsistent
// entity or an unencodable record.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
