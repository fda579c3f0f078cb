package codec

import "fmt"

// Error is a malformed-record error annotated with the file and line number
// of the offending record so a user can repair the file by hand.
type Error struct {
	File string
	Line int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: malformed record: %v", e.File, e.Line, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
