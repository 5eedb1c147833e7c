package tap

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyEnded is returned when a node is ended twice.
	ErrAlreadyEnded = errors.New("report already ended")

	// ErrChildrenOpen is returned when a node ends before its subsections.
	ErrChildrenOpen = errors.New("subsections not ended")

	// ErrBailedOut is returned by every call on a tree after a bail-out.
	ErrBailedOut = errors.New("report bailed out")
)

// Error describes a misuse of a report node.
type Error struct {
	Op          string
	Description string
	Err         error
}

func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
