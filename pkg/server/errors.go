package server

import (
	"errors"
	"fmt"
)

var (
	ErrInternalServerError = errors.New("internal server error")
	ErrNotFound            = errors.New("your requested item is not found")
	ErrBadParamInput       = errors.New("given param is not valid")

	// upstream collaborator failures, kept distinct so callers can map them
	// to the structured payloads the clients expect
	ErrDirections          = errors.New("directions provider failed")
	ErrAnalysisUnreachable = errors.New("analysis service unreachable")
	ErrAnalysisBadRequest  = errors.New("analysis service rejected request")
	ErrAnalysisServer      = errors.New("analysis service internal error")
)

type Error struct {
	orig error
	kind error
	msg  string
}

func WrapErrorf(orig error, kind error, format string, a ...interface{}) error {
	return &Error{
		orig: orig,
		kind: kind,
		msg:  fmt.Sprintf(format, a...),
	}
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

func (e *Error) Kind() error {
	return e.kind
}

func (e *Error) Message() string {
	return e.msg
}

// KindOf reports the error kind an error was wrapped with, or
// ErrInternalServerError when the error carries no kind.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return ErrInternalServerError
}
