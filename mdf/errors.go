package mdf

import (
	"errors"
	"fmt"
)

var (
	ErrMissingName  = errors.New("missing object name")
	ErrShortVector  = errors.New("not enough vector components")
	ErrBadNumber    = errors.New("invalid number")
	ErrBadTimestamp = errors.New("invalid timestamp")
)

// A ParseError aborts a parse. Reason wraps one of the Err* sentinels.
type ParseError struct {
	Line   int
	Raw    string
	Reason error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("L%d: %v: %q", e.Line, e.Reason, e.Raw)
}

func (e *ParseError) Unwrap() error {
	return e.Reason
}

// WarningKind classifies a non-fatal parse diagnostic.
type WarningKind int

const (
	// TimestampWarning means a time line was skipped along with its body.
	TimestampWarning WarningKind = iota
	// StrayLineWarning means a line was outside any keyframe.
	StrayLineWarning
	// UnknownKeyWarning means a body token was not a recognised key.
	UnknownKeyWarning
)

func (k WarningKind) String() string {
	switch k {
	case TimestampWarning:
		return "timestamp"
	case StrayLineWarning:
		return "stray line"
	case UnknownKeyWarning:
		return "unknown key"
	}
	return fmt.Sprintf("WarningKind(%d)", int(k))
}

// Warning is a diagnostic that did not stop the parse.
type Warning struct {
	Kind    WarningKind
	Line    int
	Raw     string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("L%d: %s: %s", w.Line, w.Kind, w.Message)
}
