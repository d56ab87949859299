package errs

import (
	"errors"
	"fmt"
)

// Code classifies whole-run failures. A page whose QR region cannot be read is not an
// error at all: it is classified as an ordinary content page.
type Code string

const (
	// CodeFatalInput: source missing, unreadable, or not a valid PDF.
	CodeFatalInput Code = "FATAL_INPUT"
	// CodeOutputWrite: output directory uncreatable or a file unwritable/unpublishable.
	// Files written before the failure are left on disk.
	CodeOutputWrite Code = "OUTPUT_WRITE"
)

// Error is a whole-run failure that terminates the process.
type Error struct {
	Code  Code
	Op    string
	Path  string
	Cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Op)
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// FatalInput wraps a failure to read or parse the source document.
func FatalInput(op, path string, cause error) *Error {
	return &Error{Code: CodeFatalInput, Op: op, Path: path, Cause: cause}
}

// OutputWrite wraps a failure to create, write or publish an output file.
func OutputWrite(op, path string, cause error) *Error {
	return &Error{Code: CodeOutputWrite, Op: op, Path: path, Cause: cause}
}

func is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsFatalInput reports whether err (or anything it wraps) is a fatal input error.
func IsFatalInput(err error) bool { return is(err, CodeFatalInput) }

// IsOutputWrite reports whether err (or anything it wraps) is an output write error.
func IsOutputWrite(err error) bool { return is(err, CodeOutputWrite) }

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsFatalInput(err):
		return 2
	case IsOutputWrite(err):
		return 3
	default:
		return 1
	}
}
