// Package plumeerr defines the error codes surfaced by the book pipeline.
package plumeerr

import (
	"errors"
	"fmt"
)

// Code classifies a pipeline failure.
type Code string

const (
	NoMemoriesAvailable Code = "no_memories_available"
	UnknownMode         Code = "unknown_mode"
	GenerationFailed    Code = "generation_failed"
	PersistenceFailed   Code = "persistence_failed"
	ImageEmbedFailed    Code = "image_embed_failed"
	ExportFailed        Code = "export_failed"
	NotFound            Code = "not_found"
)

type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Wrap tags err with code unless it already carries one.
func Wrap(code Code, err error) error {
	if err == nil {
		return nil
	}
	if CodeOf(err) != "" {
		return err
	}
	return New(code, err)
}
