// Package cerr defines the error kinds surfaced to users of the pipeline:
// IO, Lex, Preprocess, Syntax, Type, and Internal. These carry
// enough context (file, line, column, operation) for the diagnostic engine
// and for driver-level error handling, without unwinding the pipeline —
// callers accumulate them and decide whether to continue.
package cerr

import (
	"fmt"
	"time"
)

// Kind classifies an error for routing and display.
type Kind string

const (
	KindIO         Kind = "io"
	KindLex        Kind = "lex"
	KindPreprocess Kind = "preprocess"
	KindSyntax     Kind = "syntax"
	KindType       Kind = "type"
	KindInternal   Kind = "internal"
)

// Error is the shared shape for every error kind this package produces.
type Error struct {
	Kind       Kind
	Operation  string
	FilePath   string
	Line       int
	Column     int
	Underlying error
	Timestamp  time.Time
}

// New creates an Error of the given kind with no location context.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Operation: op, Underlying: err, Timestamp: time.Now()}
}

// WithLocation attaches file/line/column context and returns the receiver
// for chaining.
func (e *Error) WithLocation(path string, line, col int) *Error {
	e.FilePath = path
	e.Line = line
	e.Column = col
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s %s failed at %s:%d:%d: %v", e.Kind, e.Operation, e.FilePath, e.Line, e.Column, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Kind, e.Operation, e.Underlying)
}

// Unwrap supports errors.Is/errors.As against the underlying cause.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// IsInternal reports whether this error represents an impossible-state
// condition that the caller should treat as unrecoverable.
func (e *Error) IsInternal() bool {
	return e.Kind == KindInternal
}
