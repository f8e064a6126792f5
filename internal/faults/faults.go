// Package faults defines the structured error kinds shared by the engine
// packages. Degenerate numerical states that can be locally recovered
// (zero-variance fallbacks, smoothing floors) are not faults; only malformed
// input or configuration is.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure.
type Kind string

const (
	// KindInput: empty, undersized, or mismatched-length input sequences.
	KindInput Kind = "input"
	// KindConfig: unknown method selection or out-of-range option values.
	KindConfig Kind = "configuration"
	// KindNumerical: a computation that would otherwise propagate NaN/Inf.
	KindNumerical Kind = "numerical"
)

// Error is a classified engine error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Input creates a KindInput error.
func Input(format string, args ...any) *Error {
	return &Error{Kind: KindInput, Msg: fmt.Sprintf(format, args...)}
}

// Config creates a KindConfig error.
func Config(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Msg: fmt.Sprintf(format, args...)}
}

// Numerical creates a KindNumerical error.
func Numerical(format string, args ...any) *Error {
	return &Error{Kind: KindNumerical, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err (or any error it wraps) is an engine error of
// the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
