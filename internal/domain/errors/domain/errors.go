// Package domain provides domain-specific error definitions and utilities.
package domain

import (
	"errors"
	"fmt"
)

// Source-related errors.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrSourceTooLarge = errors.New("lua source exceeds maximum size")
)

// Scan diagnostics.
var (
	ErrUnterminatedFunction = errors.New("function has no matching end")
)

// SyntaxError describes a problem found at a byte offset of a Lua source.
// The scanner never returns it; it is attached to scan results as a diagnostic.
type SyntaxError struct {
	Position int
	Message  string
	Err      error
}

// NewSyntaxError creates a SyntaxError for the given offset.
func NewSyntaxError(position int, message string, err error) *SyntaxError {
	return &SyntaxError{Position: position, Message: message, Err: err}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax error at column %d, error: %s", e.Position, e.Message)
}

// Unwrap returns the underlying sentinel, if any.
func (e *SyntaxError) Unwrap() error {
	return e.Err
}
