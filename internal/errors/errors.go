// internal/errors/errors.go
package errors

import "fmt"

// ErrorType represents the type of error
type ErrorType string

const (
	// SyntaxError covers every parse failure: an unexpected token where a
	// production expects something else.
	SyntaxError ErrorType = "SyntaxError"
	// CompileError covers lowering failures: unknown variable, unknown
	// function, arity mismatch, invalid operator, redefinition.
	CompileError ErrorType = "CompileError"
	// RuntimeError covers execution-engine failures.
	RuntimeError ErrorType = "RuntimeError"
)

// KaleidoError is a diagnostic with an optional source line number.
type KaleidoError struct {
	Type    ErrorType
	Message string
	Line    int
}

// Error implements the error interface
func (e *KaleidoError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d)", e.Type, e.Message, e.Line)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewSyntaxError creates a new syntax error
func NewSyntaxError(message string, line int) *KaleidoError {
	return &KaleidoError{Type: SyntaxError, Message: message, Line: line}
}

// NewCompileError creates a new compile error
func NewCompileError(message string) *KaleidoError {
	return &KaleidoError{Type: CompileError, Message: message}
}

// NewRuntimeError creates a new runtime error
func NewRuntimeError(message string) *KaleidoError {
	return &KaleidoError{Type: RuntimeError, Message: message}
}
