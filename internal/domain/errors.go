// Package domain defines core types and errors shared by the discovery,
// schema synthesis and MDX execution layers.
package domain

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// DiscoveryError indicates the relational metadata lookup failed
// (connectivity, missing schema or table, permissions).
type DiscoveryError struct {
	Schema string
	Table  string
	Cause  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover columns of %s: %v", qualified(e.Schema, e.Table), e.Cause)
}

func (e *DiscoveryError) Unwrap() error { return e.Cause }

// ConnectionError indicates the MDX connection over the synthesized schema
// could not be opened.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("open mdx connection: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// ExecutionError indicates an MDX query failed against the synthesized
// schema, either because it names something the schema lacks or because
// the backing relational query failed.
type ExecutionError struct {
	Query string
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute mdx: %v", e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// ErrExecution creates an ExecutionError whose cause is a formatted message.
func ErrExecution(query, format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Query: query, Cause: fmt.Errorf(format, args...)}
}

// Pipeline stages reported by Stage.
const (
	StageDiscover = "discover"
	StageConnect  = "connect"
	StageExecute  = "execute"
)

// Stage names the pipeline step err came from, or "" when err carries none
// of the stage errors.
func Stage(err error) string {
	var (
		discovery  *DiscoveryError
		connection *ConnectionError
		execution  *ExecutionError
	)
	switch {
	case errors.As(err, &discovery):
		return StageDiscover
	case errors.As(err, &connection):
		return StageConnect
	case errors.As(err, &execution):
		return StageExecute
	}
	return ""
}

func qualified(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}
