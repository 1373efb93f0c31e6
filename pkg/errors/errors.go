// Package errors provides custom error types for the sitrep pipeline.
// These errors classify failures as fatal (abort the run before any write)
// or row-level (absorbed locally), and carry enough context for the caller
// to build an operator notification.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// As is an alias for the standard library errors.As.
var As = errors.As

// Is is an alias for the standard library errors.Is.
var Is = errors.Is

// Join is an alias for the standard library errors.Join.
var Join = errors.Join

// Common sentinel errors for the sitrep pipeline
var (
	// ErrExtraction indicates the document could not be parsed at all
	ErrExtraction = errors.New("extraction failed")

	// ErrSchemaDrift indicates no extracted table matched the expected layout
	ErrSchemaDrift = errors.New("schema drift")

	// ErrRowShape indicates a single row or table had an unexpected shape
	ErrRowShape = errors.New("unexpected row shape")

	// ErrReconciliationIntegrity indicates the previous snapshot could not be loaded
	ErrReconciliationIntegrity = errors.New("reconciliation integrity")

	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")
)

// ExtractionError represents a document that is unreadable, corrupt or unsupported.
type ExtractionError struct {
	Document string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	switch {
	case e.Document != "" && e.Err != nil:
		return fmt.Sprintf("cannot extract tables from %s: %s: %v", e.Document, e.Message, e.Err)
	case e.Document != "":
		return fmt.Sprintf("cannot extract tables from %s: %s", e.Document, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("cannot extract tables: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("cannot extract tables: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

// NewExtractionError creates a new ExtractionError
func NewExtractionError(document, message string, err error) *ExtractionError {
	return &ExtractionError{Document: document, Message: message, Err: err}
}

// DriftWarning records a candidate table discarded because its width did not
// match the active layout. It is reported, never returned as a failure.
type DriftWarning struct {
	Table    int // zero-based table position in extraction order
	Columns  int
	Expected int
	Rows     int
}

// String describes the warning
func (w DriftWarning) String() string {
	return fmt.Sprintf("table %d has %d columns, expected %d (%d rows discarded)", w.Table, w.Columns, w.Expected, w.Rows)
}

// SchemaDriftError represents the absence of any table matching the expected layout.
type SchemaDriftError struct {
	Expected int
	Tables   int
	Widths   []int
	Warnings []DriftWarning
}

// Error implements the error interface
func (e *SchemaDriftError) Error() string {
	if e.Tables == 0 {
		return fmt.Sprintf("schema drift: no tables extracted, expected width %d", e.Expected)
	}
	return fmt.Sprintf("schema drift: none of %d tables has width %d (found widths %v)", e.Tables, e.Expected, e.Widths)
}

// Is implements errors.Is support
func (e *SchemaDriftError) Is(target error) bool {
	return target == ErrSchemaDrift
}

// NewSchemaDriftError creates a new SchemaDriftError from the discarded tables
func NewSchemaDriftError(expected, tables int, warnings []DriftWarning) *SchemaDriftError {
	widths := make([]int, 0, len(warnings))
	for _, w := range warnings {
		widths = append(widths, w.Columns)
	}
	return &SchemaDriftError{
		Expected: expected,
		Tables:   tables,
		Widths:   widths,
		Warnings: warnings,
	}
}

// RowShapeError represents a row or table with an unexpected shape during cleaning.
type RowShapeError struct {
	Row     int    // zero-based row in the working table, -1 for a whole table
	Name    string // entity name if one was present
	Column  string
	Value   string
	Message string
}

// Error implements the error interface
func (e *RowShapeError) Error() string {
	var sb strings.Builder
	if e.Row >= 0 {
		fmt.Fprintf(&sb, "row %d", e.Row)
	} else {
		sb.WriteString("table")
	}
	if e.Name != "" {
		fmt.Fprintf(&sb, " (%s)", e.Name)
	}
	if e.Column != "" {
		fmt.Fprintf(&sb, " column %q value %q", e.Column, e.Value)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

// Is implements errors.Is support
func (e *RowShapeError) Is(target error) bool {
	return target == ErrRowShape
}

// NewRowShapeError creates a new RowShapeError
func NewRowShapeError(row int, name, message string) *RowShapeError {
	return &RowShapeError{Row: row, Name: name, Message: message}
}

// ReconciliationIntegrityError represents a baseline snapshot that cannot be loaded.
type ReconciliationIntegrityError struct {
	Partition string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ReconciliationIntegrityError) Error() string {
	msg := fmt.Sprintf("cannot load previous snapshot %s: %s", e.Partition, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements errors.Unwrap
func (e *ReconciliationIntegrityError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ReconciliationIntegrityError) Is(target error) bool {
	return target == ErrReconciliationIntegrity
}

// NewReconciliationIntegrityError creates a new ReconciliationIntegrityError
func NewReconciliationIntegrityError(partition, message string, err error) *ReconciliationIntegrityError {
	return &ReconciliationIntegrityError{Partition: partition, Message: message, Err: err}
}

// RunError wraps a fatal error with the report date and the last stage the
// pipeline reached, which is what an operator notification needs.
type RunError struct {
	ReportDate string
	Stage      string
	Err        error
}

// Error implements the error interface
func (e *RunError) Error() string {
	return fmt.Sprintf("report %s failed after stage %s: %v", e.ReportDate, e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError creates a new RunError
func NewRunError(reportDate, stage string, err error) *RunError {
	return &RunError{ReportDate: reportDate, Stage: stage, Err: err}
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// AlreadyExistsError represents an attempt to create a resource twice
type AlreadyExistsError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(resource, id string) *AlreadyExistsError {
	return &AlreadyExistsError{Resource: resource, ID: id}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "csv", "yaml", "date"
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "list", "delete"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsFatal reports whether err must abort a run. Row-level anomalies are not fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !IsRowShape(err)
}

// IsExtraction checks if an error is an extraction error
func IsExtraction(err error) bool {
	return errors.Is(err, ErrExtraction)
}

// IsSchemaDrift checks if an error is a schema drift error
func IsSchemaDrift(err error) bool {
	return errors.Is(err, ErrSchemaDrift)
}

// IsRowShape checks if an error is a row shape error
func IsRowShape(err error) bool {
	return errors.Is(err, ErrRowShape)
}

// IsReconciliationIntegrity checks if an error is a reconciliation integrity error
func IsReconciliationIntegrity(err error) bool {
	return errors.Is(err, ErrReconciliationIntegrity)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
