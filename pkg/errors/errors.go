package errors

import (
	"fmt"
)

// ParseError represents a YAML plan parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures plan validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PrecheckError indicates an irrecoverable precondition failed before any
// unit ran. It always aborts the whole run.
type PrecheckError struct {
	Check   string
	Message string
}

// NewPrecheckError constructs a PrecheckError.
func NewPrecheckError(check, message string) error {
	return &PrecheckError{Check: check, Message: message}
}

func (e *PrecheckError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("precheck %s failed: %s", e.Check, e.Message)
}

// GuardError indicates a unit's guard could not assess the system state.
// The orchestrator fails open: the unit is treated as needing apply.
type GuardError struct {
	UnitID string
	Err    error
}

// NewGuardError constructs a GuardError.
func NewGuardError(unitID string, err error) error {
	return &GuardError{UnitID: unitID, Err: err}
}

func (e *GuardError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("guard evaluation failed for unit %s: %v", e.UnitID, e.Err)
}

// Unwrap exposes the root error.
func (e *GuardError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ApplyError represents a runtime failure while applying a unit. Output
// carries whatever the underlying system command printed, so the operator
// can remediate and re-run.
type ApplyError struct {
	UnitID string
	Output string
	Err    error
}

// NewApplyError constructs an ApplyError.
func NewApplyError(unitID, output string, err error) error {
	return &ApplyError{UnitID: unitID, Output: output, Err: err}
}

func (e *ApplyError) Error() string {
	if e == nil {
		return ""
	}
	if e.UnitID != "" {
		return fmt.Sprintf("apply failed for unit %s: %v", e.UnitID, e.Err)
	}
	return fmt.Sprintf("apply failed: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ApplyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
