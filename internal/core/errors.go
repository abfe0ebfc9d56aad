package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMultiStatement is returned before any database round-trip when a
	// submitted SQL text still contains a semicolon after trailing ones are
	// stripped. Statement chaining is categorically disallowed.
	ErrMultiStatement = errors.New("queries cannot contain semicolons")

	// ErrExportDisabled is returned when a full export is requested but the
	// deployment has not enabled it.
	ErrExportDisabled = errors.New("full export is not enabled")

	// ErrAccessDenied is returned by policy checks that fail for the
	// requesting principal.
	ErrAccessDenied = errors.New("access denied")
)

// ParameterSyntaxError reports a stray % in SQL text that is neither part of a
// %(name)s placeholder nor escaped as %%.
type ParameterSyntaxError struct {
	SQL string
}

func (e *ParameterSyntaxError) Error() string {
	return "invalid parameter syntax: unescaped % (use %% for a literal percent sign)"
}

// ParameterConflictError reports the same parameter name declared with two
// different defaults across queries on one page.
type ParameterConflictError struct {
	Name     string
	Existing string
	Declared string
}

func (e *ParameterConflictError) Error() string {
	return fmt.Sprintf("parameter %q declared with conflicting defaults: %q and %q",
		e.Name, e.Existing, e.Declared)
}
