// Package common defines shared sentinel errors and small helpers used
// across the dreamhouse components. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Storage-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorStorage  = errors.New("storage failure")

	// ErrorPartialDelete reports a delete that removed the primary record
	// but failed to remove a dependent artifact (thumbnail, version dir).
	// The record deletion is not rolled back.
	ErrorPartialDelete = errors.New("partial delete")

	// Auth / ownership errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorConflict     = errors.New("already exists")

	// Validation errors.
	ErrorInvalidInput = errors.New("invalid input")

	ErrorInternal = errors.New("internal error")
)
