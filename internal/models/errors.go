package models

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidInput marks an unrecognised enum value or a malformed number.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIncompleteProfile marks a profile missing one of the required fields.
	ErrIncompleteProfile = errors.New("incomplete profile")
	// ErrPersistenceUnavailable is returned when the session store cannot be reached.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

type IncompleteProfileError struct {
	Missing []string
}

func (e *IncompleteProfileError) Error() string {
	return "missing fields: " + strings.Join(e.Missing, ", ")
}

func (e *IncompleteProfileError) Unwrap() error {
	return ErrIncompleteProfile
}
