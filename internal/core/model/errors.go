package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an entity is required to exist and does not.
	ErrNotFound = errors.New("entity was not found")

	// ErrConflict matches every *ConflictError through errors.Is.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is returned when the caller is not allowed to perform the operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is returned by login for both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is the single outcome of every token verification failure.
	ErrInvalidToken = errors.New("invalid token")

	// ErrPasswordMismatch is returned when a password does not match its stored hash.
	ErrPasswordMismatch = errors.New("password does not match")

	// ErrMalformedHash is returned when a stored password hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
)

// ConflictField identifies the unique field involved in a conflict.
type ConflictField string

const (
	ConflictNickname ConflictField = "nickname"
	ConflictEmail    ConflictField = "email"
)

// ConflictError is returned when a write would break nickname or email uniqueness.
type ConflictError struct {
	Field ConflictField
}

// NewConflictError builds a ConflictError for the given field.
func NewConflictError(field ConflictField) *ConflictError {
	return &ConflictError{Field: field}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("This %s is already in use", e.Field)
}

// Is makes errors.Is(err, ErrConflict) hold for any ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ValidationError lists every payload field that failed structural validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "The following fields contain validation errors: " + strings.Join(e.Fields, ",")
}
