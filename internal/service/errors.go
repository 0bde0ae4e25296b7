package service

import (
	"errors"
	"fmt"

	"foodshare/internal/repository"
)

// Error categories. Every *Error matches exactly one of them with errors.Is.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("permission denied")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
)

// Specific conflicts, matched in addition to ErrConflict.
var (
	ErrDonationExpired = errors.New("donation has expired")
	ErrDonationClaimed = errors.New("donation already claimed")
)

// Error is a business-rule failure reported at the service boundary.
type Error struct {
	Kind    error
	Message string
	// Field names the offending input for validation errors.
	Field string

	cause error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.cause
}

func unauthenticated() error {
	return &Error{Kind: ErrUnauthenticated, Message: "authentication credentials were not provided"}
}

func forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

func notFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func invalid(field, msg string) error {
	return &Error{Kind: ErrValidation, Field: field, Message: msg}
}

func conflict(cause error) error {
	return &Error{Kind: ErrConflict, Message: cause.Error(), cause: cause}
}

// fromStore translates repository sentinels. Anything else is returned as is
// and surfaces as an internal error.
func fromStore(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound(what + " not found")
	case errors.Is(err, repository.ErrDonationExpired):
		return conflict(ErrDonationExpired)
	case errors.Is(err, repository.ErrDonationClaimed):
		return conflict(ErrDonationClaimed)
	default:
		return err
	}
}
