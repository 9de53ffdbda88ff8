package service

import "errors"

// Sentinel errors returned by the session service.  Handlers translate
// them into HTTP status codes; none of them is worth retrying.
var (
	// ErrNotFound means the referenced session or attendance does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the supplied code did not match.
	ErrForbidden = errors.New("forbidden")
	// ErrSessionFull means the session already has maxParticipants attendees.
	ErrSessionFull = errors.New("session is full")
	// ErrInvalid means the input failed validation.  Validation errors
	// unwrap to it and read like "title is required".
	ErrInvalid = errors.New("invalid")
)

func invalid(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrInvalid }
