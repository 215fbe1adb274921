package ledger

import "errors"

// Error kinds. Every operation failure is one of these four; handlers map
// them to HTTP statuses and tests match them with errors.Is.
var (
	ErrAuthorization = errors.New("authorization_error")
	ErrValidation    = errors.New("validation_error")
	ErrState         = errors.New("state_error")
	ErrResource      = errors.New("resource_error")
)

type Error struct {
	kind error
	Tag  string
}

func (e *Error) Error() string { return e.Tag }

func (e *Error) Unwrap() error { return e.kind }

func Unauthorized(tag string) error {
	return &Error{kind: ErrAuthorization, Tag: tag}
}

func Validation(tag string) error {
	return &Error{kind: ErrValidation, Tag: tag}
}

func State(tag string) error {
	return &Error{kind: ErrState, Tag: tag}
}

func Resource(tag string) error {
	return &Error{kind: ErrResource, Tag: tag}
}
