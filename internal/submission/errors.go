package submission

import "errors"

// Kinds of pipeline failure. Match them with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("file not found")
	ErrTooLarge          = errors.New("file too large")
	ErrDuplicateName     = errors.New("duplicate file name")
	ErrUnauthorized      = errors.New("submission not authorized")
	ErrTransport         = errors.New("transport error")
	ErrServer            = errors.New("server error")
	ErrMalformedResponse = errors.New("malformed response")
)

// msgImpeded is shown for any failed upload.
const msgImpeded = "Impeded communication, please try again later."

// Error is a stage failure of a given Kind. Message, when set, is the text
// shown to the user; Err keeps the underlying cause for logs.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Kind.Error() + ": " + e.Err.Error()
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return target == ErrValidation &&
		(e.Kind == ErrNotFound || e.Kind == ErrTooLarge || e.Kind == ErrDuplicateName)
}

// AuthorizationError is the platform declining a submission. Message is the
// server's explanation, verbatim.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

func (e *AuthorizationError) Is(target error) bool { return target == ErrUnauthorized }

// redactedError hides a URL (which may carry the phone number in its query)
// from the message while keeping the cause reachable.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
