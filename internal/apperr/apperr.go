package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can pick the right recovery path
// instead of string-matching error messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingCredential
	KindPrivateDataPermission
	KindNotFound
	KindExternalService
	KindValidation
)

// Code returns the stable machine-readable code for a kind. These codes are
// part of the API response contract.
func (k Kind) Code() string {
	switch k {
	case KindMissingCredential:
		return "MISSING_CREDENTIAL"
	case KindPrivateDataPermission:
		return "PRIVATE_ACTIVITIES_REQUIRED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindExternalService:
		return "EXTERNAL_SERVICE_ERROR"
	case KindValidation:
		return "VALIDATION_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf walks the error chain and returns the kind of the first *Error
// found, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
