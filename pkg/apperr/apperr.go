// Package apperr contains the typed failures the account service hands back
// to its callers. Every failure carries an HTTP-like status and a message that
// is safe to show to a client.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInvalidToken      Kind = "invalid_token"
	KindInvalidCredential Kind = "invalid_credential"
	KindExpiredToken      Kind = "expired_token"
	KindTokenUsed         Kind = "token_used"
	KindAlreadyVerified   Kind = "already_verified"
	KindConflict          Kind = "conflict"
	KindUnauthorized      Kind = "unauthorized"
	KindInternal          Kind = "internal"
)

var statuses = map[Kind]int{
	KindValidation:        http.StatusBadRequest,
	KindNotFound:          http.StatusNotFound,
	KindInvalidToken:      http.StatusBadRequest,
	KindInvalidCredential: http.StatusBadRequest,
	KindExpiredToken:      http.StatusBadRequest,
	KindTokenUsed:         http.StatusBadRequest,
	KindAlreadyVerified:   http.StatusBadRequest,
	KindConflict:          http.StatusConflict,
	KindUnauthorized:      http.StatusUnauthorized,
	KindInternal:          http.StatusInternalServerError,
}

var (
	ErrInvalidToken      = New(KindInvalidToken, "Invalid token")
	ErrExpiredToken      = New(KindExpiredToken, "Token is expired")
	ErrTokenUsed         = New(KindTokenUsed, "Token was already used")
	ErrUserNotFound      = New(KindNotFound, "User not found")
	ErrInvalidCredential = New(KindInvalidCredential, "Wrong password")
	ErrEmailTaken        = New(KindConflict, "This email is already registered. Please login or use a different email")
	ErrAlreadyVerified   = New(KindAlreadyVerified, "Email is already verified")
	ErrBadLogin          = New(KindUnauthorized, "Invalid credentials")
)

type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Status: StatusFor(kind), Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Status: StatusFor(kind), Message: msg, Err: err}
}

// Validation turns a validator error into a 400 carrying the validator's
// message.
func Validation(err error) *Error {
	return Wrap(KindValidation, err.Error(), err)
}

func StatusFor(kind Kind) int {
	if s, ok := statuses[kind]; ok {
		return s
	}

	return http.StatusInternalServerError
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so that errors.Is(err, ErrExpiredToken) holds for any
// expired-token failure, whatever its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// WithMessage returns a copy with a different client message.
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

// As extracts the typed failure from err, if there is one.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}
