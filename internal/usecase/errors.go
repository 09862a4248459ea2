package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorNotFound        ErrorCode = "NOT_FOUND"
	ErrorTokenExpired    ErrorCode = "TOKEN_EXPIRED"
	ErrorUnknownFunction ErrorCode = "UNKNOWN_FUNCTION"
	ErrorUpstream        ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal        ErrorCode = "INTERNAL_ERROR"
)

// Error is the typed failure every service returns. Reason is a stable machine
// string for logs; Message, when set, is safe to show to the caller.
type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

func newMessageError(code ErrorCode, reason, message string, err error) *Error {
	return &Error{Code: code, Reason: reason, Message: message, Err: err}
}

type upstreamMessager interface {
	UpstreamMessage() string
}

// upstreamMessage extracts the message an upstream API put in its error body.
func upstreamMessage(err error) string {
	var m upstreamMessager
	if !errors.As(err, &m) {
		return ""
	}
	return m.UpstreamMessage()
}

// asError returns err unchanged when it already carries a code, otherwise wraps
// it with the given code and reason.
func asError(err error, code ErrorCode, reason string) *Error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	return newError(code, reason, err)
}
