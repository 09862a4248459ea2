package usecase

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// requireCode asserts err is a *Error with the given code and returns it.
func requireCode(t *testing.T, err error, code ErrorCode) *Error {
	t.Helper()
	require.Error(t, err)
	var ue *Error
	require.ErrorAs(t, err, &ue)
	require.Equal(t, code, ue.Code)
	return ue
}

type messageErr struct{ msg string }

func (e messageErr) Error() string           { return "status 400" }
func (e messageErr) UpstreamMessage() string { return e.msg }

func TestError_Format(t *testing.T) {
	require.Equal(t, "usecase: NOT_FOUND (no_token)", newError(ErrorNotFound, "no_token", nil).Error())

	cause := errors.New("db down")
	err := newError(ErrorInternal, "token_store_read_error", cause)
	require.Equal(t, "usecase: INTERNAL_ERROR (token_store_read_error): db down", err.Error())
	require.ErrorIs(t, err, cause)

	var nilErr *Error
	require.Equal(t, "", nilErr.Error())
	require.NoError(t, nilErr.Unwrap())
}

func TestUpstreamMessage(t *testing.T) {
	require.Equal(t, "bad dates", upstreamMessage(fmt.Errorf("wrapped: %w", messageErr{msg: "bad dates"})))
	require.Equal(t, "", upstreamMessage(errors.New("plain")))
}

func TestAsError(t *testing.T) {
	orig := newError(ErrorTokenExpired, "token_expired", nil)
	require.Same(t, orig, asError(fmt.Errorf("ctx: %w", orig), ErrorInternal, "other"))

	wrapped := asError(errors.New("boom"), ErrorInternal, "token_read_error")
	require.Equal(t, ErrorInternal, wrapped.Code)
	require.Equal(t, "token_read_error", wrapped.Reason)
}
