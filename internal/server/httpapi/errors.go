package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{common.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable},
	{common.ErrInvalidCredential, http.StatusUnauthorized, CodeUnauthorized},
	{common.ErrorUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{common.ErrMalformed, http.StatusUnauthorized, CodeUnauthorized},
	{common.ErrSignatureInvalid, http.StatusUnauthorized, CodeUnauthorized},
	{common.ErrRevoked, http.StatusUnauthorized, CodeUnauthorized},
	{common.ErrMismatch, http.StatusUnauthorized, CodeUnauthorized},
	{common.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{common.ErrorNotFound, http.StatusNotFound, CodeNotFound},
	{common.ErrAlreadyUsed, http.StatusConflict, CodeConflict},
	{common.ErrorAlreadyExists, http.StatusConflict, CodeConflict},
	{common.ErrTokenExpired, http.StatusGone, CodeExpired},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// failWith maps err to a response. Internal details are not echoed back.
func failWith(c *gin.Context, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	_ = c.Error(err)
	fail(c, status, code, msg)
}

// serverFault reports errors that say nothing about the presented
// credentials.
func serverFault(err error) bool {
	return errors.Is(err, common.ErrStoreUnavailable) || errors.Is(err, common.ErrorInternal)
}

// failUnauthorized reports every rejection as 401. Used by the login and
// refresh endpoints where the exact reason must not leak; server faults keep
// their own status.
func failUnauthorized(c *gin.Context, err error) {
	if serverFault(err) {
		failWith(c, err)
		return
	}
	_ = c.Error(err)
	fail(c, http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
}
