// Package common contains shared constants, sentinel errors and small helpers
// used across the gophauth server and its command-line tools.
package common

// AuthorizationHeaderName is the HTTP header and gRPC metadata key carrying
// "Bearer <access token>" or "Basic <credentials>".
const AuthorizationHeaderName = "authorization"

// AccessTokenCookieName is the fallback cookie holding a bearer access token.
const AccessTokenCookieName = "token"

// RefreshTokenCookieName is the HttpOnly cookie holding the refresh token.
const RefreshTokenCookieName = "refresh_token"

const (
	BearerScheme = "Bearer"
	BasicScheme  = "Basic"
)
