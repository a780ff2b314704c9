package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// requestLogger logs one line per request once the handler chain is done.
func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.Last().Error())
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error(c.Request.Context(), "request failed", args...)
		default:
			log.Info(c.Request.Context(), "request served", args...)
		}
	}
}

// bearerToken extracts the access token from the Authorization header,
// falling back to the access token cookie.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader(common.AuthorizationHeaderName); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], common.BearerScheme) {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(common.AccessTokenCookieName); err == nil {
		return cookie
	}
	return ""
}

// bearerAuth validates the access token and stores its claims in the
// request context.
func bearerAuth(codec *auth.TokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			fail(c, http.StatusUnauthorized, CodeUnauthorized, "missing access token")
			return
		}

		claims, err := codec.Validate(token)
		if err != nil {
			_ = c.Error(err)
			fail(c, http.StatusUnauthorized, CodeUnauthorized, err.Error())
			return
		}

		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// requirePermission rejects callers whose role does not grant op. It must
// run after bearerAuth.
func requirePermission(op auth.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := auth.ClaimsFromContext(c.Request.Context())
		if err := auth.Authorize(claims, op); err != nil {
			failWith(c, err)
			return
		}
		c.Next()
	}
}

// basicAuth guards endpoints with the configured fixed credentials.
func basicAuth(v *auth.BasicVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="gophauth"`)
			fail(c, http.StatusUnauthorized, CodeUnauthorized, "missing basic credentials")
			return
		}
		if err := v.Verify(user, pass); err != nil {
			c.Header("WWW-Authenticate", `Basic realm="gophauth"`)
			fail(c, http.StatusUnauthorized, CodeUnauthorized, err.Error())
			return
		}
		c.Next()
	}
}

func claimsOf(c *gin.Context) *auth.Claims {
	claims, _ := auth.ClaimsFromContext(c.Request.Context())
	return claims
}
