package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the auth and user endpoints.
type Handler struct {
	sessions      *services.SessionService
	directory     *services.UserDirectory
	refreshTTL    time.Duration
	secureCookies bool
}

func NewHandler(s *services.SessionService, d *services.UserDirectory, refreshTTL time.Duration, secureCookies bool) *Handler {
	return &Handler{
		sessions:      s,
		directory:     d,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidParam, err.Error())
		return false
	}
	return true
}

func (h *Handler) setSessionCookies(c *gin.Context, pair *services.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.AccessTokenCookieName, pair.AccessToken, int(pair.ExpiresIn.Seconds()), "/", "", h.secureCookies, true)
	c.SetCookie(common.RefreshTokenCookieName, pair.RefreshToken, int(h.refreshTTL.Seconds()), "/api/auth", "", h.secureCookies, true)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.AccessTokenCookieName, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(common.RefreshTokenCookieName, "", -1, "/api/auth", "", h.secureCookies, true)
}

func newTokenResponse(pair *services.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    common.BearerScheme,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.String(http.StatusOK, "PONG")
}

func (h *Handler) SignUp(c *gin.Context) {
	var req signUpRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.sessions.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		failWith(c, err)
		return
	}
	success(c, http.StatusCreated, newUserResponse(user))
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	pair, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failUnauthorized(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	success(c, http.StatusOK, newTokenResponse(pair))
}

// Refresh takes the refresh token from the body or, failing that, from the
// refresh cookie.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, CodeInvalidParam, err.Error())
		return
	}

	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(common.RefreshTokenCookieName)
	}
	if token == "" {
		fail(c, http.StatusUnauthorized, CodeUnauthorized, "missing refresh token")
		return
	}

	pair, err := h.sessions.RefreshAccessByToken(c.Request.Context(), token)
	if err != nil {
		// a store outage leaves the session intact, so the client keeps its cookies
		if !serverFault(err) {
			h.clearSessionCookies(c)
		}
		failUnauthorized(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	success(c, http.StatusOK, newTokenResponse(pair))
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), claimsOf(c).UserID); err != nil {
		failWith(c, err)
		return
	}
	h.clearSessionCookies(c)
	success(c, http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) Verify(c *gin.Context) {
	var req tokenRequest
	if !h.bind(c, &req) {
		return
	}

	if _, err := h.sessions.CompleteAction(c.Request.Context(), req.Token, models.ActionVerifyAccount, ""); err != nil {
		failWith(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "account verified"})
}

func (h *Handler) ResendVerification(c *gin.Context) {
	if err := h.sessions.RequestAction(c.Request.Context(), claimsOf(c).UserID, models.ActionVerifyAccount); err != nil {
		failWith(c, err)
		return
	}
	success(c, http.StatusAccepted, gin.H{"message": "verification link sent"})
}

// ForgotPassword answers the same way whether or not the email is known.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.sessions.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		failWith(c, err)
		return
	}
	success(c, http.StatusAccepted, gin.H{"message": "if the account exists, a reset link has been sent"})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if _, err := h.sessions.CompleteAction(c.Request.Context(), req.Token, models.ActionResetPassword, req.Password); err != nil {
		failWith(c, err)
		return
	}
	h.clearSessionCookies(c)
	success(c, http.StatusOK, gin.H{"message": "password has been reset"})
}

func (h *Handler) Self(c *gin.Context) {
	user, err := h.directory.Get(c.Request.Context(), claimsOf(c).UserID)
	if err != nil {
		failWith(c, err)
		return
	}
	success(c, http.StatusOK, newSelfResponse(user))
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !h.bind(c, &req) {
		return
	}

	err := h.sessions.ChangePassword(c.Request.Context(), claimsOf(c).UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredential) {
			fail(c, http.StatusBadRequest, CodeInvalidParam, "old password is incorrect")
			return
		}
		failWith(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "password changed"})
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.directory.List(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, newUserResponse(&users[i]))
	}
	success(c, http.StatusOK, out)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}

	if err := h.directory.Delete(c.Request.Context(), id); err != nil {
		failWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SetRole(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	var req setRoleRequest
	if !h.bind(c, &req) {
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidParam, err.Error())
		return
	}

	if err := h.directory.SetRole(c.Request.Context(), id, role); err != nil {
		failWith(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"id": id, "role": role.String()})
}

func (h *Handler) AdminCheck(c *gin.Context) {
	success(c, http.StatusOK, gin.H{"status": "ok"})
}

func pathUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidParam, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}
