// Package httpapi exposes the session service over HTTP using gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// NewRouter wires the routes. Protected groups validate the bearer token
// first and then check the operation against the caller's role.
func NewRouter(h *Handler, codec *auth.TokenCodec, basic *auth.BasicVerifier, log logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(log), gin.Recovery())

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, CodeNotFound, "route "+c.Request.Method+" "+c.Request.URL.Path+" does not exist")
	})

	api := r.Group("/api")
	api.GET("/ping", h.Ping)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/sign-up", h.SignUp)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/verify", h.Verify)
		authGroup.POST("/password/forgot", h.ForgotPassword)
		authGroup.POST("/password/reset", h.ResetPassword)

		session := authGroup.Group("", bearerAuth(codec))
		session.POST("/logout", h.Logout)
		session.POST("/verify/resend", requirePermission(auth.OpUserSelf), h.ResendVerification)
	}

	user := api.Group("/user", bearerAuth(codec))
	{
		user.GET("/self", requirePermission(auth.OpUserSelf), h.Self)
		user.POST("/password", requirePermission(auth.OpUserChangePassword), h.ChangePassword)
		user.GET("/users", requirePermission(auth.OpUserList), h.ListUsers)
		user.DELETE("/users/:id", requirePermission(auth.OpUserDelete), h.DeleteUser)
		user.PATCH("/users/:id/role", requirePermission(auth.OpRoleManage), h.SetRole)
	}

	admin := api.Group("/admin", basicAuth(basic))
	admin.GET("/check", h.AdminCheck)

	return r
}

// Server runs the HTTP listener until its context is cancelled.
type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(address string, handler http.Handler, l logging.Logger) *Server {
	return &Server{address: address, handler: handler, logger: l.With("module", "http_server")}
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
