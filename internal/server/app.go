// Package server assembles the auth server: it opens the store, runs the
// migrations, builds the session services and serves them over HTTP and
// gRPC until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/cache"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    *logging.ZapLogger
	db        *sql.DB
	redis     *redis.Client
	codec     *auth.TokenCodec
	sessions  *services.SessionService
	directory *services.UserDirectory
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.CheckSecrets(); err != nil {
		return nil, fmt.Errorf("insecure config: %w", err)
	}
	logger := logging.NewZapLogger(c.LogLevel)
	if c.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, repos, err := repomanager.Open(ctx, c.StoreDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	// the cache is optional; without it every lookup goes to the store
	var userCache services.UserCache
	if c.RedisAddr != "" {
		app.redis, err = cache.NewRedisClient(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		userCache = cache.NewUserCache(app.redis, c.UserCacheTTL, logger)
	}

	hasher := auth.NewBcryptHasher(0)
	app.codec = auth.NewTokenCodec([]byte(c.SecretKey), c.AccessTokenValidityDuration, nil)
	app.directory = services.NewUserDirectory(db, repos, userCache, logger)
	app.sessions = services.NewSessionService(services.SessionDeps{
		DB:          db,
		Repos:       repos,
		Credentials: services.NewCredentialVerifier(db, repos, hasher),
		Codec:       app.codec,
		Refresh:     services.NewRefreshSessionStore(db, repos, c.RefreshTokenValidityDuration, nil),
		Actions: services.NewActionTokenService(db, repos,
			c.VerifyAccountTokenValidityDuration, c.ResetPasswordTokenValidityDuration, nil),
		Directory: app.directory,
		Hasher:    hasher,
		Mailer:    mail.NewLogSender(logger, c.FrontendURL),
		Log:       logger,
	})

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.sessions, app.directory, app.codec)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := httpapi.NewHandler(app.sessions, app.directory,
		app.config.RefreshTokenValidityDuration, app.config.SecureCookies)
	basic := auth.NewBasicVerifier(app.config.BasicAuthUsername, app.config.BasicAuthPassword)
	router := httpapi.NewRouter(h, app.codec, basic, app.logger)

	s := httpapi.NewServer(app.config.HTTPAddr, router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until a signal arrives or one of the servers fails, then
// releases the store and the cache.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close failed", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	_ = app.logger.Sync()
}
