package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and the long-lived refresh
// token of the session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// SessionService is the entry point for the transport layers. It drives
// login, refresh, logout and the action-token flows.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager

	credentials *CredentialVerifier
	codec       *auth.TokenCodec
	refresh     *RefreshSessionStore
	actions     *ActionTokenService
	directory   *UserDirectory
	hasher      auth.PasswordHasher
	mailer      mail.Sender

	log logging.Logger
	now timex.Clock
}

// SessionDeps lists the collaborators of a SessionService.
type SessionDeps struct {
	DB          *sql.DB
	Repos       repomanager.RepositoryManager
	Credentials *CredentialVerifier
	Codec       *auth.TokenCodec
	Refresh     *RefreshSessionStore
	Actions     *ActionTokenService
	Directory   *UserDirectory
	Hasher      auth.PasswordHasher
	Mailer      mail.Sender
	Log         logging.Logger
	Clock       timex.Clock
}

func NewSessionService(d SessionDeps) *SessionService {
	clock := d.Clock
	if clock == nil {
		clock = timex.SystemClock
	}
	return &SessionService{
		db:          d.DB,
		repomanager: d.Repos,
		credentials: d.Credentials,
		codec:       d.Codec,
		refresh:     d.Refresh,
		actions:     d.Actions,
		directory:   d.Directory,
		hasher:      d.Hasher,
		mailer:      d.Mailer,
		log:         d.Log.With("component", "sessions"),
		now:         clock,
	}
}

// Login verifies credentials, mints an access token and replaces the user's
// refresh session.
func (s *SessionService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.credentials.Verify(ctx, normalizeEmail(email), password)
	if err != nil {
		if !errors.Is(err, common.ErrStoreUnavailable) {
			s.log.Info(ctx, "login rejected", "error", err)
		}
		return nil, err
	}

	access, err := s.codec.Mint(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	refresh, err := s.refresh.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "login succeeded", "user_id", user.ID)
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.codec.TTL()}, nil
}

// RefreshAccess validates the refresh token, rotates it and mints a new
// access token with the user's current role. The rotation, the role read and
// the mint commit or fail together, so a failed call leaves the presented
// token usable for a retry.
func (s *SessionService) RefreshAccess(ctx context.Context, userID uuid.UUID, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		next, err := s.refresh.rotate(ctx, tx, userID, refreshToken)
		if err != nil {
			return err
		}

		// the role comes from the store; a cached profile may predate a role change
		user, err := s.repomanager.Users(tx).GetByID(ctx, userID)
		if err != nil {
			return err
		}
		access, err := s.codec.Mint(user.ID, user.Role)
		if err != nil {
			return fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}

		pair = &TokenPair{AccessToken: access, RefreshToken: next, ExpiresIn: s.codec.TTL()}
		return nil
	})
	if err != nil {
		if !errors.Is(err, common.ErrStoreUnavailable) {
			s.log.Info(ctx, "refresh rejected", "user_id", userID, "error", err)
		}
		return nil, err
	}

	s.log.Info(ctx, "access refreshed", "user_id", userID)
	return pair, nil
}

// RefreshAccessByToken is RefreshAccess for callers that only hold the
// refresh token, e.g. from a cookie.
func (s *SessionService) RefreshAccessByToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.refresh.Owner(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return s.RefreshAccess(ctx, userID, refreshToken)
}

// Logout revokes the user's refresh session. Access tokens already issued
// stay valid until they expire.
func (s *SessionService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.refresh.Revoke(ctx, userID); err != nil {
		return err
	}
	s.log.Info(ctx, "logged out", "user_id", userID)
	return nil
}

// Register creates a regular, unverified user and sends the verification
// link. The user row and its token are written in one transaction.
func (s *SessionService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         models.RoleRegular,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var token string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			return err
		}
		var err error
		token, err = s.actions.issue(ctx, tx, user.ID, models.ActionVerifyAccount)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	if err := s.mailer.SendVerification(ctx, user, token); err != nil {
		// the account exists; the user can ask for another link
		s.log.Error(ctx, "failed to send verification mail", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// RequestAction issues a token of kind for userID and mails it. Verifying an
// already verified account yields common.ErrorAlreadyExists.
func (s *SessionService) RequestAction(ctx context.Context, userID uuid.UUID, kind models.ActionKind) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.requestAction(ctx, user, kind)
}

func (s *SessionService) requestAction(ctx context.Context, user *models.User, kind models.ActionKind) error {
	if kind == models.ActionVerifyAccount && user.IsVerified {
		return common.ErrorAlreadyExists
	}

	token, err := s.actions.Issue(ctx, user.ID, kind)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "action token issued", "user_id", user.ID, "kind", kind)

	switch kind {
	case models.ActionVerifyAccount:
		return s.mailer.SendVerification(ctx, user, token)
	case models.ActionResetPassword:
		return s.mailer.SendPasswordReset(ctx, user, token)
	}
	return nil
}

// RequestPasswordReset starts the reset flow for email. Unknown addresses
// succeed silently so the endpoint does not reveal which accounts exist.
func (s *SessionService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}
	return s.requestAction(ctx, user, models.ActionResetPassword)
}

// CompleteAction consumes token and applies its effect: marking the account
// verified, or setting newPassword and revoking the refresh session. Both the
// consumption and the effect commit together, so the effect happens at most
// once per token.
func (s *SessionService) CompleteAction(ctx context.Context, token string, kind models.ActionKind, newPassword string) (uuid.UUID, error) {
	var hash string
	if kind == models.ActionResetPassword {
		if newPassword == "" {
			return uuid.Nil, fmt.Errorf("%w: empty password", common.ErrInvalidCredential)
		}
		var err error
		if hash, err = s.hasher.Hash(newPassword); err != nil {
			return uuid.Nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
	}

	var userID uuid.UUID
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		userID, err = s.actions.consume(ctx, tx, token, kind)
		if err != nil {
			return err
		}

		users := s.repomanager.Users(tx)
		switch kind {
		case models.ActionVerifyAccount:
			return users.MarkVerified(ctx, userID, s.now())
		case models.ActionResetPassword:
			if err := users.UpdatePassword(ctx, userID, hash, s.now()); err != nil {
				return err
			}
			return s.refresh.revoke(ctx, tx, userID)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, common.ErrStoreUnavailable) {
			s.log.Info(ctx, "action token rejected", "kind", kind, "error", err)
		}
		return uuid.Nil, err
	}

	s.directory.Invalidate(ctx, userID)
	s.log.Info(ctx, "action token consumed", "user_id", userID, "kind", kind)

	if kind == models.ActionVerifyAccount {
		if user, err := s.directory.Get(ctx, userID); err == nil {
			if err := s.mailer.SendWelcome(ctx, user); err != nil {
				s.log.Warn(ctx, "failed to send welcome mail", "user_id", userID, "error", err)
			}
		}
	}
	return userID, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *SessionService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	users := s.repomanager.Users(s.db)
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(user.PasswordHash, current); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if err := users.UpdatePassword(ctx, userID, hash, s.now()); err != nil {
		return err
	}

	s.directory.Invalidate(ctx, userID)
	s.log.Info(ctx, "password changed", "user_id", userID)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
