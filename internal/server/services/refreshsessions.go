package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/google/uuid"
)

// refreshTokenBytes is the entropy of a refresh token before hex encoding.
const refreshTokenBytes = 32

// RefreshSessionStore manages the single refresh session of each user. Only
// SHA-256 digests of the tokens reach the database.
type RefreshSessionStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	now         timex.Clock
}

func NewRefreshSessionStore(db *sql.DB, m repomanager.RepositoryManager, ttl time.Duration, clock timex.Clock) *RefreshSessionStore {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &RefreshSessionStore{db: db, repomanager: m, ttl: ttl, now: clock}
}

// Issue replaces the user's session with a fresh token and returns it.
func (s *RefreshSessionStore) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.issue(ctx, s.db, userID)
}

func (s *RefreshSessionStore) issue(ctx context.Context, db dbx.DBTX, userID uuid.UUID) (string, error) {
	token, err := common.MakeRandHexString(refreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	now := s.now()
	row := &models.RefreshToken{
		UserID:    userID,
		Token:     common.HashToken(token),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repomanager.RefreshTokens(db).Upsert(ctx, row); err != nil {
		return "", err
	}
	return token, nil
}

// Validate checks presented against the user's row. Errors, in order of
// precedence: common.ErrorNotFound, common.ErrRevoked, common.ErrTokenExpired,
// common.ErrMismatch.
func (s *RefreshSessionStore) Validate(ctx context.Context, userID uuid.UUID, presented string) error {
	return s.validate(ctx, s.db, userID, presented)
}

func (s *RefreshSessionStore) validate(ctx context.Context, db dbx.DBTX, userID uuid.UUID, presented string) error {
	row, err := s.repomanager.RefreshTokens(db).Get(ctx, userID)
	if err != nil {
		return err
	}
	return checkRefreshRow(row, presented, s.now())
}

func checkRefreshRow(row *models.RefreshToken, presented string, now time.Time) error {
	switch {
	case row.Revoked:
		return common.ErrRevoked
	case !now.Before(row.ExpiresAt):
		return common.ErrTokenExpired
	}

	digest := common.HashToken(presented)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(row.Token)) != 1 {
		return common.ErrMismatch
	}
	return nil
}

// Rotate validates presented and atomically replaces it with a new token,
// which is returned. Of two concurrent rotations with the same token only one
// succeeds; the other sees common.ErrMismatch.
func (s *RefreshSessionStore) Rotate(ctx context.Context, userID uuid.UUID, presented string) (string, error) {
	return s.rotate(ctx, s.db, userID, presented)
}

func (s *RefreshSessionStore) rotate(ctx context.Context, db dbx.DBTX, userID uuid.UUID, presented string) (string, error) {
	if err := s.validate(ctx, db, userID, presented); err != nil {
		return "", err
	}

	next, err := common.MakeRandHexString(refreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	now := s.now()
	ok, err := s.repomanager.RefreshTokens(db).
		Rotate(ctx, userID, common.HashToken(presented), common.HashToken(next), now.Add(s.ttl), now)
	if err != nil {
		return "", err
	}
	if !ok {
		// the row changed after validation: report what it is now
		if err := s.validate(ctx, db, userID, presented); err != nil {
			return "", err
		}
		return "", common.ErrMismatch
	}
	return next, nil
}

// Revoke marks the user's session revoked. It is idempotent.
func (s *RefreshSessionStore) Revoke(ctx context.Context, userID uuid.UUID) error {
	return s.revoke(ctx, s.db, userID)
}

func (s *RefreshSessionStore) revoke(ctx context.Context, db dbx.DBTX, userID uuid.UUID) error {
	return s.repomanager.RefreshTokens(db).Revoke(ctx, userID, s.now())
}

// Owner resolves the user holding presented. A token that has been
// superseded yields common.ErrorNotFound.
func (s *RefreshSessionStore) Owner(ctx context.Context, presented string) (uuid.UUID, error) {
	row, err := s.repomanager.RefreshTokens(s.db).FindByToken(ctx, common.HashToken(presented))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return uuid.Nil, common.ErrorNotFound
		}
		return uuid.Nil, err
	}
	return row.UserID, nil
}
