package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/google/uuid"
)

const actionTokenBytes = 32

// ActionTokenService issues and consumes single-use tokens. Each kind has
// its own lifetime.
type ActionTokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ttls        map[models.ActionKind]time.Duration
	now         timex.Clock
}

func NewActionTokenService(db *sql.DB, m repomanager.RepositoryManager, verifyTTL, resetTTL time.Duration, clock timex.Clock) *ActionTokenService {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &ActionTokenService{
		db:          db,
		repomanager: m,
		ttls: map[models.ActionKind]time.Duration{
			models.ActionVerifyAccount: verifyTTL,
			models.ActionResetPassword: resetTTL,
		},
		now: clock,
	}
}

// Issue replaces any outstanding token of kind for userID and returns the
// new token value.
func (s *ActionTokenService) Issue(ctx context.Context, userID uuid.UUID, kind models.ActionKind) (string, error) {
	return s.issue(ctx, s.db, userID, kind)
}

func (s *ActionTokenService) issue(ctx context.Context, db dbx.DBTX, userID uuid.UUID, kind models.ActionKind) (string, error) {
	ttl, ok := s.ttls[kind]
	if !ok {
		return "", fmt.Errorf("issue action token: unknown kind %q", kind)
	}

	token, err := common.MakeRandHexString(actionTokenBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	now := s.now()
	row := &models.ActionToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     common.HashToken(token),
		Kind:      kind,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repomanager.ActionTokens(db).Upsert(ctx, row); err != nil {
		return "", err
	}
	return token, nil
}

// Consume marks token used and returns its owner. It fails with
// common.ErrorNotFound, common.ErrAlreadyUsed or common.ErrTokenExpired.
func (s *ActionTokenService) Consume(ctx context.Context, token string, kind models.ActionKind) (uuid.UUID, error) {
	return s.consume(ctx, s.db, token, kind)
}

func (s *ActionTokenService) consume(ctx context.Context, db dbx.DBTX, token string, kind models.ActionKind) (uuid.UUID, error) {
	if !kind.Valid() {
		return uuid.Nil, common.ErrorNotFound
	}
	return s.repomanager.ActionTokens(db).Consume(ctx, common.HashToken(token), kind, s.now())
}
