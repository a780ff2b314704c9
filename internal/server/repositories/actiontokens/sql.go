package actiontokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Upsert(ctx context.Context, t *models.ActionToken) error {
	query := `
		INSERT INTO user_action_tokens (id, user_id, token, action_type, expires_at, used_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULL, $6, $6)
		ON CONFLICT (user_id, action_type) DO UPDATE
		SET id = excluded.id,
		    token = excluded.token,
		    expires_at = excluded.expires_at,
		    used_at = NULL,
		    updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Token, string(t.Kind), t.ExpiresAt, t.UpdatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return common.ErrorNotFound
		}
		return dbx.StoreError("upsert action token", err)
	}
	return nil
}

func (r *SQLRepository) Consume(ctx context.Context, tokenHash string, kind models.ActionKind, now time.Time) (uuid.UUID, error) {
	query := `
		UPDATE user_action_tokens
		SET used_at = $3, updated_at = $3
		WHERE token = $1 AND action_type = $2 AND used_at IS NULL AND expires_at > $3
		RETURNING user_id
	`
	var userID uuid.UUID
	err := r.db.QueryRowContext(ctx, query, tokenHash, string(kind), now).Scan(&userID)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, dbx.StoreError("consume action token", err)
	}

	return uuid.Nil, r.classify(ctx, tokenHash, kind, now)
}

// classify explains why the conditional update matched nothing.
func (r *SQLRepository) classify(ctx context.Context, tokenHash string, kind models.ActionKind, now time.Time) error {
	query := `
		SELECT action_type, used_at, expires_at
		FROM user_action_tokens
		WHERE token = $1
	`
	var (
		actionType string
		usedAt     sql.NullTime
		expiresAt  time.Time
	)
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&actionType, &usedAt, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return common.ErrorNotFound
	case err != nil:
		return dbx.StoreError("classify action token", err)
	case actionType != string(kind):
		return common.ErrorNotFound
	case usedAt.Valid:
		return common.ErrAlreadyUsed
	case !now.Before(expiresAt):
		return common.ErrTokenExpired
	}

	return fmt.Errorf("%w: action token changed during consume", common.ErrorInternal)
}
