package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// SQLRepository implements Repository over dbx.DBTX (satisfied by *sql.DB
// or *sql.Tx). The queries run unchanged on PostgreSQL and SQLite.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Upsert(ctx context.Context, t *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token, expires_at, revoked, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET token = excluded.token,
		    expires_at = excluded.expires_at,
		    revoked = FALSE,
		    updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, t.UserID, t.Token, t.ExpiresAt, t.UpdatedAt); err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return common.ErrorNotFound
		}
		return dbx.StoreError("upsert refresh token", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, userID uuid.UUID) (*models.RefreshToken, error) {
	query := `
		SELECT user_id, token, expires_at, revoked, created_at, updated_at
		FROM refresh_tokens
		WHERE user_id = $1
	`
	return r.getOne(ctx, query, userID)
}

func (r *SQLRepository) FindByToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT user_id, token, expires_at, revoked, created_at, updated_at
		FROM refresh_tokens
		WHERE token = $1
	`
	return r.getOne(ctx, query, tokenHash)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*models.RefreshToken, error) {
	t := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&t.UserID, &t.Token, &t.ExpiresAt, &t.Revoked, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.StoreError("get refresh token", err)
	}
	return t, nil
}

func (r *SQLRepository) Rotate(ctx context.Context, userID uuid.UUID, oldHash, newHash string, expiresAt, now time.Time) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET token = $3, expires_at = $4, updated_at = $5
		WHERE user_id = $1 AND token = $2 AND revoked = FALSE AND expires_at > $5
	`
	res, err := r.db.ExecContext(ctx, query, userID, oldHash, newHash, expiresAt, now)
	if err != nil {
		return false, dbx.StoreError("rotate refresh token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbx.StoreError("rotate refresh token", err)
	}
	return n == 1, nil
}

func (r *SQLRepository) Revoke(ctx context.Context, userID uuid.UUID, now time.Time) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, updated_at = $2
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID, now); err != nil {
		return dbx.StoreError("revoke refresh token", err)
	}
	return nil
}
