// Package repotest provides a migrated in-memory SQLite database for
// repository and service tests.
package repotest

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/server/migrations"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// NewSQLite opens a private in-memory database with the full schema applied.
// It is closed when the test ends.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	sub, err := fs.Sub(migrations.Migrations, migrations.SQLiteDir)
	require.NoError(t, err)

	p, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	require.NoError(t, err)
	_, err = p.Up(context.Background())
	require.NoError(t, err)

	return db
}

// ActionToken reads the user's stored token of the given kind.
func ActionToken(t testing.TB, db *sql.DB, userID uuid.UUID, kind models.ActionKind) *models.ActionToken {
	t.Helper()

	var (
		tok    models.ActionToken
		kindDB string
		usedAt sql.NullTime
	)
	err := db.QueryRow(`
		SELECT id, user_id, token, action_type, expires_at, used_at, created_at, updated_at
		FROM user_action_tokens
		WHERE user_id = $1 AND action_type = $2
	`, userID, string(kind)).
		Scan(&tok.ID, &tok.UserID, &tok.Token, &kindDB, &tok.ExpiresAt, &usedAt, &tok.CreatedAt, &tok.UpdatedAt)
	require.NoError(t, err)

	tok.Kind = models.ActionKind(kindDB)
	if usedAt.Valid {
		tok.UsedAt = &usedAt.Time
	}
	return &tok
}
