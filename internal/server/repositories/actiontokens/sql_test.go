package actiontokens

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repotest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const consumeQuery = `(?s)UPDATE\s+user_action_tokens\s+SET\s+used_at\s*=\s*\$3,\s*updated_at\s*=\s*\$3\s+WHERE\s+token\s*=\s*\$1\s+AND\s+action_type\s*=\s*\$2\s+AND\s+used_at\s+IS\s+NULL\s+AND\s+expires_at\s*>\s*\$3\s+RETURNING\s+user_id`

const classifyQuery = `(?s)SELECT\s+action_type,\s*used_at,\s*expires_at\s+FROM\s+user_action_tokens\s+WHERE\s+token\s*=\s*\$1`

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewSQLRepository(db), mock, db
}

func TestUpsert_SQLShape(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	tok := &models.ActionToken{
		ID: uuid.New(), UserID: uuid.New(), Token: "digest",
		Kind: models.ActionResetPassword, ExpiresAt: now.Add(time.Hour), UpdatedAt: now,
	}

	q := `(?s)INSERT\s+INTO\s+user_action_tokens\b.*ON\s+CONFLICT\s*\(user_id,\s*action_type\)\s+DO\s+UPDATE\s+SET\s+id\s*=\s*excluded\.id,.*used_at\s*=\s*NULL`
	mock.ExpectExec(q).
		WithArgs(tok.ID, tok.UserID, "digest", "reset-password", tok.ExpiresAt, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), tok))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	userID := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(consumeQuery).
		WithArgs("digest", "verify-account", now).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(userID.String()))

	got, err := repo.Consume(context.Background(), "digest", models.ActionVerifyAccount, now)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume_Classification(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		rows *sqlmock.Rows
		err  error
		want error
	}{
		{name: "absent", err: sql.ErrNoRows, want: common.ErrorNotFound},
		{
			name: "other kind",
			rows: sqlmock.NewRows([]string{"action_type", "used_at", "expires_at"}).AddRow("reset-password", nil, now.Add(time.Hour)),
			want: common.ErrorNotFound,
		},
		{
			name: "used",
			rows: sqlmock.NewRows([]string{"action_type", "used_at", "expires_at"}).AddRow("verify-account", now.Add(-time.Minute), now.Add(time.Hour)),
			want: common.ErrAlreadyUsed,
		},
		{
			name: "expired",
			rows: sqlmock.NewRows([]string{"action_type", "used_at", "expires_at"}).AddRow("verify-account", nil, now),
			want: common.ErrTokenExpired,
		},
		{name: "store down", err: errors.New("conn refused"), want: common.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectQuery(consumeQuery).WillReturnError(sql.ErrNoRows)
			exp := mock.ExpectQuery(classifyQuery).WithArgs("digest")
			if tt.rows != nil {
				exp.WillReturnRows(tt.rows)
			} else {
				exp.WillReturnError(tt.err)
			}

			_, err := repo.Consume(context.Background(), "digest", models.ActionVerifyAccount, now)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConsume_StoreError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(consumeQuery).WillReturnError(errors.New("db down"))

	_, err := repo.Consume(context.Background(), "digest", models.ActionVerifyAccount, time.Now())
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func seedUser(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO users (id, name, email, password, role, is_verified, created_at, updated_at)
		VALUES ($1, 'u', $2, 'h', 'regular', FALSE, $3, $3)`, id, id.String()+"@example.com", now)
	require.NoError(t, err)
	return id
}

func issue(t *testing.T, repo *SQLRepository, userID uuid.UUID, token string, kind models.ActionKind, ttl time.Duration) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, repo.Upsert(context.Background(), &models.ActionToken{
		ID: uuid.New(), UserID: userID, Token: token, Kind: kind, ExpiresAt: now.Add(ttl), UpdatedAt: now,
	}))
}

func TestSQLite_ReissueReplacesOutstanding(t *testing.T) {
	ctx := context.Background()
	db := repotest.NewSQLite(t)
	repo := NewSQLRepository(db)
	userID := seedUser(t, db)

	issue(t, repo, userID, "t1", models.ActionResetPassword, time.Hour)
	issue(t, repo, userID, "t2", models.ActionResetPassword, time.Hour)
	issue(t, repo, userID, "v1", models.ActionVerifyAccount, time.Hour)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM user_action_tokens WHERE user_id = $1 AND action_type = 'reset-password'`, userID).Scan(&n))
	assert.Equal(t, 1, n)

	now := time.Now().UTC()
	_, err := repo.Consume(ctx, "t1", models.ActionResetPassword, now)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	got, err := repo.Consume(ctx, "t2", models.ActionResetPassword, now)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = repo.Consume(ctx, "t2", models.ActionResetPassword, now)
	assert.ErrorIs(t, err, common.ErrAlreadyUsed)

	// kinds are independent
	verify := repotest.ActionToken(t, db, userID, models.ActionVerifyAccount)
	assert.Nil(t, verify.UsedAt)

	_, err = repo.Consume(ctx, "v1", models.ActionResetPassword, now)
	assert.ErrorIs(t, err, common.ErrorNotFound, "kind mismatch")
}

func TestSQLite_ReissueAfterConsumeClearsUsedAt(t *testing.T) {
	ctx := context.Background()
	db := repotest.NewSQLite(t)
	repo := NewSQLRepository(db)
	userID := seedUser(t, db)

	issue(t, repo, userID, "t1", models.ActionVerifyAccount, time.Hour)
	_, err := repo.Consume(ctx, "t1", models.ActionVerifyAccount, time.Now().UTC())
	require.NoError(t, err)

	issue(t, repo, userID, "t2", models.ActionVerifyAccount, time.Hour)
	got := repotest.ActionToken(t, db, userID, models.ActionVerifyAccount)
	assert.Equal(t, "t2", got.Token)
	assert.Nil(t, got.UsedAt)
}

func TestSQLite_Expired(t *testing.T) {
	db := repotest.NewSQLite(t)
	repo := NewSQLRepository(db)
	userID := seedUser(t, db)

	issue(t, repo, userID, "t1", models.ActionVerifyAccount, time.Minute)

	_, err := repo.Consume(context.Background(), "t1", models.ActionVerifyAccount, time.Now().UTC().Add(2*time.Minute))
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestSQLite_UpsertUnknownUser(t *testing.T) {
	repo := NewSQLRepository(repotest.NewSQLite(t))
	now := time.Now().UTC()

	err := repo.Upsert(context.Background(), &models.ActionToken{
		ID: uuid.New(), UserID: uuid.New(), Token: "x", Kind: models.ActionVerifyAccount, ExpiresAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_ConcurrentConsumeSucceedsOnce(t *testing.T) {
	db := repotest.NewSQLite(t)
	repo := NewSQLRepository(db)
	userID := seedUser(t, db)
	issue(t, repo, userID, "race", models.ActionResetPassword, time.Hour)

	const workers = 16
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		used      atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Consume(context.Background(), "race", models.ActionResetPassword, time.Now().UTC())
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, common.ErrAlreadyUsed):
				used.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(workers-1), used.Load())
}
