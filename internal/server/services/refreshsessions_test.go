package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshSessionStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	u := e.register(t, "alice@example.com", "password-1")

	assert.ErrorIs(t, e.refresh.Validate(ctx, u.ID, "x"), common.ErrorNotFound)

	tok, err := e.refresh.Issue(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, tok, 2*refreshTokenBytes)

	var stored string
	require.NoError(t, e.db.QueryRow(`SELECT token FROM refresh_tokens WHERE user_id = $1`, u.ID).Scan(&stored))
	assert.Equal(t, common.HashToken(tok), stored, "only the digest is stored")

	require.NoError(t, e.refresh.Validate(ctx, u.ID, tok))
	assert.ErrorIs(t, e.refresh.Validate(ctx, u.ID, tok+"0"), common.ErrMismatch)

	owner, err := e.refresh.Owner(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, owner)

	require.NoError(t, e.refresh.Revoke(ctx, u.ID))
	assert.ErrorIs(t, e.refresh.Validate(ctx, u.ID, tok), common.ErrRevoked)
	assert.ErrorIs(t, e.refresh.Validate(ctx, u.ID, "wrong"), common.ErrRevoked, "revoked wins over mismatch")

	// reissue clears the revoked flag
	tok2, err := e.refresh.Issue(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, e.refresh.Validate(ctx, u.ID, tok2))
	assert.ErrorIs(t, e.refresh.Validate(ctx, u.ID, tok), common.ErrMismatch)
	assert.Equal(t, 1, e.countRefreshRows(t))
}

func TestRefreshSessionStore_ExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	u := e.register(t, "alice@example.com", "password-1")

	tok, err := e.refresh.Issue(ctx, u.ID)
	require.NoError(t, err)

	e.clock.Advance(testRefreshTTL - time.Second)
	assert.NoError(t, e.refresh.Validate(ctx, u.ID, tok))

	e.clock.Advance(time.Second)
	assert.ErrorIs(t, e.refresh.Validate(ctx, u.ID, tok), common.ErrTokenExpired)

	_, err = e.refresh.Rotate(ctx, u.ID, tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestRefreshSessionStore_IssueUnknownUser(t *testing.T) {
	e := newTestEnv(t, nil)

	_, err := e.refresh.Issue(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRefreshSessionStore_RevokeWithoutSession(t *testing.T) {
	e := newTestEnv(t, nil)
	assert.NoError(t, e.refresh.Revoke(context.Background(), uuid.New()))
}
