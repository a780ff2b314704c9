// Package refreshtokens declares the server-side repository contract for
// the single refresh session each user may hold.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// Repository stores at most one row per user. Token values are digests.
type Repository interface {
	// Upsert inserts t or replaces the user's existing row, clearing the
	// revoked flag. An unknown user yields common.ErrorNotFound.
	Upsert(ctx context.Context, t *models.RefreshToken) error

	// Get returns the user's row or common.ErrorNotFound.
	Get(ctx context.Context, userID uuid.UUID) (*models.RefreshToken, error)

	// FindByToken returns the row holding tokenHash or common.ErrorNotFound.
	FindByToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// Rotate swaps oldHash for newHash only while the row still holds
	// oldHash, is not revoked and has not expired at now. It reports whether
	// the swap happened.
	Rotate(ctx context.Context, userID uuid.UUID, oldHash, newHash string, expiresAt, now time.Time) (bool, error)

	// Revoke marks the user's row revoked. Revoking twice, or revoking a user
	// without a row, is not an error.
	Revoke(ctx context.Context, userID uuid.UUID, now time.Time) error
}
