// Package actiontokens persists single-use, purpose-scoped tokens such as
// account verification and password reset links.
package actiontokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// Repository keeps at most one row per (user, kind). Token values are digests.
type Repository interface {
	// Upsert inserts t or replaces the outstanding token of the same kind for
	// the same user, clearing used_at. An unknown user yields
	// common.ErrorNotFound.
	Upsert(ctx context.Context, t *models.ActionToken) error

	// Consume marks the token used in a single conditional update and
	// returns its owner. Failures are common.ErrorNotFound (absent or other
	// kind), common.ErrAlreadyUsed or common.ErrTokenExpired.
	Consume(ctx context.Context, tokenHash string, kind models.ActionKind, now time.Time) (uuid.UUID, error)
}
