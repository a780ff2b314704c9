package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the single refresh session of a user, keyed by UserID.
// Token holds the SHA-256 hex digest of the value handed to the client,
// never the value itself.
type RefreshToken struct {
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
