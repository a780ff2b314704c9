package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionKind is the purpose a single-use action token was issued for.
type ActionKind string

const (
	ActionVerifyAccount ActionKind = "verify-account"
	ActionResetPassword ActionKind = "reset-password"
)

func (k ActionKind) String() string { return string(k) }

func (k ActionKind) Valid() bool {
	return k == ActionVerifyAccount || k == ActionResetPassword
}

func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown action kind %q", s)
	}
	return k, nil
}

// ActionToken is at most one outstanding token per (UserID, Kind). Like
// refresh tokens only the digest is stored. UsedAt is nil until consumed.
type ActionToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	Kind      ActionKind
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
