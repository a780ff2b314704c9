// Package users declares the user directory repository and its database/sql
// implementation.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts u. A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	// MarkVerified flips is_verified; an already verified user yields
	// common.ErrorAlreadyExists.
	MarkVerified(ctx context.Context, id uuid.UUID, now time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, now time.Time) error
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role, now time.Time) error
	// Delete removes the user together with its tokens.
	Delete(ctx context.Context, id uuid.UUID) error
}
