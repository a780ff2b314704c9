// Package services contains server-side business logic: credential checks,
// the refresh session store, action tokens and the session orchestrator that
// composes them.
package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// CredentialVerifier checks an email/password pair against the stored hash.
type CredentialVerifier struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
}

func NewCredentialVerifier(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{db: db, repomanager: m, hasher: hasher}
}

// Verify returns the user on success, common.ErrorNotFound for an unknown
// email and common.ErrInvalidCredential for a wrong password. Unknown emails
// still pay for one hash comparison.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*models.User, error) {
	user, err := v.repomanager.Users(v.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			v.hasher.CompareDummy(password)
		}
		return nil, err
	}

	if err := v.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, err
	}
	return user, nil
}
