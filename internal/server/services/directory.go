package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/google/uuid"
)

// UserCache is a best-effort cache of user profiles. Cached users carry no
// password hash.
type UserCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, bool, error)
	Set(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserDirectory reads users cache-aside. A nil cache or a failing cache falls
// back to the database.
type UserDirectory struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       UserCache
	log         logging.Logger
	now         timex.Clock
}

func NewUserDirectory(db *sql.DB, m repomanager.RepositoryManager, cache UserCache, log logging.Logger) *UserDirectory {
	return &UserDirectory{db: db, repomanager: m, cache: cache, log: log, now: timex.SystemClock}
}

// Get returns the user profile. PasswordHash may be empty when served from
// the cache.
func (d *UserDirectory) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if d.cache != nil {
		u, ok, err := d.cache.Get(ctx, id)
		if err != nil {
			d.log.Warn(ctx, "user cache unavailable", "user_id", id, "error", err)
		} else if ok {
			return u, nil
		}
	}

	u, err := d.repomanager.Users(d.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		_ = d.cache.Set(ctx, u)
	}
	return u, nil
}

func (d *UserDirectory) List(ctx context.Context) ([]models.User, error) {
	return d.repomanager.Users(d.db).List(ctx)
}

// SetRole changes the user's role. Access tokens already minted keep the old
// role until they expire; the next refresh picks up the new one.
func (d *UserDirectory) SetRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("set role: unknown role %q", role)
	}
	if err := d.repomanager.Users(d.db).UpdateRole(ctx, id, role, d.now()); err != nil {
		return err
	}
	d.Invalidate(ctx, id)
	return nil
}

// Delete removes the user; its refresh and action tokens go with it.
func (d *UserDirectory) Delete(ctx context.Context, id uuid.UUID) error {
	if err := d.repomanager.Users(d.db).Delete(ctx, id); err != nil {
		return err
	}
	d.Invalidate(ctx, id)
	return nil
}

// Invalidate drops the cached copy of the user.
func (d *UserDirectory) Invalidate(ctx context.Context, id uuid.UUID) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Delete(ctx, id); err != nil {
		d.log.Warn(ctx, "failed to invalidate cached user", "user_id", id, "error", err)
	}
}
