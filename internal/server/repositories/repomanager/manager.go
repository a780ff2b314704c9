// Package repomanager opens the configured store and vends repositories
// bound to either the pool or a transaction.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/actiontokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	ActionTokens(db dbx.DBTX) actiontokens.Repository
}

// sqlRepositories vends the portable database/sql repositories shared by
// every driver.
type sqlRepositories struct{}

func (sqlRepositories) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

func (sqlRepositories) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewSQLRepository(db)
}

func (sqlRepositories) ActionTokens(db dbx.DBTX) actiontokens.Repository {
	return actiontokens.NewSQLRepository(db)
}

// Open connects to the store named by driver ("postgres" or "sqlite"),
// verifies the connection and returns the matching manager.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, RepositoryManager, error) {
	var (
		db  *sql.DB
		m   RepositoryManager
		err error
	)

	switch driver {
	case "postgres":
		db, err = OpenPostgres(dsn)
		if err == nil {
			m, err = NewPostgresRepositoryManager(db)
		}
	case "sqlite":
		db, err = OpenSQLite(dsn)
		if err == nil {
			m, err = NewSQLiteRepositoryManager(db)
		}
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, dbx.StoreError("ping", err)
	}

	return db, m, nil
}
