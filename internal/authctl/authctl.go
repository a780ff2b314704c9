// Package authctl implements the administrative command line of the auth
// server. It talks to the store directly and is meant for bootstrapping,
// e.g. creating the first admin account.
package authctl

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/cache"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

const minPasswordLength = 6

const usage = `usage: authctl <command> [flags]

commands:
  create-user -email <email> -name <name> [-role regular|admin]
  set-role    -email <email> -role regular|admin

store flags (also read from GOPHAUTH_* variables or -c <file>):
  -store postgres|sqlite  -d <dsn>
`

// Run executes the command in args (program name excluded) and writes
// human-readable output to w.
func Run(ctx context.Context, args []string, w io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(w, usage)
		return errors.New("no command given")
	}
	cmd, rest := args[0], args[1:]

	cfg, err := config.LoadConfig(rest)
	if err != nil {
		return err
	}

	switch cmd {
	case "create-user":
		return createUser(ctx, cfg, rest, w)
	case "set-role":
		return setRole(ctx, cfg, rest, w)
	case "help", "-h", "--help":
		fmt.Fprint(w, usage)
		return nil
	default:
		fmt.Fprint(w, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

type userFlags struct {
	email string
	name  string
	role  string
}

func parseUserFlags(name string, args []string) (*userFlags, error) {
	f := &userFlags{}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.email, "email", "", "user email")
	fs.StringVar(&f.name, "name", "", "display name")
	fs.StringVar(&f.role, "role", models.RoleRegular.String(), "role: regular or admin")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-name", "-role"})); err != nil {
		return nil, err
	}
	f.email = strings.ToLower(strings.TrimSpace(f.email))
	if f.email == "" {
		return nil, errors.New("-email is required")
	}
	return f, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	db, repos, err := repomanager.Open(ctx, cfg.StoreDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := repos.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, repos, nil
}

// promptPassword reads the password twice without echo. The caller wipes
// the returned slice.
func promptPassword(w io.Writer) ([]byte, error) {
	fmt.Fprint(w, "Enter password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	defer common.WipeByteArray(second)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}

	if !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		return nil, errors.New("passwords do not match")
	}
	if len(first) < minPasswordLength {
		common.WipeByteArray(first)
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return first, nil
}

func createUser(ctx context.Context, cfg *config.Config, args []string, w io.Writer) error {
	f, err := parseUserFlags("create-user", args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(f.name) == "" {
		return errors.New("-name is required")
	}
	role, err := models.ParseRole(f.role)
	if err != nil {
		return err
	}

	password, err := promptPassword(w)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	hash, err := auth.NewBcryptHasher(0).Hash(string(password))
	if err != nil {
		return err
	}

	db, repos, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(f.name),
		Email:        f.email,
		PasswordHash: hash,
		Role:         role,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repos.Users(db).Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return fmt.Errorf("user %s already exists", f.email)
		}
		return err
	}

	fmt.Fprintf(w, "created %s user %s (%s)\n", role, user.Email, user.ID)
	return nil
}

func setRole(ctx context.Context, cfg *config.Config, args []string, w io.Writer) error {
	f, err := parseUserFlags("set-role", args)
	if err != nil {
		return err
	}
	role, err := models.ParseRole(f.role)
	if err != nil {
		return err
	}

	db, repos, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	users := repos.Users(db)
	user, err := users.GetByEmail(ctx, f.email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("user %s not found", f.email)
		}
		return err
	}
	if err := users.UpdateRole(ctx, user.ID, role, time.Now().UTC()); err != nil {
		return err
	}
	fmt.Fprintf(w, "user %s is now %s\n", user.Email, role)

	// the role is already stored; a stale cached copy only lives until its TTL
	if err := evictCachedUser(ctx, cfg, user.ID); err != nil {
		fmt.Fprintf(w, "warning: cached user not evicted, it expires within %s: %v\n", cfg.UserCacheTTL, err)
	}
	return nil
}

// evictCachedUser drops the server's cached copy of the user, if the server
// runs with a cache.
func evictCachedUser(ctx context.Context, cfg *config.Config, id uuid.UUID) error {
	if cfg.RedisAddr == "" {
		return nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer client.Close()

	return cache.NewUserCache(client, cfg.UserCacheTTL, logging.NewNop()).Delete(ctx, id)
}
