package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repotest"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessTTL  = time.Hour
	testRefreshTTL = 7 * 24 * time.Hour
	testVerifyTTL  = 24 * time.Hour
	testResetTTL   = time.Hour
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentMail struct {
	kind  string
	to    string
	token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) record(kind, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: kind, to: to, token: token})
	return m.err
}

func (m *fakeMailer) SendVerification(_ context.Context, to *models.User, token string) error {
	return m.record("verify", to.Email, token)
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to *models.User, token string) error {
	return m.record("reset", to.Email, token)
}

func (m *fakeMailer) SendWelcome(_ context.Context, to *models.User) error {
	return m.record("welcome", to.Email, "")
}

// last returns the newest token mailed to email for kind.
func (m *fakeMailer) last(t *testing.T, kind, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind && m.sent[i].to == email {
			return m.sent[i].token
		}
	}
	t.Fatalf("no %s mail for %s", kind, email)
	return ""
}

func (m *fakeMailer) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}

type testEnv struct {
	db      *sql.DB
	repos   repomanager.RepositoryManager
	clock   *fakeClock
	mailer  *fakeMailer
	codec   *auth.TokenCodec
	hasher  *auth.BcryptHasher
	refresh *RefreshSessionStore
	actions *ActionTokenService
	dir     *UserDirectory
	svc     *SessionService
}

func newTestEnv(t *testing.T, cache UserCache) *testEnv {
	t.Helper()

	db := repotest.NewSQLite(t)
	repos, err := repomanager.NewSQLiteRepositoryManager(db)
	require.NoError(t, err)

	clock := &fakeClock{t: time.Now().UTC().Truncate(time.Second)}
	log := logging.NewNop()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	e := &testEnv{
		db:      db,
		repos:   repos,
		clock:   clock,
		mailer:  &fakeMailer{},
		codec:   auth.NewTokenCodec([]byte("test-secret-key"), testAccessTTL, clock.Now),
		hasher:  hasher,
		refresh: NewRefreshSessionStore(db, repos, testRefreshTTL, clock.Now),
		actions: NewActionTokenService(db, repos, testVerifyTTL, testResetTTL, clock.Now),
		dir:     NewUserDirectory(db, repos, cache, log),
	}
	e.svc = NewSessionService(SessionDeps{
		DB:          db,
		Repos:       repos,
		Credentials: NewCredentialVerifier(db, repos, hasher),
		Codec:       e.codec,
		Refresh:     e.refresh,
		Actions:     e.actions,
		Directory:   e.dir,
		Hasher:      hasher,
		Mailer:      e.mailer,
		Log:         log,
		Clock:       clock.Now,
	})
	return e
}

func (e *testEnv) register(t *testing.T, email, password string) *models.User {
	t.Helper()
	u, err := e.svc.Register(context.Background(), "Test User", email, password)
	require.NoError(t, err)
	return u
}

func (e *testEnv) countRefreshRows(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM refresh_tokens`).Scan(&n))
	return n
}
