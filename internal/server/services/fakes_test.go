package services

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Minute,
		StoreTimeout:                50 * time.Millisecond,
	}
}

type fakeHasher struct {
	verifyCalls atomic.Int32
	verifyErr   error
}

func (h *fakeHasher) Hash(ctx context.Context, plain string) (string, error) {
	if plain == "" {
		return "", common.ErrorValidation
	}
	return "hashed:" + plain, nil
}

func (h *fakeHasher) Verify(ctx context.Context, plain, hash string) (bool, error) {
	h.verifyCalls.Add(1)
	if h.verifyErr != nil {
		return false, h.verifyErr
	}
	return strings.TrimPrefix(hash, "hashed:") == plain && strings.HasPrefix(hash, "hashed:"), nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type spyRecorder struct {
	mu            sync.Mutex
	registrations []string
	logins        []string
	validations   []string
}

func (r *spyRecorder) ObserveRegistration(o string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations = append(r.registrations, o)
}

func (r *spyRecorder) ObserveLogin(o string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, o)
}

func (r *spyRecorder) ObserveTokenValidation(o string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validations = append(r.validations, o)
}

// stubRepo lets a test replace single store operations.
type stubRepo struct {
	users.Repository
	create func(ctx context.Context, u *models.User) (*models.User, error)
	byMail func(ctx context.Context, email string) (*models.User, error)
}

func (r *stubRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	return r.create(ctx, u)
}

func (r *stubRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.byMail(ctx, email)
}

type fakeRepoManager struct {
	repo users.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.repo }

// blockUntilDone simulates a store that never answers.
func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type fixture struct {
	auth     *AuthService
	users    *UserService
	hasher   *fakeHasher
	clock    *fakeClock
	recorder *spyRecorder
	tokens   *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, repomanager.NewMemoryRepositoryManager())
}

func newFixtureWith(t *testing.T, m repomanager.RepositoryManager) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)}
	tm, err := auth.NewTokenManager([]byte("k"), auth.WithClock(clock.Now))
	require.NoError(t, err)

	h := &fakeHasher{}
	rec := &spyRecorder{}
	cfg := testConfig()

	return &fixture{
		auth:     NewAuthService(nil, m, h, tm, cfg, WithRecorder(rec)),
		users:    NewUserService(nil, m, h, cfg),
		hasher:   h,
		clock:    clock,
		recorder: rec,
		tokens:   tm,
	}
}

func (f *fixture) register(t *testing.T, email, name, password string) *models.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterRequest{Email: email, UserName: name, Password: password})
	require.NoError(t, err)
	return u
}
