package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)

	u, err := f.auth.Register(context.Background(), RegisterRequest{
		Email:    "  Alice@X.com ",
		UserName: " alice ",
		Password: "secret1",
		Profile:  map[string]any{"city": "Riga"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@x.com", u.Email)
	assert.Equal(t, "alice", u.UserName)
	assert.Equal(t, "hashed:secret1", u.PasswordHash)
	assert.Equal(t, map[string]any{"city": "Riga"}, u.Profile)
	assert.Equal(t, []string{"ok"}, f.recorder.registrations)
}

func TestRegister_Conflicts(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "alice", "pw")

	_, err := f.auth.Register(context.Background(), RegisterRequest{Email: "A@X.COM", UserName: "other", Password: "pw"})
	require.ErrorIs(t, err, common.ErrEmailTaken)

	_, err = f.auth.Register(context.Background(), RegisterRequest{Email: "b@x.com", UserName: "alice", Password: "pw"})
	require.ErrorIs(t, err, common.ErrUsernameTaken)

	// usernames are case-sensitive
	_, err = f.auth.Register(context.Background(), RegisterRequest{Email: "c@x.com", UserName: "Alice", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ok", "conflict", "conflict", "ok"}, f.recorder.registrations)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"blank email", RegisterRequest{Email: "  ", UserName: "alice", Password: "pw"}},
		{"blank username", RegisterRequest{Email: "a@x.com", UserName: "", Password: "pw"}},
		{"empty password", RegisterRequest{Email: "a@x.com", UserName: "alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.auth.Register(context.Background(), tt.req)
			require.ErrorIs(t, err, common.ErrorValidation)
		})
	}
}

func TestRegister_StoreFailures(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		repo := &stubRepo{create: func(ctx context.Context, _ *models.User) (*models.User, error) {
			return nil, blockUntilDone(ctx)
		}}
		f := newFixtureWith(t, &fakeRepoManager{repo: repo})

		start := time.Now()
		_, err := f.auth.Register(context.Background(), RegisterRequest{Email: "a@x.com", UserName: "alice", Password: "pw"})
		require.ErrorIs(t, err, common.ErrorTimeout)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("unavailable", func(t *testing.T) {
		repo := &stubRepo{create: func(context.Context, *models.User) (*models.User, error) {
			return nil, errors.New("db error: connection refused")
		}}
		f := newFixtureWith(t, &fakeRepoManager{repo: repo})

		_, err := f.auth.Register(context.Background(), RegisterRequest{Email: "a@x.com", UserName: "alice", Password: "pw"})
		require.ErrorIs(t, err, common.ErrorUnavailable)
		assert.Equal(t, []string{"unavailable"}, f.recorder.registrations)
	})
}

func TestRegister_ConcurrentSameIdentity(t *testing.T) {
	f := newFixture(t)

	const workers = 32
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.auth.Register(context.Background(), RegisterRequest{
				Email: "same@x.com", UserName: fmt.Sprintf("user%d", i), Password: "pw",
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, common.ErrorConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, succeeded.Load())
	assert.EqualValues(t, workers-1, conflicts.Load())
}

func TestRegister_ConcurrentDistinctIdentities(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.auth.Register(context.Background(), RegisterRequest{
				Email: fmt.Sprintf("u%d@x.com", i), UserName: fmt.Sprintf("u%d", i), Password: "pw",
			})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "registration %d", i)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com", "alice", "secret1")

	t.Run("success", func(t *testing.T) {
		res, err := f.auth.Login(context.Background(), " A@x.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, u.ID, res.User.ID)

		tok, err := f.tokens.Validate(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, u.ID, tok.Subject)
		assert.Equal(t, "a@x.com", tok.Claims["email"])
		assert.Equal(t, time.Minute, tok.ExpiresAt.Sub(tok.IssuedAt))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.auth.Login(context.Background(), "a@x.com", "nope")
		require.ErrorIs(t, err, common.ErrorInvalidCredentials)
	})

	t.Run("unknown email still verifies", func(t *testing.T) {
		before := f.hasher.verifyCalls.Load()
		_, err := f.auth.Login(context.Background(), "ghost@x.com", "secret1")
		require.ErrorIs(t, err, common.ErrorNotFound)
		assert.Equal(t, before+1, f.hasher.verifyCalls.Load())
	})

	assert.Equal(t, []string{"ok", "invalid_credentials", "not_found"}, f.recorder.logins)
}

func TestLogin_StoreAndHasherFailures(t *testing.T) {
	t.Run("store timeout", func(t *testing.T) {
		repo := &stubRepo{byMail: func(ctx context.Context, _ string) (*models.User, error) {
			return nil, blockUntilDone(ctx)
		}}
		f := newFixtureWith(t, &fakeRepoManager{repo: repo})

		_, err := f.auth.Login(context.Background(), "a@x.com", "pw")
		require.ErrorIs(t, err, common.ErrorTimeout)
	})

	t.Run("hasher canceled", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "a@x.com", "alice", "pw")
		f.hasher.verifyErr = context.Canceled

		_, err := f.auth.Login(context.Background(), "a@x.com", "pw")
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestValidatePrincipal(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com", "alice", "pw")

	res, err := f.auth.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)

	got, err := f.auth.ValidatePrincipal(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.auth.ValidatePrincipal(context.Background(), "")
	require.ErrorIs(t, err, common.ErrMissingToken)

	_, err = f.auth.ValidatePrincipal(context.Background(), res.AccessToken+"x")
	require.ErrorIs(t, err, common.ErrInvalidSignature)

	f.clock.Advance(time.Minute)
	_, err = f.auth.ValidatePrincipal(context.Background(), res.AccessToken)
	require.ErrorIs(t, err, common.ErrTokenExpired)

	assert.Equal(t, []string{"ok", "missing_token", "invalid_signature", "expired"}, f.recorder.validations)
}

func TestValidatePrincipal_DeletedUser(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com", "alice", "pw")

	res, err := f.auth.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(context.Background(), u.ID))

	_, err = f.auth.ValidatePrincipal(context.Background(), res.AccessToken)
	require.ErrorIs(t, err, common.ErrorUnauthenticated)
	assert.True(t, common.IsTokenError(err))
}

func TestEndToEnd_RealHasherAndTokens(t *testing.T) {
	ctx := context.Background()

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost, 2)
	require.NoError(t, err)
	tm, err := auth.NewTokenManager([]byte("e2e-secret"), auth.WithIssuer("authkeeper"))
	require.NoError(t, err)

	svc := NewAuthService(nil, repomanager.NewMemoryRepositoryManager(), hasher, tm, testConfig())

	u, err := svc.Register(ctx, RegisterRequest{Email: "a@x.com", UserName: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.NotEmpty(t, u.PasswordHash)

	res, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)

	principal, err := svc.ValidatePrincipal(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, principal.ID)

	_, err = svc.Register(ctx, RegisterRequest{Email: "a@x.com", UserName: "alice2", Password: "secret2"})
	require.ErrorIs(t, err, common.ErrorConflict)

	_, err = svc.Login(ctx, "a@x.com", "secret2")
	require.ErrorIs(t, err, common.ErrorInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@x.com", "secret1")
	require.ErrorIs(t, err, common.ErrorNotFound)
}
