// Package services contains server-side business logic: AuthService
// (register, login, token to principal) and UserService (profile
// management of the authenticated user).
package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// Tokens issues and validates access tokens.
type Tokens interface {
	auth.TokenIssuer
	auth.TokenValidator
}

type RegisterRequest struct {
	Email    string
	UserName string
	Password string
	Profile  map[string]any
}

type LoginResult struct {
	AccessToken string
	User        *models.User
}

type AuthService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	hasher         auth.PasswordHasher
	tokens         Tokens
	accessTokenTTL time.Duration
	storeTimeout   time.Duration
	logger         logging.Logger
	recorder       Recorder

	dummyOnce sync.Once
	dummyHash string
}

type Option func(*options)

type options struct {
	logger   logging.Logger
	recorder Recorder
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

func buildOptions(opts []Option) options {
	o := options{logger: logging.Nop{}, recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewAuthService wires the auth core. db may be nil when the repository
// manager does not need a connection (in-memory store).
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, h auth.PasswordHasher, t Tokens, cfg *config.Config, opts ...Option) *AuthService {
	o := buildOptions(opts)
	return &AuthService{
		db:             db,
		repomanager:    m,
		hasher:         h,
		tokens:         t,
		accessTokenTTL: cfg.AccessTokenValidityDuration,
		storeTimeout:   cfg.StoreTimeout,
		logger:         o.logger.With("module", "auth_service"),
		recorder:       o.recorder,
	}
}

func (s *AuthService) users() users.Repository {
	return s.repomanager.Users(s.db)
}

// Register creates a user. The password is hashed before the store sees it.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	user, err := s.register(ctx, req)
	s.recorder.ObserveRegistration(common.Kind(err))
	if err != nil {
		s.logger.Warn(ctx, "registration failed", "kind", common.Kind(err))
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := NormalizeEmail(req.Email)
	userName := NormalizeUserName(req.UserName)
	if err := errors.Join(requireNonEmpty("email", email), requireNonEmpty("username", userName)); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, hashError(err)
	}

	return callStore(ctx, s.storeTimeout, func(ctx context.Context) (*models.User, error) {
		return s.users().Create(ctx, &models.User{
			Email:        email,
			UserName:     userName,
			PasswordHash: hash,
			Profile:      req.Profile,
		})
	})
}

// Login checks email and password and issues an access token. It returns
// ErrorNotFound for unknown emails and ErrorInvalidCredentials for a wrong
// password; boundaries must not let callers tell the two apart.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	res, err := s.login(ctx, email, password)
	s.recorder.ObserveLogin(common.Kind(err))
	if err != nil {
		s.logger.Warn(ctx, "login failed", "kind", common.Kind(err))
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", res.User.ID)
	return res, nil
}

func (s *AuthService) login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	user, err := callStore(ctx, s.storeTimeout, func(ctx context.Context) (*models.User, error) {
		return s.users().GetUserByEmail(ctx, email)
	})
	if errors.Is(err, common.ErrorNotFound) {
		// same bcrypt cost as a real comparison
		if _, verr := s.hasher.Verify(ctx, password, s.dummy()); verr != nil {
			return nil, hashError(verr)
		}
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return nil, hashError(err)
	}
	if !ok {
		return nil, common.ErrorInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, map[string]any{"email": user.Email}, s.accessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %v", common.ErrorInternal, err)
	}

	return &LoginResult{AccessToken: token, User: user}, nil
}

// dummy returns a hash of a random password, computed once.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		pw := hex.EncodeToString(common.GenerateRandByteArray(16))
		if h, err := s.hasher.Hash(context.Background(), pw); err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// ValidatePrincipal validates a raw bearer token and re-resolves its subject.
// A token for a deleted user fails with ErrorUnauthenticated.
func (s *AuthService) ValidatePrincipal(ctx context.Context, token string) (*models.User, error) {
	user, err := s.validatePrincipal(ctx, token)
	s.recorder.ObserveTokenValidation(common.Kind(err))
	if err != nil {
		s.logger.Debug(ctx, "token rejected", "kind", common.Kind(err))
		return nil, err
	}
	return user, nil
}

func (s *AuthService) validatePrincipal(ctx context.Context, token string) (*models.User, error) {
	tok, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	user, err := callStore(ctx, s.storeTimeout, func(ctx context.Context) (*models.User, error) {
		return s.users().GetUserByID(ctx, tok.Subject)
	})
	if errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: subject no longer exists", common.ErrorUnauthenticated)
	}
	return user, err
}
