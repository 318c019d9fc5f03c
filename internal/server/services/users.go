package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// UpdateRequest lists the account fields a user may change. Nil keeps the
// stored value; a non-nil Profile replaces the stored profile.
type UpdateRequest struct {
	Email    *string
	UserName *string
	Password *string
	Profile  map[string]any
}

// UserService manages the account of an already authenticated user.
type UserService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	hasher       auth.PasswordHasher
	storeTimeout time.Duration
	logger       logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, h auth.PasswordHasher, cfg *config.Config, opts ...Option) *UserService {
	o := buildOptions(opts)
	return &UserService{
		db:           db,
		repomanager:  m,
		hasher:       h,
		storeTimeout: cfg.StoreTimeout,
		logger:       o.logger.With("module", "user_service"),
	}
}

func (s *UserService) users() users.Repository {
	return s.repomanager.Users(s.db)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return callStore(ctx, s.storeTimeout, func(ctx context.Context) (*models.User, error) {
		return s.users().GetUserByID(ctx, id)
	})
}

// Update applies req. A changed email is normalized, a new password is
// re-hashed, and the store re-checks uniqueness against other users.
func (s *UserService) Update(ctx context.Context, id string, req UpdateRequest) (*models.User, error) {
	var patch models.UserPatch

	if req.Email != nil {
		email := NormalizeEmail(*req.Email)
		if err := requireNonEmpty("email", email); err != nil {
			return nil, err
		}
		patch.Email = &email
	}
	if req.UserName != nil {
		name := NormalizeUserName(*req.UserName)
		if err := requireNonEmpty("username", name); err != nil {
			return nil, err
		}
		patch.UserName = &name
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(ctx, *req.Password)
		if err != nil {
			return nil, hashError(err)
		}
		patch.PasswordHash = &hash
	}
	patch.Profile = req.Profile

	user, err := callStore(ctx, s.storeTimeout, func(ctx context.Context) (*models.User, error) {
		return s.users().Update(ctx, id, patch)
	})
	if err != nil {
		s.logger.Warn(ctx, "profile update failed", "user_id", id, "kind", common.Kind(err))
		return nil, err
	}

	s.logger.Info(ctx, "profile updated", "user_id", id, "password_changed", req.Password != nil)
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	_, err := callStore(ctx, s.storeTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.users().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "account deleted", "user_id", id)
	return nil
}
