// Package users contains the credential store: the contract the auth core
// consumes and its PostgreSQL and in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository is the credential store. Implementations must enforce email and
// username uniqueness atomically with the write: two concurrent Create (or
// Update) calls sharing an identity field must never both succeed.
//
// Errors: common.ErrorNotFound for missing users, common.ErrEmailTaken or
// common.ErrUsernameTaken (both match common.ErrorConflict) on collisions.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, userName string) (*models.User, error)
	Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id string) error
}
