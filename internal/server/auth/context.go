package auth

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type ctxKey string

const principalKey ctxKey = "principal"

// PrincipalResolver turns a raw bearer token into the user it authenticates.
type PrincipalResolver interface {
	ValidatePrincipal(ctx context.Context, token string) (*models.User, error)
}

// WithPrincipal returns a copy of ctx carrying the authenticated user.
func WithPrincipal(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, principalKey, u)
}

// PrincipalFromContext returns the user attached by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(principalKey).(*models.User)
	return u, ok && u != nil
}
