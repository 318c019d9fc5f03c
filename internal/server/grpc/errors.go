package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	msgInvalidCredentials = "invalid credentials"
	msgUnauthenticated    = "unauthenticated"
	msgInternal           = "internal error"
)

// loginStatus answers unknown email and wrong password identically.
func (s *GRPCServer) loginStatus(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorInvalidCredentials) {
		return status.Error(codes.Unauthenticated, msgInvalidCredentials)
	}
	return s.toStatus(ctx, err)
}

// toStatus translates a service error into a status that never carries
// internal details.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case common.IsTokenError(err):
		return status.Error(codes.Unauthenticated, msgUnauthenticated)
	case errors.Is(err, common.ErrorInvalidCredentials):
		return status.Error(codes.Unauthenticated, msgInvalidCredentials)
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrEmailTaken):
		return status.Error(codes.AlreadyExists, "email already exists")
	case errors.Is(err, common.ErrUsernameTaken):
		return status.Error(codes.AlreadyExists, "username already exists")
	case errors.Is(err, common.ErrorConflict):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorTimeout):
		s.logger.Error(ctx, "call timed out", "error", err)
		return status.Error(codes.DeadlineExceeded, "the request timed out")
	case errors.Is(err, common.ErrorUnavailable):
		s.logger.Error(ctx, "storage unavailable", "error", err)
		return status.Error(codes.Unavailable, "service unavailable")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	default:
		s.logger.Error(ctx, "internal error", "error", err)
		return status.Error(codes.Internal, msgInternal)
	}
}
