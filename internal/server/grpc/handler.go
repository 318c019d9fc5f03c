package grpc

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/authrpc"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	msgRegistered = "User successfully created!"
	msgLoggedIn   = "Login successful!"
)

func (s *GRPCServer) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {

	req, err := authrpc.DecodeRegister(in)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if err := req.Validate(); err != nil {
		return nil, s.toStatus(ctx, validationError(err))
	}

	user, err := s.auth.Register(ctx, services.RegisterRequest{
		Email:    req.Email,
		UserName: req.Username,
		Password: req.Password,
		Profile:  req.Profile,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "user_id", user.ID)
	return s.encode(ctx, authrpc.RegisterResponse{Message: msgRegistered, User: toUser(user)})
}

func (s *GRPCServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {

	var req authrpc.LoginRequest
	if err := authrpc.Decode(in, &req); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if err := req.Validate(); err != nil {
		return nil, s.toStatus(ctx, validationError(err))
	}

	res, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.loginStatus(ctx, err)
	}

	return s.encode(ctx, authrpc.LoginResponse{
		Message:     msgLoggedIn,
		AccessToken: res.AccessToken,
		User:        authrpc.PrincipalSummary{Username: res.User.UserName, Email: res.User.Email},
	})
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {

	user, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	return s.encode(ctx, toUser(user))
}

func (s *GRPCServer) UpdateProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {

	user, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	var req authrpc.UpdateRequest
	if err := authrpc.Decode(in, &req); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if err := req.Validate(); err != nil {
		return nil, s.toStatus(ctx, validationError(err))
	}

	updated, err := s.users.Update(ctx, user.ID, services.UpdateRequest{
		Email:    req.Email,
		UserName: req.Username,
		Password: req.Password,
		Profile:  req.Profile,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return s.encode(ctx, toUser(updated))
}

func (s *GRPCServer) DeleteAccount(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {

	user, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Account deleted", "user_id", user.ID)
	return &structpb.Struct{}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {

	return s.encode(ctx, authrpc.PingResponse{Status: "OK"})

}

func (s *GRPCServer) encode(ctx context.Context, v any) (*structpb.Struct, error) {
	out, err := authrpc.Encode(v)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return out, nil
}

// principal returns the user attached by accessTokenInterceptor.
func principal(ctx context.Context) (*models.User, error) {
	user, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgUnauthenticated)
	}
	return user, nil
}

func toUser(u *models.User) authrpc.User {
	return authrpc.User{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.UserName,
		Profile:   u.Profile,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func validationError(err error) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, strings.TrimSpace(err.Error()))
}
